// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Storage

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paycorridor_db_query_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycorridor_db_query_errors_total",
			Help: "Total number of failed store operations",
		},
		[]string{"operation", "table"},
	)

	DBTransactionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycorridor_db_transaction_conflicts_total",
			Help: "Write-write conflicts retried by the store",
		},
		[]string{"table"},
	)

	// Ingestion

	IngestionRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycorridor_ingestion_runs_total",
			Help: "Ingestion runs by outcome",
		},
		[]string{"job", "outcome"}, // outcome: success or an error kind
	)

	IngestionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paycorridor_ingestion_run_duration_seconds",
			Help:    "Wall time of ingestion runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"job"},
	)

	IngestionPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycorridor_ingestion_pages_committed_total",
			Help: "Source pages committed together with a cursor advance",
		},
		[]string{"job"},
	)

	IngestionRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycorridor_ingestion_records_total",
			Help: "Payment records handled by ingestion",
		},
		[]string{"job", "result"}, // result: inserted, duplicate
	)

	IngestionLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paycorridor_ingestion_last_success_timestamp_seconds",
			Help: "Unix time of the last successful ingestion run",
		},
		[]string{"job"},
	)

	LeaseConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycorridor_ingestion_lease_conflicts_total",
			Help: "Runs rejected because another runner held the lease",
		},
		[]string{"job"},
	)

	// Aggregation

	AggregationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycorridor_aggregation_runs_total",
			Help: "Aggregation runs by outcome",
		},
		[]string{"outcome"},
	)

	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paycorridor_aggregation_run_duration_seconds",
			Help:    "Wall time of aggregation runs",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	AggregationRowsScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paycorridor_aggregation_payments_scanned_total",
			Help: "Payments read by aggregation runs",
		},
	)

	AggregationMetricsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paycorridor_aggregation_metrics_upserted_total",
			Help: "Hourly corridor metric rows written",
		},
	)

	AggregationLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paycorridor_aggregation_last_success_timestamp_seconds",
			Help: "Unix time of the last successful aggregation run",
		},
	)

	// Ledger source

	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycorridor_source_requests_total",
			Help: "Ledger source page fetches by result",
		},
		[]string{"source", "result"},
	)

	SourceLatestLedger = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paycorridor_source_latest_ledger",
			Help: "Latest ledger sequence reported by the RPC server",
		},
	)

	// Circuit breaker

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Scheduler

	SchedulerRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycorridor_scheduler_retries_total",
			Help: "Retried pipeline invocations by service and error kind",
		},
		[]string{"service", "error_type"},
	)

	// API

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycorridor_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paycorridor_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paycorridor_api_active_requests",
			Help: "HTTP requests currently in flight",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycorridor_api_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycorridor_cache_lookups_total",
			Help: "API cache lookups by cache and result (hit, miss)",
		},
		[]string{"cache", "result"},
	)

	// Auth

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycorridor_auth_attempts_total",
			Help: "Login, refresh and logout attempts by result",
		},
		[]string{"operation", "result"},
	)

	// Events

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycorridor_events_published_total",
			Help: "Run summary events published by result",
		},
		[]string{"type", "result"},
	)
)

// RecordDBQuery records one store operation.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// IngestionRun is the summary RecordIngestionRun needs.
type IngestionRun struct {
	Job        string
	Outcome    string
	Duration   time.Duration
	Pages      int
	Inserted   int
	Duplicates int
}

// RecordIngestionRun records the outcome of one ingestion run.
func RecordIngestionRun(r IngestionRun) {
	IngestionRuns.WithLabelValues(r.Job, r.Outcome).Inc()
	IngestionDuration.WithLabelValues(r.Job).Observe(r.Duration.Seconds())
	IngestionPages.WithLabelValues(r.Job).Add(float64(r.Pages))
	IngestionRecords.WithLabelValues(r.Job, "inserted").Add(float64(r.Inserted))
	IngestionRecords.WithLabelValues(r.Job, "duplicate").Add(float64(r.Duplicates))
	if r.Outcome == "success" {
		IngestionLastSuccess.WithLabelValues(r.Job).SetToCurrentTime()
	}
	if r.Outcome == "concurrent_run" {
		LeaseConflicts.WithLabelValues(r.Job).Inc()
	}
}

// RecordAggregationRun records the outcome of one aggregation run.
func RecordAggregationRun(outcome string, duration time.Duration, scanned, upserted int) {
	AggregationRuns.WithLabelValues(outcome).Inc()
	AggregationDuration.Observe(duration.Seconds())
	AggregationRowsScanned.Add(float64(scanned))
	AggregationMetricsUpserted.Add(float64(upserted))
	if outcome == "success" {
		AggregationLastSuccess.SetToCurrentTime()
	}
}

// RecordSourceRequest records one page fetch.
func RecordSourceRequest(source string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	SourceRequests.WithLabelValues(source, result).Inc()
}

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit counts a rejected request.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordEventPublish records one event publish attempt.
func RecordEventPublish(eventType string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventsPublished.WithLabelValues(eventType, result).Inc()
}

// RecordAuthAttempt records one auth operation.
func RecordAuthAttempt(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	AuthAttempts.WithLabelValues(operation, result).Inc()
}
