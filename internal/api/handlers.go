// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package api

import (
	"context"
	"time"

	"github.com/tomtom215/paycorridor/internal/aggregation"
	"github.com/tomtom215/paycorridor/internal/cache"
	"github.com/tomtom215/paycorridor/internal/events"
	"github.com/tomtom215/paycorridor/internal/indexing"
	"github.com/tomtom215/paycorridor/internal/models"
)

// IngestionRunner runs one ingestion pass for a fixed job.
type IngestionRunner interface {
	RunPaymentIngestion(ctx context.Context) (*indexing.RunReport, error)
	JobName() string
}

// AggregationRunner runs one aggregation pass.
type AggregationRunner interface {
	RunHourlyAggregation(ctx context.Context, cfg models.AggregationConfig) (*aggregation.RunReport, error)
}

// ReadStore is the read side of the store the API queries directly.
type ReadStore interface {
	Ping(ctx context.Context) error
	GetCursor(ctx context.Context, jobName string) (*models.IngestionCursor, error)
	QueryHourlyMetricsInRange(ctx context.Context, start, end time.Time) ([]models.HourlyCorridorMetric, error)
}

// AuthService issues and revokes operator tokens.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// HandlerDeps groups the collaborators of Handler. Publisher may be nil.
type HandlerDeps struct {
	Store       ReadStore
	Ingestion   IngestionRunner
	Aggregation AggregationRunner
	Auth        AuthService
	Publisher   events.Publisher

	// AggregationDefaults fills fields a manual run request leaves zero.
	AggregationDefaults models.AggregationConfig

	// MetricsCacheTTL bounds how long an hourly-metrics query result is
	// reused. Zero means 30s; negative disables the cache.
	MetricsCacheTTL time.Duration

	Version string
}

// Handler serves the operator API.
type Handler struct {
	store       ReadStore
	ingestion   IngestionRunner
	aggregation AggregationRunner
	auth        AuthService
	publisher   events.Publisher
	aggDefaults models.AggregationConfig
	version     string
	startTime   time.Time

	metricsCache *cache.LRU[[]models.HourlyCorridorMetric] // nil when disabled
}

// NewHandler creates a handler from deps.
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		store:       deps.Store,
		ingestion:   deps.Ingestion,
		aggregation: deps.Aggregation,
		auth:        deps.Auth,
		publisher:   deps.Publisher,
		aggDefaults: deps.AggregationDefaults,
		version:     deps.Version,
		startTime:   time.Now(),
	}
	switch ttl := deps.MetricsCacheTTL; {
	case ttl == 0:
		h.metricsCache = cache.NewLRU[[]models.HourlyCorridorMetric](metricsCacheName, metricsCacheSize, 30*time.Second)
	case ttl > 0:
		h.metricsCache = cache.NewLRU[[]models.HourlyCorridorMetric](metricsCacheName, metricsCacheSize, ttl)
	}
	return h
}

const (
	metricsCacheName = "hourly_metrics"
	metricsCacheSize = 256
)

// InvalidateMetricsCache drops cached hourly-metric query results. Call it
// after an aggregation run rewrites metric rows.
func (h *Handler) InvalidateMetricsCache() {
	if h.metricsCache != nil {
		h.metricsCache.Clear()
	}
}
