// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package services

import (
	"context"
	"time"

	"github.com/tomtom215/paycorridor/internal/aggregation"
	"github.com/tomtom215/paycorridor/internal/events"
	"github.com/tomtom215/paycorridor/internal/logging"
	"github.com/tomtom215/paycorridor/internal/models"
	"github.com/tomtom215/paycorridor/internal/pipeline"
)

// AggregationRunner is satisfied by *aggregation.Service.
type AggregationRunner interface {
	RunHourlyAggregation(ctx context.Context, cfg models.AggregationConfig) (*aggregation.RunReport, error)
}

// AggregationService recomputes hourly corridor metrics on a fixed interval.
type AggregationService struct {
	runner    AggregationRunner
	publisher events.Publisher
	cfg       models.AggregationConfig
	interval  time.Duration
	policy    RetryPolicy
	afterRun  func()
	name      string
}

// NewAggregationService creates the aggregation scheduler. publisher may be nil.
func NewAggregationService(runner AggregationRunner, publisher events.Publisher, cfg models.AggregationConfig, interval time.Duration, policy RetryPolicy) *AggregationService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &AggregationService{
		runner:    runner,
		publisher: publisher,
		cfg:       cfg,
		interval:  interval,
		policy:    policy,
		name:      "aggregation-scheduler",
	}
}

// OnSuccess registers fn to run after every successful aggregation, e.g. to
// drop cached query results.
func (s *AggregationService) OnSuccess(fn func()) *AggregationService {
	s.afterRun = fn
	return s
}

// Serve implements suture.Service.
func (s *AggregationService) Serve(ctx context.Context) error {
	logging.Info().
		Str("service", s.name).
		Int("interval_hours", s.cfg.IntervalHours).
		Int("lookback_hours", s.cfg.LookbackHours).
		Dur("interval", s.interval).
		Msg("Aggregation scheduler started")
	return runLoop(ctx, s.interval, s.tick)
}

func (s *AggregationService) tick(ctx context.Context) error {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx)

	report, err := Retry(ctx, s.policy, s.name, func(ctx context.Context) (*aggregation.RunReport, error) {
		r, err := s.runner.RunHourlyAggregation(ctx, s.cfg)
		if r != nil {
			events.PublishQuietly(ctx, s.publisher, events.FromAggregation(r, err, triggerSchedule))
		}
		return r, err
	})

	switch {
	case err == nil && report != nil:
		if s.afterRun != nil {
			s.afterRun()
		}
		log.Info().
			Int("scanned", report.Scanned).
			Int("upserted", report.Upserted).
			Time("window_end", report.WindowEnd).
			Msg("Scheduled aggregation finished")
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		log.Error().Err(err).Str("error_type", pipeline.Kind(err)).Msg("Scheduled aggregation failed")
	}
	return tickError(s.name, err)
}

// String implements fmt.Stringer for suture logs.
func (s *AggregationService) String() string {
	return s.name
}
