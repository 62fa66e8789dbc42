// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/paycorridor/internal/events"
	"github.com/tomtom215/paycorridor/internal/indexing"
	"github.com/tomtom215/paycorridor/internal/logging"
	"github.com/tomtom215/paycorridor/internal/pipeline"
)

// IngestionRunner is satisfied by *indexing.Service.
type IngestionRunner interface {
	RunPaymentIngestion(ctx context.Context) (*indexing.RunReport, error)
	JobName() string
}

// IngestionService runs payment ingestion on a fixed interval.
//
// Each tick invokes the runner under the retry policy. A run that finds the
// job lease held elsewhere is skipped until the next tick. A run rejected
// for invalid configuration stops the service for good.
type IngestionService struct {
	runner    IngestionRunner
	publisher events.Publisher
	interval  time.Duration
	policy    RetryPolicy
	name      string
}

// NewIngestionService creates the ingestion scheduler. publisher may be nil.
func NewIngestionService(runner IngestionRunner, publisher events.Publisher, interval time.Duration, policy RetryPolicy) *IngestionService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &IngestionService{
		runner:    runner,
		publisher: publisher,
		interval:  interval,
		policy:    policy,
		name:      "ingestion-scheduler",
	}
}

// Serve implements suture.Service.
func (s *IngestionService) Serve(ctx context.Context) error {
	logging.Info().
		Str("service", s.name).
		Str("job", s.runner.JobName()).
		Dur("interval", s.interval).
		Msg("Ingestion scheduler started")
	return runLoop(ctx, s.interval, s.tick)
}

func (s *IngestionService) tick(ctx context.Context) error {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx)

	report, err := Retry(ctx, s.policy, s.name, func(ctx context.Context) (*indexing.RunReport, error) {
		r, err := s.runner.RunPaymentIngestion(ctx)
		if r != nil {
			events.PublishQuietly(ctx, s.publisher, events.FromIngestion(r, err, triggerSchedule))
		}
		return r, err
	})

	switch {
	case err == nil && report != nil:
		log.Info().
			Str("job", report.JobName).
			Str("final_position", report.FinalPosition).
			Int("inserted", report.Inserted).
			Str("stop_reason", report.StopReason).
			Msg("Scheduled ingestion finished")
	case errors.Is(err, pipeline.ErrConcurrentRun):
		log.Info().Str("job", s.runner.JobName()).Msg("Ingestion already running elsewhere, skipping tick")
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		log.Error().Err(err).Str("job", s.runner.JobName()).Str("error_type", pipeline.Kind(err)).Msg("Scheduled ingestion failed")
	}
	return tickError(s.name, err)
}

// String implements fmt.Stringer for suture logs.
func (s *IngestionService) String() string {
	return s.name
}
