// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package indexing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/paycorridor/internal/corridor"
	"github.com/tomtom215/paycorridor/internal/ledger"
	"github.com/tomtom215/paycorridor/internal/logging"
	"github.com/tomtom215/paycorridor/internal/metrics"
	"github.com/tomtom215/paycorridor/internal/models"
	"github.com/tomtom215/paycorridor/internal/pipeline"
	"github.com/tomtom215/paycorridor/internal/store"
)

// DefaultJobName is the cursor row used for payment ingestion.
const DefaultJobName = "payment_ingestion"

const releaseTimeout = 5 * time.Second

// Stop reasons reported in RunReport.
const (
	StopCaughtUp   = "caught_up"
	StopMaxPages   = "max_pages"
	StopTimeBudget = "time_budget"
	StopCanceled   = "canceled"
)

// Config bounds a single run.
type Config struct {
	JobName    string
	MaxPages   int           // 0 = unlimited
	TimeBudget time.Duration // 0 = unlimited
	LeaseTTL   time.Duration
}

// RunReport summarizes one ingestion run. Counts cover committed pages only.
type RunReport struct {
	RunID         string        `json:"run_id"`
	JobName       string        `json:"job_name"`
	StartPosition string        `json:"start_position"`
	FinalPosition string        `json:"final_position"`
	Pages         int           `json:"pages"`
	Fetched       int           `json:"fetched"`
	Inserted      int           `json:"inserted"`
	Duplicates    int           `json:"duplicates"`
	StopReason    string        `json:"stop_reason,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the clock used for the time budget.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithOwner fixes the lease owner prefix. By default each Service gets a
// random one; every run appends its run id.
func WithOwner(owner string) Option {
	return func(s *Service) { s.owner = owner }
}

// Service pulls pages from a ledger source into the payment store and
// advances the job's cursor with each page.
type Service struct {
	source  ledger.Source
	store   store.CursorStore
	keyFunc corridor.KeyFunc
	cfg     Config
	now     func() time.Time
	owner   string
}

// NewService creates an ingestion service. keyFunc defaults to
// corridor.AssetPair.
func NewService(source ledger.Source, st store.CursorStore, keyFunc corridor.KeyFunc, cfg Config, opts ...Option) *Service {
	if cfg.JobName == "" {
		cfg.JobName = DefaultJobName
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 5 * time.Minute
	}
	if keyFunc == nil {
		keyFunc = corridor.AssetPair
	}
	s := &Service{
		source:  source,
		store:   st,
		keyFunc: keyFunc,
		cfg:     cfg,
		now:     time.Now,
		owner:   "ingest-" + uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// JobName returns the cursor row this service advances.
func (s *Service) JobName() string { return s.cfg.JobName }

// RunPaymentIngestion drains the source from the job's committed position
// until it reports no more data, a budget runs out, or ctx is cancelled.
//
// Each page is committed together with the cursor advance, so a failure
// leaves the cursor at the last fully committed page and a rerun resumes
// there. The run holds the job's lease throughout; if another runner holds
// it the call fails fast with ErrConcurrentRun. Cancellation is only
// observed between pages and is not an error.
func (s *Service) RunPaymentIngestion(ctx context.Context) (report *RunReport, err error) {
	runID := uuid.NewString()
	owner := s.owner + "/" + runID
	ctx = logging.WithRun(ctx, s.cfg.JobName, runID)
	log := logging.Ctx(ctx)

	startedAt := s.now()
	report = &RunReport{RunID: runID, JobName: s.cfg.JobName, StartedAt: startedAt.UTC()}
	defer func() {
		report.Duration = s.now().Sub(startedAt)
		outcome := "success"
		if err != nil {
			outcome = pipeline.Kind(err)
		}
		metrics.RecordIngestionRun(metrics.IngestionRun{
			Job:        s.cfg.JobName,
			Outcome:    outcome,
			Duration:   report.Duration,
			Pages:      report.Pages,
			Inserted:   report.Inserted,
			Duplicates: report.Duplicates,
		})
	}()

	if err := s.store.AcquireLease(ctx, s.cfg.JobName, owner, s.cfg.LeaseTTL); err != nil {
		if errors.Is(err, store.ErrLeaseHeld) {
			log.Info().Msg("Ingestion lease held by another runner, skipping")
			return report, pipeline.ConcurrentRun("acquire lease", err)
		}
		return report, pipeline.Storage("acquire lease", err)
	}
	defer s.releaseLease(ctx, owner)

	cursor, err := s.store.GetCursor(ctx, s.cfg.JobName)
	if err != nil {
		return report, pipeline.Storage("get cursor", err)
	}
	position := ""
	if cursor != nil {
		position = cursor.Position
	}
	report.StartPosition = position
	report.FinalPosition = position

	var deadline time.Time
	if s.cfg.TimeBudget > 0 {
		deadline = startedAt.Add(s.cfg.TimeBudget)
	}
	comparer := ledger.ComparerOf(s.source)

	log.Info().Str("position", position).Str("source", s.source.Name()).Msg("Starting payment ingestion")

	for {
		if ctx.Err() != nil {
			report.StopReason = StopCanceled
			break
		}
		if s.cfg.MaxPages > 0 && report.Pages >= s.cfg.MaxPages {
			report.StopReason = StopMaxPages
			break
		}
		if !deadline.IsZero() && !s.now().Before(deadline) {
			report.StopReason = StopTimeBudget
			break
		}

		page, err := s.source.FetchSince(ctx, position)
		if err != nil {
			return report, pipeline.SourceUnavailable("fetch page", err)
		}

		if len(page.Records) == 0 && page.NextPosition == position {
			report.StopReason = StopCaughtUp
			break
		}
		if err := checkAdvance(comparer, position, page.NextPosition); err != nil {
			return report, pipeline.SourceUnavailable("validate page", err)
		}

		payments := make([]models.Payment, 0, len(page.Records))
		for _, raw := range page.Records {
			payments = append(payments, corridor.ToPayment(s.keyFunc, raw))
		}

		// A fetched page is committed even if ctx is cancelled meanwhile.
		inserted, duplicates, err := s.store.CommitIngestion(context.WithoutCancel(ctx), s.cfg.JobName, owner, s.cfg.LeaseTTL, page.NextPosition, payments)
		if err != nil {
			if errors.Is(err, store.ErrLeaseLost) {
				return report, pipeline.ConcurrentRun("commit page", err)
			}
			return report, pipeline.Storage("commit page", err)
		}

		report.Pages++
		report.Fetched += len(page.Records)
		report.Inserted += inserted
		report.Duplicates += duplicates
		report.FinalPosition = page.NextPosition
		position = page.NextPosition

		log.Debug().
			Int("page", report.Pages).
			Int("records", len(page.Records)).
			Int("inserted", inserted).
			Int("duplicates", duplicates).
			Str("position", position).
			Msg("Page committed")

		if !page.HasMore {
			report.StopReason = StopCaughtUp
			break
		}
	}

	log.Info().
		Int("pages", report.Pages).
		Int("inserted", report.Inserted).
		Int("duplicates", report.Duplicates).
		Str("position", report.FinalPosition).
		Str("stop_reason", report.StopReason).
		Msg("Payment ingestion finished")
	return report, nil
}

// checkAdvance rejects a next position that is empty after a non-empty one,
// or that moves backward under the source's ordering.
func checkAdvance(comparer ledger.PositionComparer, current, next string) error {
	if next == "" && current != "" {
		return fmt.Errorf("source returned empty next position after %q", current)
	}
	if comparer == nil {
		return nil
	}
	c, err := comparer.ComparePositions(next, current)
	if err != nil {
		return err
	}
	if c < 0 {
		return fmt.Errorf("source moved cursor backward from %q to %q", current, next)
	}
	return nil
}

func (s *Service) releaseLease(ctx context.Context, owner string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.store.ReleaseLease(ctx, s.cfg.JobName, owner); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to release ingestion lease")
	}
}
