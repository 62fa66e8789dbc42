// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package aggregation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/paycorridor/internal/logging"
	"github.com/tomtom215/paycorridor/internal/metrics"
	"github.com/tomtom215/paycorridor/internal/models"
	"github.com/tomtom215/paycorridor/internal/pipeline"
	"github.com/tomtom215/paycorridor/internal/store"
	"github.com/tomtom215/paycorridor/internal/validation"
)

// ErrVolumeOverflow is returned when a group's summed amount does not fit in
// int64. Nothing is written by the failing run.
var ErrVolumeOverflow = errors.New("corridor volume overflows int64")

// Store is what aggregation reads from and writes to.
type Store interface {
	QueryPaymentsInRange(ctx context.Context, start, end time.Time, after *models.PaymentCursor, limit int) (*models.PaymentPage, error)
	UpsertHourlyMetrics(ctx context.Context, rows []models.HourlyCorridorMetric) error
}

var _ Store = (store.Store)(nil)

// RunReport summarizes one aggregation run.
type RunReport struct {
	RunID       string        `json:"run_id"`
	WindowStart time.Time     `json:"window_start"`
	WindowEnd   time.Time     `json:"window_end"`
	Pages       int           `json:"pages"`
	Scanned     int           `json:"scanned"`
	Upserted    int           `json:"upserted"`
	Duration    time.Duration `json:"duration"`
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the clock that defines the window end.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service rolls payments up into per-corridor, per-bucket metrics. It holds
// no mutable state, so concurrent runs are safe; they just write the same
// rows.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates an aggregation service.
func NewService(st Store, opts ...Option) *Service {
	s := &Service{store: st, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type groupKey struct {
	corridor string
	bucket   int64 // unix seconds
}

type counters struct {
	total      int64
	successful int64
	volume     int64
}

// RunHourlyAggregation recomputes every (corridor, bucket) group with at
// least one payment in [bucket(now-lookback), now] and upserts one row per
// group.
//
// Payments are read in keyset pages of cfg.BatchSize and only the running
// counters are kept, so memory is bounded by the number of groups, not
// payments. Rows are written after the full scan; a read failure therefore
// writes nothing, and a write failure may leave earlier chunks written.
// Rows whose counts did not change keep their stored updated_at, so running
// it twice over the same payments leaves the table identical.
func (s *Service) RunHourlyAggregation(ctx context.Context, cfg models.AggregationConfig) (report *RunReport, err error) {
	runStart := time.Now()
	report = &RunReport{RunID: uuid.NewString()}
	defer func() {
		report.Duration = time.Since(runStart)
		outcome := "success"
		if err != nil {
			outcome = pipeline.Kind(err)
			if errors.Is(err, ErrVolumeOverflow) {
				outcome = "volume_overflow"
			}
		}
		metrics.RecordAggregationRun(outcome, report.Duration, report.Scanned, report.Upserted)
	}()

	if verr := validation.ValidateStruct(cfg); verr != nil {
		return report, pipeline.InvalidConfig("aggregation config", verr)
	}

	ctx = logging.WithRun(ctx, "hourly_aggregation", report.RunID)
	log := logging.Ctx(ctx)

	// The window opens on a bucket boundary so the oldest bucket it touches
	// is rebuilt from all of its payments, not just the tail after now-lookback.
	end := store.Timestamp(s.now())
	start := HourBucket(end.Add(-time.Duration(cfg.LookbackHours)*time.Hour), cfg.IntervalHours)
	report.WindowStart, report.WindowEnd = start, end

	groups := make(map[groupKey]*counters)
	var after *models.PaymentCursor
	for {
		page, err := s.store.QueryPaymentsInRange(ctx, start, end, after, cfg.BatchSize)
		if err != nil {
			return report, pipeline.Storage("query payments", err)
		}
		report.Pages++
		report.Scanned += len(page.Payments)

		for i := range page.Payments {
			if err := accumulate(groups, &page.Payments[i], cfg.IntervalHours); err != nil {
				return report, err
			}
		}

		if page.Next == nil {
			break
		}
		after = page.Next
	}

	rows := buildRows(groups, end)
	for lo := 0; lo < len(rows); lo += cfg.BatchSize {
		hi := min(lo+cfg.BatchSize, len(rows))
		if err := s.store.UpsertHourlyMetrics(ctx, rows[lo:hi]); err != nil {
			return report, pipeline.Storage("upsert metrics", err)
		}
		report.Upserted += hi - lo
	}

	log.Info().
		Time("window_start", start).
		Time("window_end", end).
		Int("scanned", report.Scanned).
		Int("groups", len(rows)).
		Msg("Hourly aggregation finished")
	return report, nil
}

func accumulate(groups map[groupKey]*counters, p *models.Payment, intervalHours int) error {
	key := groupKey{corridor: p.CorridorKey, bucket: HourBucket(p.OccurredAt, intervalHours).Unix()}
	c, ok := groups[key]
	if !ok {
		c = &counters{}
		groups[key] = c
	}
	if p.Amount > 0 && c.volume > math.MaxInt64-p.Amount {
		return fmt.Errorf("%w: corridor %s bucket %s", ErrVolumeOverflow, key.corridor, time.Unix(key.bucket, 0).UTC().Format(time.RFC3339))
	}
	c.total++
	if p.Status == models.PaymentSuccessful {
		c.successful++
	}
	c.volume += p.Amount
	return nil
}

// buildRows turns groups into metric rows ordered by corridor, then bucket.
func buildRows(groups map[groupKey]*counters, updatedAt time.Time) []models.HourlyCorridorMetric {
	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].corridor != keys[j].corridor {
			return keys[i].corridor < keys[j].corridor
		}
		return keys[i].bucket < keys[j].bucket
	})

	rows := make([]models.HourlyCorridorMetric, 0, len(keys))
	for _, k := range keys {
		c := groups[k]
		rows = append(rows, models.HourlyCorridorMetric{
			CorridorKey:            k.corridor,
			HourBucket:             time.Unix(k.bucket, 0).UTC(),
			TotalTransactions:      c.total,
			SuccessfulTransactions: c.successful,
			SuccessRate:            models.SuccessRate(c.successful, c.total),
			TotalVolume:            c.volume,
			UpdatedAt:              updatedAt,
		})
	}
	return rows
}

// HourBucket floors t to a multiple of intervalHours since the Unix epoch,
// in UTC. intervalHours below 1 is treated as 1.
func HourBucket(t time.Time, intervalHours int) time.Time {
	if intervalHours < 1 {
		intervalHours = 1
	}
	width := int64(intervalHours) * 3600
	sec := t.Unix()
	b := sec - sec%width
	if sec < 0 && sec%width != 0 {
		b -= width
	}
	return time.Unix(b, 0).UTC()
}
