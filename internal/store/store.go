// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

// Package store defines the storage contract shared by the DuckDB and
// PostgreSQL backends.
//
// Implementations must provide:
//
//   - insert-or-ignore on payments keyed by id
//   - CommitIngestion as one transaction covering the payment insert and the
//     cursor advance, rejected with ErrLeaseLost when the caller no longer
//     owns the lease, and extending a live lease by its ttl
//   - AcquireLease as a compare-and-swap on the cursor row, failing with
//     ErrLeaseHeld while any lease is live, including the caller's own
//   - whole-row upsert of hourly metrics keyed by (corridor_key, hour_bucket),
//     leaving rows with unchanged counts untouched
package store

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/paycorridor/internal/models"
)

var (
	// ErrLeaseHeld is returned by AcquireLease while another owner holds a
	// live lease on the job's cursor row.
	ErrLeaseHeld = errors.New("ingestion lease held by another runner")

	// ErrLeaseLost is returned by CommitIngestion when the caller's lease
	// expired or was taken over. Nothing is written.
	ErrLeaseLost = errors.New("ingestion lease lost")
)

// PaymentStore persists deduplicated payments.
type PaymentStore interface {
	UpsertIgnorePayments(ctx context.Context, payments []models.Payment) (inserted, duplicates int, err error)
	QueryPaymentsInRange(ctx context.Context, start, end time.Time, after *models.PaymentCursor, limit int) (*models.PaymentPage, error)
	CountPayments(ctx context.Context) (int64, error)
}

// CursorStore persists ingestion positions and their leases.
type CursorStore interface {
	GetCursor(ctx context.Context, jobName string) (*models.IngestionCursor, error)
	AcquireLease(ctx context.Context, jobName, owner string, ttl time.Duration) error
	ReleaseLease(ctx context.Context, jobName, owner string) error
	CommitIngestion(ctx context.Context, jobName, owner string, ttl time.Duration, newPosition string, payments []models.Payment) (inserted, duplicates int, err error)
}

// MetricStore persists hourly corridor aggregates.
type MetricStore interface {
	UpsertHourlyMetric(ctx context.Context, m models.HourlyCorridorMetric) error
	UpsertHourlyMetrics(ctx context.Context, rows []models.HourlyCorridorMetric) error
	QueryHourlyMetricsInRange(ctx context.Context, start, end time.Time) ([]models.HourlyCorridorMetric, error)
}

// Store is a complete backend.
type Store interface {
	PaymentStore
	CursorStore
	MetricStore
	Ping(ctx context.Context) error
	Close() error
}

// Timestamp normalizes t to the precision and zone every backend stores:
// UTC, microseconds.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
