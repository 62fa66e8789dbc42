// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

//go:build integration

package pgstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/paycorridor/internal/config"
	"github.com/tomtom215/paycorridor/internal/models"
	"github.com/tomtom215/paycorridor/internal/store"
	"github.com/tomtom215/paycorridor/internal/testinfra"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setupStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	testinfra.SkipIfNoDocker(t)

	ctx := context.Background()
	pg, err := testinfra.NewPostgresContainer(ctx, t)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { testinfra.CleanupContainer(t, context.Background(), pg) })

	clock := &fakeClock{now: base}
	s, err := New(ctx, &config.DatabaseConfig{PostgresDSN: pg.DSN, PostgresMaxConns: 4}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func payment(id string, at time.Time) models.Payment {
	return models.Payment{
		ID:          id,
		CorridorKey: "USDC->XLM",
		Amount:      100,
		AssetCode:   "USDC",
		Status:      models.PaymentSuccessful,
		OccurredAt:  at,
	}
}

func TestStore_Integration(t *testing.T) {
	s, clock := setupStore(t)
	ctx := context.Background()

	t.Run("schema version", func(t *testing.T) {
		v, err := s.SchemaVersion(ctx)
		if err != nil || v != schemaVersion {
			t.Errorf("SchemaVersion() = %d, %v; want %d", v, err, schemaVersion)
		}
	})

	t.Run("dedup", func(t *testing.T) {
		in, dup, err := s.UpsertIgnorePayments(ctx, []models.Payment{payment("d-1", base), payment("d-1", base), payment("d-2", base)})
		if err != nil {
			t.Fatal(err)
		}
		if in != 2 || dup != 1 {
			t.Errorf("UpsertIgnorePayments() = (%d, %d), want (2, 1)", in, dup)
		}
	})

	t.Run("keyset paging", func(t *testing.T) {
		var batch []models.Payment
		for i := 0; i < 7; i++ {
			batch = append(batch, payment(fmt.Sprintf("k-%d", i), base.Add(time.Hour)))
		}
		if _, _, err := s.UpsertIgnorePayments(ctx, batch); err != nil {
			t.Fatal(err)
		}
		var (
			after *models.PaymentCursor
			seen  int
		)
		for {
			page, err := s.QueryPaymentsInRange(ctx, base.Add(time.Hour), base.Add(time.Hour), after, 3)
			if err != nil {
				t.Fatal(err)
			}
			seen += len(page.Payments)
			if page.Next == nil {
				break
			}
			after = page.Next
		}
		if seen != 7 {
			t.Errorf("paged %d payments, want 7", seen)
		}
	})

	t.Run("lease and commit", func(t *testing.T) {
		const job = "payment_ingestion"
		if err := s.AcquireLease(ctx, job, "a", time.Minute); err != nil {
			t.Fatal(err)
		}
		if err := s.AcquireLease(ctx, job, "b", time.Minute); !errors.Is(err, store.ErrLeaseHeld) {
			t.Errorf("AcquireLease(b) = %v, want ErrLeaseHeld", err)
		}
		if err := s.AcquireLease(ctx, job, "a", time.Minute); !errors.Is(err, store.ErrLeaseHeld) {
			t.Errorf("AcquireLease(a) while held = %v, want ErrLeaseHeld", err)
		}
		if _, _, err := s.CommitIngestion(ctx, job, "a", time.Minute, "42", []models.Payment{payment("c-1", base)}); err != nil {
			t.Fatal(err)
		}
		clock.Advance(2 * time.Minute)
		if _, _, err := s.CommitIngestion(ctx, job, "a", time.Minute, "43", nil); !errors.Is(err, store.ErrLeaseLost) {
			t.Errorf("CommitIngestion() after expiry = %v, want ErrLeaseLost", err)
		}
		if err := s.AcquireLease(ctx, job, "b", time.Minute); err != nil {
			t.Errorf("AcquireLease(b) after expiry = %v", err)
		}
		c, err := s.GetCursor(ctx, job)
		if err != nil || c == nil || c.Position != "42" {
			t.Errorf("GetCursor() = %+v, %v; want position 42", c, err)
		}
	})

	t.Run("metric upsert", func(t *testing.T) {
		m := models.HourlyCorridorMetric{
			CorridorKey: "USDC->XLM", HourBucket: base, TotalTransactions: 4,
			SuccessfulTransactions: 2, SuccessRate: 50, TotalVolume: 400, UpdatedAt: base,
		}
		if err := s.UpsertHourlyMetric(ctx, m); err != nil {
			t.Fatal(err)
		}
		m.TotalTransactions, m.SuccessfulTransactions, m.SuccessRate = 8, 8, 100
		if err := s.UpsertHourlyMetric(ctx, m); err != nil {
			t.Fatal(err)
		}
		got, err := s.QueryHourlyMetricsInRange(ctx, base, base)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].TotalTransactions != 8 || got[0].SuccessRate != 100 {
			t.Errorf("QueryHourlyMetricsInRange() = %+v", got)
		}
	})
}
