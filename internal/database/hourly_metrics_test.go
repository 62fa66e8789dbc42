// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/paycorridor/internal/models"
)

func metric(corridor string, bucket time.Time, total, ok, volume int64) models.HourlyCorridorMetric {
	return models.HourlyCorridorMetric{
		CorridorKey:            corridor,
		HourBucket:             bucket,
		TotalTransactions:      total,
		SuccessfulTransactions: ok,
		SuccessRate:            models.SuccessRate(ok, total),
		TotalVolume:            volume,
		UpdatedAt:              bucket.Add(time.Hour),
	}
}

func TestUpsertHourlyMetric_Overwrites(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	checkNoError(t, db.UpsertHourlyMetric(ctx, metric("A->B", baseTime, 4, 3, 100)))
	checkNoError(t, db.UpsertHourlyMetric(ctx, metric("A->B", baseTime, 10, 5, 900)))

	got, err := db.QueryHourlyMetricsInRange(ctx, baseTime, baseTime)
	checkNoError(t, err)
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	m := got[0]
	if m.TotalTransactions != 10 || m.SuccessfulTransactions != 5 || m.TotalVolume != 900 {
		t.Errorf("row not replaced: %+v", m)
	}
	if m.SuccessRate != 50 {
		t.Errorf("SuccessRate = %v, want 50", m.SuccessRate)
	}
	if !m.HourBucket.Equal(baseTime) || m.HourBucket.Location() != time.UTC {
		t.Errorf("HourBucket = %v, want %v UTC", m.HourBucket, baseTime)
	}
}

func TestUpsertHourlyMetrics_RangeAndOrder(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	rows := []models.HourlyCorridorMetric{
		metric("B->C", baseTime.Add(time.Hour), 1, 1, 1),
		metric("A->B", baseTime.Add(time.Hour), 2, 1, 2),
		metric("A->B", baseTime, 3, 0, 3),
		metric("A->B", baseTime.Add(5*time.Hour), 1, 1, 1),
	}
	checkNoError(t, db.UpsertHourlyMetrics(ctx, rows))

	got, err := db.QueryHourlyMetricsInRange(ctx, baseTime, baseTime.Add(time.Hour))
	checkNoError(t, err)
	want := []struct {
		corridor string
		bucket   time.Time
	}{
		{"A->B", baseTime},
		{"A->B", baseTime.Add(time.Hour)},
		{"B->C", baseTime.Add(time.Hour)},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].CorridorKey != w.corridor || !got[i].HourBucket.Equal(w.bucket) {
			t.Errorf("row %d = (%s, %v), want (%s, %v)", i, got[i].CorridorKey, got[i].HourBucket, w.corridor, w.bucket)
		}
	}
}

func TestUpsertHourlyMetrics_Validation(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		m    models.HourlyCorridorMetric
	}{
		{"empty corridor", metric("", baseTime, 1, 1, 1)},
		{"successful above total", models.HourlyCorridorMetric{CorridorKey: "A", HourBucket: baseTime, TotalTransactions: 1, SuccessfulTransactions: 2}},
		{"rate above 100", models.HourlyCorridorMetric{CorridorKey: "A", HourBucket: baseTime, TotalTransactions: 1, SuccessfulTransactions: 1, SuccessRate: 101}},
		{"negative total", models.HourlyCorridorMetric{CorridorKey: "A", HourBucket: baseTime, TotalTransactions: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := db.UpsertHourlyMetric(ctx, tt.m); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	got, err := db.QueryHourlyMetricsInRange(ctx, baseTime.Add(-time.Hour), baseTime.Add(time.Hour))
	checkNoError(t, err)
	if len(got) != 0 {
		t.Errorf("invalid rows were written: %+v", got)
	}
}

func TestUpsertHourlyMetric_UnchangedCountsKeepRow(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	first := metric("A->B", baseTime, 4, 3, 100)
	checkNoError(t, db.UpsertHourlyMetric(ctx, first))

	again := first
	again.UpdatedAt = first.UpdatedAt.Add(30 * time.Minute)
	checkNoError(t, db.UpsertHourlyMetric(ctx, again))

	got, err := db.QueryHourlyMetricsInRange(ctx, baseTime, baseTime)
	checkNoError(t, err)
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	if !got[0].UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want unchanged %v", got[0].UpdatedAt, first.UpdatedAt)
	}

	changed := metric("A->B", baseTime, 5, 3, 120)
	changed.UpdatedAt = again.UpdatedAt
	checkNoError(t, db.UpsertHourlyMetric(ctx, changed))
	got, err = db.QueryHourlyMetricsInRange(ctx, baseTime, baseTime)
	checkNoError(t, err)
	if got[0].TotalTransactions != 5 || !got[0].UpdatedAt.Equal(changed.UpdatedAt) {
		t.Errorf("changed row not written: %+v", got[0])
	}
}
