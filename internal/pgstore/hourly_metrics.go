// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/paycorridor/internal/metrics"
	"github.com/tomtom215/paycorridor/internal/models"
	"github.com/tomtom215/paycorridor/internal/store"
)

const upsertHourlyMetricSQL = `INSERT INTO hourly_corridor_metrics (
	corridor_key, hour_bucket, total_transactions, successful_transactions,
	success_rate, total_volume, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (corridor_key, hour_bucket) DO UPDATE SET
	total_transactions = EXCLUDED.total_transactions,
	successful_transactions = EXCLUDED.successful_transactions,
	success_rate = EXCLUDED.success_rate,
	total_volume = EXCLUDED.total_volume,
	updated_at = EXCLUDED.updated_at
WHERE hourly_corridor_metrics.total_transactions IS DISTINCT FROM EXCLUDED.total_transactions
   OR hourly_corridor_metrics.successful_transactions IS DISTINCT FROM EXCLUDED.successful_transactions
   OR hourly_corridor_metrics.total_volume IS DISTINCT FROM EXCLUDED.total_volume`

// UpsertHourlyMetric writes m, replacing an existing row unless its counts
// and volume are unchanged.
func (s *Store) UpsertHourlyMetric(ctx context.Context, m models.HourlyCorridorMetric) error {
	return s.UpsertHourlyMetrics(ctx, []models.HourlyCorridorMetric{m})
}

// UpsertHourlyMetrics writes rows in one transaction.
func (s *Store) UpsertHourlyMetrics(ctx context.Context, rows []models.HourlyCorridorMetric) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].CorridorKey == "" {
			return fmt.Errorf("metric corridor key is required")
		}
	}

	start := time.Now()
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i := range rows {
			m := &rows[i]
			batch.Queue(upsertHourlyMetricSQL,
				m.CorridorKey, store.Timestamp(m.HourBucket), m.TotalTransactions,
				m.SuccessfulTransactions, m.SuccessRate, m.TotalVolume, store.Timestamp(m.UpdatedAt))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to upsert hourly metrics: %w", err)
		}
		return nil
	})
	metrics.RecordDBQuery("upsert", "hourly_corridor_metrics", time.Since(start), err)
	return err
}

// QueryHourlyMetricsInRange returns metrics with start <= hour_bucket <= end.
func (s *Store) QueryHourlyMetricsInRange(ctx context.Context, start, end time.Time) ([]models.HourlyCorridorMetric, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT corridor_key, hour_bucket, total_transactions, successful_transactions,
		       success_rate, total_volume, updated_at
		FROM hourly_corridor_metrics
		WHERE hour_bucket >= $1 AND hour_bucket <= $2
		ORDER BY hour_bucket, corridor_key`,
		store.Timestamp(start), store.Timestamp(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly metrics: %w", err)
	}
	defer rows.Close()

	var out []models.HourlyCorridorMetric
	for rows.Next() {
		var m models.HourlyCorridorMetric
		if err := rows.Scan(&m.CorridorKey, &m.HourBucket, &m.TotalTransactions, &m.SuccessfulTransactions,
			&m.SuccessRate, &m.TotalVolume, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hourly metric: %w", err)
		}
		m.HourBucket = m.HourBucket.UTC()
		m.UpdatedAt = m.UpdatedAt.UTC()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate hourly metrics: %w", err)
	}
	return out, nil
}
