// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/paycorridor/internal/metrics"
	"github.com/tomtom215/paycorridor/internal/models"
	"github.com/tomtom215/paycorridor/internal/store"
)

const upsertHourlyMetricSQL = `INSERT INTO hourly_corridor_metrics (
	corridor_key, hour_bucket, total_transactions, successful_transactions,
	success_rate, total_volume, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (corridor_key, hour_bucket) DO UPDATE SET
	total_transactions = EXCLUDED.total_transactions,
	successful_transactions = EXCLUDED.successful_transactions,
	success_rate = EXCLUDED.success_rate,
	total_volume = EXCLUDED.total_volume,
	updated_at = EXCLUDED.updated_at
WHERE hourly_corridor_metrics.total_transactions IS DISTINCT FROM EXCLUDED.total_transactions
   OR hourly_corridor_metrics.successful_transactions IS DISTINCT FROM EXCLUDED.successful_transactions
   OR hourly_corridor_metrics.total_volume IS DISTINCT FROM EXCLUDED.total_volume`

// UpsertHourlyMetric writes m, replacing every column of an existing row
// with the same (corridor_key, hour_bucket). A row whose counts and volume
// already match is left as is, updated_at included.
func (db *DB) UpsertHourlyMetric(ctx context.Context, m models.HourlyCorridorMetric) error {
	return db.UpsertHourlyMetrics(ctx, []models.HourlyCorridorMetric{m})
}

// UpsertHourlyMetrics writes rows in one transaction. Each row is whole;
// there are no partial column updates.
func (db *DB) UpsertHourlyMetrics(ctx context.Context, rows []models.HourlyCorridorMetric) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if err := validateMetric(&rows[i]); err != nil {
			return err
		}
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err := withConflictRetry(ctx, "hourly_corridor_metrics", func() error {
		_, _, err := db.inTx(ctx, func(tx *sql.Tx) (int, int, error) {
			stmt, err := tx.PrepareContext(ctx, upsertHourlyMetricSQL)
			if err != nil {
				return 0, 0, fmt.Errorf("failed to prepare metric upsert: %w", err)
			}
			defer closeWithLog(stmt, "metric upsert statement")

			for i := range rows {
				m := &rows[i]
				if _, err := stmt.ExecContext(ctx,
					m.CorridorKey, store.Timestamp(m.HourBucket), m.TotalTransactions,
					m.SuccessfulTransactions, m.SuccessRate, m.TotalVolume, store.Timestamp(m.UpdatedAt),
				); err != nil {
					return 0, 0, fmt.Errorf("failed to upsert metric %s@%s: %w", m.CorridorKey, m.HourBucket.Format(time.RFC3339), err)
				}
			}
			return len(rows), 0, nil
		})
		return err
	})
	metrics.RecordDBQuery("upsert", "hourly_corridor_metrics", time.Since(start), err)
	return err
}

func validateMetric(m *models.HourlyCorridorMetric) error {
	switch {
	case m.CorridorKey == "":
		return fmt.Errorf("metric corridor key is required")
	case m.TotalTransactions < 0:
		return fmt.Errorf("metric %s: negative total_transactions", m.CorridorKey)
	case m.SuccessfulTransactions < 0 || m.SuccessfulTransactions > m.TotalTransactions:
		return fmt.Errorf("metric %s: successful_transactions %d outside [0, %d]", m.CorridorKey, m.SuccessfulTransactions, m.TotalTransactions)
	case m.SuccessRate < 0 || m.SuccessRate > 100:
		return fmt.Errorf("metric %s: success_rate %v outside [0, 100]", m.CorridorKey, m.SuccessRate)
	}
	return nil
}

// QueryHourlyMetricsInRange returns metrics with start <= hour_bucket <= end
// ordered by bucket then corridor.
func (db *DB) QueryHourlyMetricsInRange(ctx context.Context, start, end time.Time) ([]models.HourlyCorridorMetric, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	queryStart := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT corridor_key, hour_bucket, total_transactions, successful_transactions,
		       success_rate, total_volume, updated_at
		FROM hourly_corridor_metrics
		WHERE hour_bucket >= ? AND hour_bucket <= ?
		ORDER BY hour_bucket, corridor_key`,
		store.Timestamp(start), store.Timestamp(end))
	if err != nil {
		metrics.RecordDBQuery("query_range", "hourly_corridor_metrics", time.Since(queryStart), err)
		return nil, fmt.Errorf("failed to query hourly metrics: %w", err)
	}
	defer closeWithLog(rows, "metric rows")

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
	err = rows.Err()
	metrics.RecordDBQuery("query_range", "hourly_corridor_metrics", time.Since(queryStart), err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate hourly metrics: %w", err)
	}
	return out, nil
}
