// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/paycorridor/internal/metrics"
	"github.com/tomtom215/paycorridor/internal/models"
	"github.com/tomtom215/paycorridor/internal/store"
)

const insertPaymentSQL = `INSERT INTO payments (
	id, corridor_key, amount, asset_code, status, occurred_at, ledger_sequence,
	tx_hash, operation_type, source_account, destination_account,
	source_asset, destination_asset, ingested_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO NOTHING`

const selectPaymentColumns = `id, corridor_key, amount, asset_code, status, occurred_at, ledger_sequence,
	tx_hash, operation_type, source_account, destination_account, source_asset, destination_asset`

// UpsertIgnorePayments inserts payments whose id is not yet stored.
func (s *Store) UpsertIgnorePayments(ctx context.Context, payments []models.Payment) (inserted, duplicates int, err error) {
	if len(payments) == 0 {
		return 0, 0, nil
	}
	start := time.Now()
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var txErr error
		inserted, duplicates, txErr = s.insertPayments(ctx, tx, payments)
		return txErr
	})
	metrics.RecordDBQuery("upsert_ignore", "payments", time.Since(start), err)
	if err != nil {
		return 0, 0, err
	}
	return inserted, duplicates, nil
}

// insertPayments queues one insert per payment in a batch and counts the
// rows each one affected.
func (s *Store) insertPayments(ctx context.Context, tx pgx.Tx, payments []models.Payment) (inserted, duplicates int, err error) {
	if len(payments) == 0 {
		return 0, 0, nil
	}
	ingestedAt := s.timestamp()
	batch := &pgx.Batch{}
	for i := range payments {
		p := &payments[i]
		if err := p.Validate(); err != nil {
			return 0, 0, err
		}
		batch.Queue(insertPaymentSQL,
			p.ID, p.CorridorKey, p.Amount, p.AssetCode, string(p.Status),
			store.Timestamp(p.OccurredAt), int64(p.LedgerSequence),
			p.TxHash, p.OperationType, p.SourceAccount, p.DestinationAccount,
			p.SourceAsset, p.DestinationAsset, ingestedAt)
	}

	br := tx.SendBatch(ctx, batch)
	defer func() {
		if cerr := br.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close payment batch: %w", cerr)
		}
	}()
	for i := range payments {
		tag, execErr := br.Exec()
		if execErr != nil {
			return 0, 0, fmt.Errorf("failed to insert payment %s: %w", payments[i].ID, execErr)
		}
		if tag.RowsAffected() > 0 {
			inserted++
		} else {
			duplicates++
		}
	}
	return inserted, duplicates, nil
}

// QueryPaymentsInRange returns up to limit payments with start <= occurred_at
// <= end after the keyset cursor, ordered by (occurred_at, id).
func (s *Store) QueryPaymentsInRange(ctx context.Context, start, end time.Time, after *models.PaymentCursor, limit int) (*models.PaymentPage, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := `SELECT ` + selectPaymentColumns + ` FROM payments
		WHERE occurred_at >= $1 AND occurred_at <= $2`
	args := []any{store.Timestamp(start), store.Timestamp(end)}
	if after != nil {
		query += ` AND (occurred_at, id) > ($3, $4) ORDER BY occurred_at, id LIMIT $5`
		args = append(args, store.Timestamp(after.OccurredAt), after.ID, limit)
	} else {
		query += ` ORDER BY occurred_at, id LIMIT $3`
		args = append(args, limit)
	}

	queryStart := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		metrics.RecordDBQuery("query_range", "payments", time.Since(queryStart), err)
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	page := &models.PaymentPage{Payments: make([]models.Payment, 0, limit)}
	for rows.Next() {
		var (
			p      models.Payment
			status string
			seq    int64
		)
		if err := rows.Scan(&p.ID, &p.CorridorKey, &p.Amount, &p.AssetCode, &status, &p.OccurredAt, &seq,
			&p.TxHash, &p.OperationType, &p.SourceAccount, &p.DestinationAccount, &p.SourceAsset, &p.DestinationAsset); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Status = models.PaymentStatus(status)
		p.LedgerSequence = uint32(seq) //nolint:gosec // written from a uint32
		p.OccurredAt = p.OccurredAt.UTC()
		page.Payments = append(page.Payments, p)
	}
	err = rows.Err()
	metrics.RecordDBQuery("query_range", "payments", time.Since(queryStart), err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}

	if len(page.Payments) == limit {
		last := page.Payments[len(page.Payments)-1]
		page.Next = &models.PaymentCursor{OccurredAt: last.OccurredAt, ID: last.ID}
	}
	return page, nil
}

// CountPayments returns the number of stored payments.
func (s *Store) CountPayments(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return n, nil
}

// GetCursor returns the committed position of jobName, or nil.
func (s *Store) GetCursor(ctx context.Context, jobName string) (*models.IngestionCursor, error) {
	var (
		c         models.IngestionCursor
		position  *string
		owner     *string
		expiresAt *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT job_name, cursor_position, updated_at, lease_owner, lease_expires_at
		FROM ingestion_cursors WHERE job_name = $1`, jobName,
	).Scan(&c.JobName, &position, &c.UpdatedAt, &owner, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cursor %s: %w", jobName, err)
	}
	if position == nil {
		return nil, nil
	}
	c.Position = *position
	c.UpdatedAt = c.UpdatedAt.UTC()
	if owner != nil {
		c.LeaseOwner = *owner
	}
	if expiresAt != nil {
		t := expiresAt.UTC()
		c.LeaseExpiresAt = &t
	}
	return &c, nil
}

// AcquireLease claims jobName's lease for owner until now+ttl, or returns
// store.ErrLeaseHeld.
func (s *Store) AcquireLease(ctx context.Context, jobName, owner string, ttl time.Duration) error {
	if owner == "" || ttl <= 0 {
		return fmt.Errorf("lease owner and positive ttl are required")
	}
	start := time.Now()
	now := s.timestamp()

	// A single upsert: the conflict branch only fires when the WHERE allows
	// takeover, so a held lease leaves zero rows affected.
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO ingestion_cursors (job_name, cursor_position, updated_at, lease_owner, lease_expires_at)
		VALUES ($1, NULL, $2, $3, $4)
		ON CONFLICT (job_name) DO UPDATE
		SET lease_owner = EXCLUDED.lease_owner, lease_expires_at = EXCLUDED.lease_expires_at
		WHERE ingestion_cursors.lease_owner IS NULL
		   OR ingestion_cursors.lease_expires_at IS NULL
		   OR ingestion_cursors.lease_expires_at <= $2`,
		jobName, now, owner, now.Add(ttl))
	metrics.RecordDBQuery("acquire_lease", "ingestion_cursors", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to acquire lease %s: %w", jobName, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrLeaseHeld
	}
	return nil
}

// ReleaseLease clears owner's lease.
func (s *Store) ReleaseLease(ctx context.Context, jobName, owner string) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE ingestion_cursors SET lease_owner = NULL, lease_expires_at = NULL
		WHERE job_name = $1 AND lease_owner = $2`, jobName, owner); err != nil {
		return fmt.Errorf("failed to release lease %s: %w", jobName, err)
	}
	return nil
}

// CommitIngestion advances the cursor and inserts payments in one
// transaction while owner's lease is live, extending the lease to now+ttl.
func (s *Store) CommitIngestion(ctx context.Context, jobName, owner string, ttl time.Duration, newPosition string, payments []models.Payment) (inserted, duplicates int, err error) {
	if ttl <= 0 {
		return 0, 0, fmt.Errorf("positive lease ttl is required")
	}
	start := time.Now()
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		now := s.timestamp()
		tag, err := tx.Exec(ctx, `
			UPDATE ingestion_cursors SET cursor_position = $1, updated_at = $2, lease_expires_at = $5
			WHERE job_name = $3 AND lease_owner = $4 AND lease_expires_at > $2`,
			newPosition, now, jobName, owner, now.Add(ttl))
		if err != nil {
			return fmt.Errorf("failed to advance cursor %s: %w", jobName, err)
		}
		if tag.RowsAffected() == 0 {
			return store.ErrLeaseLost
		}
		var txErr error
		inserted, duplicates, txErr = s.insertPayments(ctx, tx, payments)
		return txErr
	})
	metrics.RecordDBQuery("commit_ingestion", "payments", time.Since(start), err)
	if err != nil {
		return 0, 0, err
	}
	return inserted, duplicates, nil
}
