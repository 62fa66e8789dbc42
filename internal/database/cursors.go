// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/paycorridor/internal/metrics"
	"github.com/tomtom215/paycorridor/internal/models"
	"github.com/tomtom215/paycorridor/internal/store"
)

// GetCursor returns the committed position of jobName, or nil when the job
// has never committed a page.
func (db *DB) GetCursor(ctx context.Context, jobName string) (*models.IngestionCursor, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var (
		c         models.IngestionCursor
		position  sql.NullString
		owner     sql.NullString
		expiresAt sql.NullTime
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT job_name, cursor_position, updated_at, lease_owner, lease_expires_at
		FROM ingestion_cursors WHERE job_name = ?`, jobName,
	).Scan(&c.JobName, &position, &c.UpdatedAt, &owner, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cursor %s: %w", jobName, err)
	}
	if !position.Valid {
		return nil, nil
	}

	c.Position = position.String
	c.UpdatedAt = c.UpdatedAt.UTC()
	c.LeaseOwner = owner.String
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		c.LeaseExpiresAt = &t
	}
	return &c, nil
}

// AcquireLease claims the single-runner lease on jobName's cursor row until
// now+ttl. It succeeds only when the row is unleased or the previous lease
// has expired; a live lease returns store.ErrLeaseHeld even to its own owner.
func (db *DB) AcquireLease(ctx context.Context, jobName, owner string, ttl time.Duration) error {
	if owner == "" || ttl <= 0 {
		return fmt.Errorf("lease owner and positive ttl are required")
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	now := db.timestamp()

	err := withConflictRetry(ctx, "ingestion_cursors", func() error {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO ingestion_cursors (job_name, cursor_position, updated_at)
			VALUES (?, NULL, ?)
			ON CONFLICT (job_name) DO NOTHING`, jobName, now)
		return err
	})
	if err != nil {
		metrics.RecordDBQuery("acquire_lease", "ingestion_cursors", time.Since(start), err)
		return fmt.Errorf("failed to ensure cursor row %s: %w", jobName, err)
	}

	res, err := db.conn.ExecContext(ctx, `
		UPDATE ingestion_cursors
		SET lease_owner = ?, lease_expires_at = ?
		WHERE job_name = ?
		  AND (lease_owner IS NULL OR lease_expires_at IS NULL OR lease_expires_at <= ?)`,
		owner, now.Add(ttl), jobName, now)
	metrics.RecordDBQuery("acquire_lease", "ingestion_cursors", time.Since(start), err)
	if isTransactionConflict(err) {
		// Another runner updated the row concurrently and won.
		return store.ErrLeaseHeld
	}
	if err != nil {
		return fmt.Errorf("failed to acquire lease %s: %w", jobName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrLeaseHeld
	}
	return nil
}

// ReleaseLease clears owner's lease. Releasing a lease owned by someone else
// is a no-op.
func (db *DB) ReleaseLease(ctx context.Context, jobName, owner string) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err := withConflictRetry(ctx, "ingestion_cursors", func() error {
		_, err := db.conn.ExecContext(ctx, `
			UPDATE ingestion_cursors SET lease_owner = NULL, lease_expires_at = NULL
			WHERE job_name = ? AND lease_owner = ?`, jobName, owner)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to release lease %s: %w", jobName, err)
	}
	return nil
}

// CommitIngestion inserts payments (ignoring known ids) and moves jobName's
// cursor to newPosition in one transaction, extending owner's lease to
// now+ttl. The write happens only while owner holds an unexpired lease;
// otherwise store.ErrLeaseLost is returned and nothing changes.
func (db *DB) CommitIngestion(ctx context.Context, jobName, owner string, ttl time.Duration, newPosition string, payments []models.Payment) (inserted, duplicates int, err error) {
	if ttl <= 0 {
		return 0, 0, fmt.Errorf("positive lease ttl is required")
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err = withConflictRetry(ctx, "ingestion_cursors", func() error {
		var txErr error
		inserted, duplicates, txErr = db.inTx(ctx, func(tx *sql.Tx) (int, int, error) {
			now := db.timestamp()
			res, err := tx.ExecContext(ctx, `
				UPDATE ingestion_cursors SET cursor_position = ?, updated_at = ?, lease_expires_at = ?
				WHERE job_name = ? AND lease_owner = ? AND lease_expires_at > ?`,
				newPosition, now, now.Add(ttl), jobName, owner, now)
			if err != nil {
				return 0, 0, fmt.Errorf("failed to advance cursor %s: %w", jobName, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return 0, 0, fmt.Errorf("failed to read rows affected: %w", err)
			}
			if n == 0 {
				return 0, 0, store.ErrLeaseLost
			}
			return db.insertPayments(ctx, tx, payments)
		})
		return txErr
	})
	metrics.RecordDBQuery("commit_ingestion", "payments", time.Since(start), err)
	return inserted, duplicates, err
}
