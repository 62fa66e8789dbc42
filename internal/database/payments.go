// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/paycorridor/internal/metrics"
	"github.com/tomtom215/paycorridor/internal/models"
	"github.com/tomtom215/paycorridor/internal/store"
)

const insertPaymentSQL = `INSERT INTO payments (
	id, corridor_key, amount, asset_code, status, occurred_at, ledger_sequence,
	tx_hash, operation_type, source_account, destination_account,
	source_asset, destination_asset, ingested_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`

const selectPaymentColumns = `id, corridor_key, amount, asset_code, status, occurred_at, ledger_sequence,
	tx_hash, operation_type, source_account, destination_account, source_asset, destination_asset`

// UpsertIgnorePayments inserts payments whose id is not yet stored and
// leaves existing rows untouched.
func (db *DB) UpsertIgnorePayments(ctx context.Context, payments []models.Payment) (inserted, duplicates int, err error) {
	if len(payments) == 0 {
		return 0, 0, nil
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err = withConflictRetry(ctx, "payments", func() error {
		var txErr error
		inserted, duplicates, txErr = db.inTx(ctx, func(tx *sql.Tx) (int, int, error) {
			return db.insertPayments(ctx, tx, payments)
		})
		return txErr
	})
	metrics.RecordDBQuery("upsert_ignore", "payments", time.Since(start), err)
	return inserted, duplicates, err
}

// inTx runs fn in a transaction and commits when it succeeds.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) (int, int, error)) (a, b int, err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	if a, b, err = fn(tx); err != nil {
		return 0, 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return a, b, nil
}

// insertPayments writes payments inside tx and counts new rows and
// duplicates. Duplicates within the batch itself count once as inserted.
func (db *DB) insertPayments(ctx context.Context, tx *sql.Tx, payments []models.Payment) (inserted, duplicates int, err error) {
	stmt, err := tx.PrepareContext(ctx, insertPaymentSQL)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare payment insert: %w", err)
	}
	defer closeWithLog(stmt, "payment insert statement")

	ingestedAt := db.timestamp()
	for i := range payments {
		p := &payments[i]
		if err := p.Validate(); err != nil {
			return 0, 0, err
		}
		res, err := stmt.ExecContext(ctx,
			p.ID, p.CorridorKey, p.Amount, p.AssetCode, string(p.Status),
			store.Timestamp(p.OccurredAt), int64(p.LedgerSequence),
			p.TxHash, p.OperationType, p.SourceAccount, p.DestinationAccount,
			p.SourceAsset, p.DestinationAsset, ingestedAt,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to insert payment %s: %w", p.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to read rows affected for payment %s: %w", p.ID, err)
		}
		if n > 0 {
			inserted++
		} else {
			duplicates++
		}
	}
	return inserted, duplicates, nil
}

// QueryPaymentsInRange returns up to limit payments with start <= occurred_at
// <= end, ordered by (occurred_at, id), strictly after the keyset cursor.
// Page.Next is set when a full page was returned.
func (db *DB) QueryPaymentsInRange(ctx context.Context, start, end time.Time, after *models.PaymentCursor, limit int) (*models.PaymentPage, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var b strings.Builder
	b.WriteString(`SELECT ` + selectPaymentColumns + ` FROM payments WHERE occurred_at >= ? AND occurred_at <= ?`)
	args := []interface{}{store.Timestamp(start), store.Timestamp(end)}
	if after != nil {
		at := store.Timestamp(after.OccurredAt)
		b.WriteString(` AND (occurred_at > ? OR (occurred_at = ? AND id > ?))`)
		args = append(args, at, at, after.ID)
	}
	b.WriteString(` ORDER BY occurred_at, id LIMIT ?`)
	args = append(args, limit)

	queryStart := time.Now()
	rows, err := db.conn.QueryContext(ctx, b.String(), args...)
	if err != nil {
		metrics.RecordDBQuery("query_range", "payments", time.Since(queryStart), err)
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer closeWithLog(rows, "payment rows")

	page := &models.PaymentPage{Payments: make([]models.Payment, 0, limit)}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
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

func scanPayment(rows *sql.Rows) (models.Payment, error) {
	var (
		p      models.Payment
		status string
		seq    int64
	)
	err := rows.Scan(&p.ID, &p.CorridorKey, &p.Amount, &p.AssetCode, &status, &p.OccurredAt, &seq,
		&p.TxHash, &p.OperationType, &p.SourceAccount, &p.DestinationAccount, &p.SourceAsset, &p.DestinationAsset)
	if err != nil {
		return p, fmt.Errorf("failed to scan payment: %w", err)
	}
	p.Status = models.PaymentStatus(status)
	p.LedgerSequence = uint32(seq) //nolint:gosec // written from a uint32
	p.OccurredAt = p.OccurredAt.UTC()
	return p, nil
}

// CountPayments returns the number of stored payments.
func (db *DB) CountPayments(ctx context.Context) (int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return n, nil
}
