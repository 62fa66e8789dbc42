// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/paycorridor/internal/logging"
)

// Migration is one append-only schema change. Statements run in order
// inside a single transaction together with the schema_migrations record.
type Migration struct {
	Version     int
	Name        string
	Description string
	Statements  []string
	AppliedAt   time.Time
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMP NOT NULL
)`

// migrations must never be edited or reordered once released; add new
// versions at the end.
var migrations = []Migration{
	{
		Version:     1,
		Name:        "create_payments",
		Description: "Deduplicated payment operations keyed by ledger operation id",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS payments (
				id TEXT PRIMARY KEY,
				corridor_key TEXT NOT NULL,
				amount BIGINT NOT NULL CHECK (amount >= 0),
				asset_code TEXT NOT NULL,
				status TEXT NOT NULL CHECK (status IN ('successful', 'failed')),
				occurred_at TIMESTAMP NOT NULL,
				ledger_sequence BIGINT NOT NULL,
				tx_hash TEXT,
				operation_type TEXT,
				source_account TEXT,
				destination_account TEXT,
				source_asset TEXT,
				destination_asset TEXT,
				ingested_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_occurred_at ON payments (occurred_at, id)`,
		},
	},
	{
		Version:     2,
		Name:        "create_ingestion_cursors",
		Description: "Per-job resume position and single-runner lease",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS ingestion_cursors (
				job_name TEXT PRIMARY KEY,
				cursor_position TEXT,
				updated_at TIMESTAMP NOT NULL,
				lease_owner TEXT,
				lease_expires_at TIMESTAMP
			)`,
		},
	},
	{
		Version:     3,
		Name:        "create_hourly_corridor_metrics",
		Description: "Per-corridor, per-bucket aggregates",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS hourly_corridor_metrics (
				corridor_key TEXT NOT NULL,
				hour_bucket TIMESTAMP NOT NULL,
				total_transactions BIGINT NOT NULL CHECK (total_transactions >= 0),
				successful_transactions BIGINT NOT NULL
					CHECK (successful_transactions >= 0 AND successful_transactions <= total_transactions),
				success_rate DOUBLE NOT NULL CHECK (success_rate >= 0 AND success_rate <= 100),
				total_volume BIGINT NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				PRIMARY KEY (corridor_key, hour_bucket)
			)`,
		},
	},
}

func (db *DB) runMigrations(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return err
	}

	count := 0
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return err
		}
		count++
	}
	if count > 0 {
		logging.Info().Int("count", count).Int("version", migrations[len(migrations)-1].Version).Msg("Applied database migrations")
	}
	return nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer closeWithLog(rows, "migration rows")

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (db *DB) applyMigration(ctx context.Context, m Migration) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration v%d: %w", m.Version, err)
	}
	defer rollbackOnError(tx, &err)

	for _, stmt := range m.Statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, description, applied_at) VALUES (?, ?, ?, ?)`,
		m.Version, m.Name, m.Description, db.timestamp()); err != nil {
		return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration v%d: %w", m.Version, err)
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var v int
	if err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return v, nil
}
