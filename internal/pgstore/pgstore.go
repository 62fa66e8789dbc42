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
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/paycorridor/internal/config"
	"github.com/tomtom215/paycorridor/internal/logging"
	"github.com/tomtom215/paycorridor/internal/store"
)

// Store is the PostgreSQL implementation of store.Store.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the clock used for lease expiry and row timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New connects to cfg.PostgresDSN and applies migrations.
func New(ctx context.Context, cfg *config.DatabaseConfig, opts ...Option) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if cfg.PostgresMaxConns > 0 {
		poolCfg.MaxConns = cfg.PostgresMaxConns
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &Store{pool: pool, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logging.Info().Int32("max_conns", poolCfg.MaxConns).Msg("PostgreSQL store ready")
	return s, nil
}

// Ping checks a pooled connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) timestamp() time.Time {
	return store.Timestamp(s.now())
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		corridor_key TEXT NOT NULL,
		amount BIGINT NOT NULL CHECK (amount >= 0),
		asset_code TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('successful', 'failed')),
		occurred_at TIMESTAMPTZ NOT NULL,
		ledger_sequence BIGINT NOT NULL,
		tx_hash TEXT NOT NULL DEFAULT '',
		operation_type TEXT NOT NULL DEFAULT '',
		source_account TEXT NOT NULL DEFAULT '',
		destination_account TEXT NOT NULL DEFAULT '',
		source_asset TEXT NOT NULL DEFAULT '',
		destination_asset TEXT NOT NULL DEFAULT '',
		ingested_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_occurred_at ON payments (occurred_at, id)`,
	`CREATE TABLE IF NOT EXISTS ingestion_cursors (
		job_name TEXT PRIMARY KEY,
		cursor_position TEXT,
		updated_at TIMESTAMPTZ NOT NULL,
		lease_owner TEXT,
		lease_expires_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS hourly_corridor_metrics (
		corridor_key TEXT NOT NULL,
		hour_bucket TIMESTAMPTZ NOT NULL,
		total_transactions BIGINT NOT NULL CHECK (total_transactions >= 0),
		successful_transactions BIGINT NOT NULL
			CHECK (successful_transactions >= 0 AND successful_transactions <= total_transactions),
		success_rate DOUBLE PRECISION NOT NULL CHECK (success_rate >= 0 AND success_rate <= 100),
		total_volume BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (corridor_key, hour_bucket)
	)`,
}

// schemaVersion matches the DuckDB migration count so both backends report
// the same version.
const schemaVersion = 3

// migrate creates the schema under an advisory lock so concurrent replicas
// starting together do not race on DDL.
func (s *Store) migrate(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(724511)`); err != nil {
			return fmt.Errorf("failed to take migration lock: %w", err)
		}
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2) ON CONFLICT (version) DO NOTHING`,
			schemaVersion, s.timestamp())
		if err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	})
}

// SchemaVersion returns the highest applied schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return v, nil
}
