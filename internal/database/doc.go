// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

/*
Package database is the DuckDB implementation of store.Store.

Tables:

  - payments: deduplicated payment operations, primary key id
  - ingestion_cursors: one row per ingestion job with its committed
    position and the single-runner lease (lease_owner, lease_expires_at)
  - hourly_corridor_metrics: aggregates keyed by (corridor_key, hour_bucket)
  - schema_migrations: applied schema versions

Writes:

Payment inserts use ON CONFLICT (id) DO NOTHING, so re-delivered records
are absorbed. CommitIngestion advances the cursor and inserts the page in one
transaction, guarded by the caller's lease, and pushes the lease expiry out
by its ttl. The lease itself is a conditional UPDATE on the cursor row, so two
runners sharing the file cannot both hold it. Metric rows are replaced whole
with ON CONFLICT DO UPDATE when their counts change.

DuckDB uses optimistic concurrency; writes that lose a race fail with a
transaction conflict and are retried a few times with a short backoff.

Timestamps are stored as TIMESTAMP in UTC with microsecond precision (see
store.Timestamp), which keeps the ICU extension out of the picture.

Usage:

	db, err := database.New(&config.DatabaseConfig{Path: "/data/paycorridor.duckdb", MaxMemory: "1GB"})
	if err != nil {
	    return err
	}
	defer db.Close()
*/
package database
