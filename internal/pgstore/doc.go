// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

// Package pgstore implements store.Store on PostgreSQL through a pgx
// connection pool. It is selected with database.driver=postgres and keeps the
// same tables and semantics as the DuckDB store, with TIMESTAMPTZ columns and
// pgx batches for multi-row writes.
//
// Integration tests run against a disposable container and need the
// integration build tag:
//
//	go test -tags integration ./internal/pgstore/...
package pgstore
