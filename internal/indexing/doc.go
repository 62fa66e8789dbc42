// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

// Package indexing ingests payment operations from a ledger source.
//
// A run is a loop of fetch, map and commit. The commit writes the page's
// payments (insert-or-ignore by id) and the new cursor position in one
// transaction, so the stored cursor never points past data that is not
// stored. Re-delivered records are counted as duplicates and skipped.
//
// Runs of the same job name are serialized through a lease on the cursor
// row rather than an in-process mutex, which also covers several processes
// sharing one database. Every run takes the lease under its own owner id, so
// two runs on one Service exclude each other too. Each commit renews the
// lease, so a run without a time budget keeps it for as long as it makes
// progress. The service does not retry; the scheduler in
// internal/supervisor/services decides what to do with each error kind.
package indexing
