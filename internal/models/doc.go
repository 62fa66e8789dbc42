// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

/*
Package models defines the data structures shared across PayCorridor.

Pipeline models:

  - RawPayment: a payment operation as decoded from the ledger
  - Payment: a stored, deduplicated payment with its corridor key
  - IngestionCursor: the resume position and lease of an ingestion job
  - HourlyCorridorMetric: per-corridor, per-bucket aggregate row
  - AggregationConfig: bucket width, lookback window and read batch size

API models:

  - APIResponse, Metadata, APIError: the HTTP response envelope
  - LoginRequest, RefreshRequest, TokenPair: authentication bodies

Amounts are int64 minor units throughout; timestamps are UTC.
*/
package models
