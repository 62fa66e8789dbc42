// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

// Package aggregation computes hourly corridor metrics from stored payments
// over a sliding lookback window.
package aggregation
