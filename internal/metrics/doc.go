// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

// Package metrics defines the Prometheus collectors exported on /metrics.
//
// Collectors are registered with promauto at package init. Code records
// values through the Record* helpers rather than touching vectors directly
// so label sets stay consistent.
package metrics
