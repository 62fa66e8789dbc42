// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package models

import "time"

// IngestionCursor is the resume point of one ingestion job.
//
// Position is opaque outside the ledger source. It only moves forward and is
// written in the same transaction as the payments it covers. LeaseOwner and
// LeaseExpiresAt implement the single-runner lease.
type IngestionCursor struct {
	JobName        string     `json:"job_name"`
	Position       string     `json:"position"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LeaseOwner     string     `json:"lease_owner,omitempty"`
	LeaseExpiresAt *time.Time `json:"lease_expires_at,omitempty"`
}

// HourlyCorridorMetric is the aggregate of one corridor over one bucket.
// Rows are recomputed and overwritten whole on every run that covers them.
type HourlyCorridorMetric struct {
	CorridorKey            string    `json:"corridor_key"`
	HourBucket             time.Time `json:"hour_bucket"`
	TotalTransactions      int64     `json:"total_transactions"`
	SuccessfulTransactions int64     `json:"successful_transactions"`
	SuccessRate            float64   `json:"success_rate"`
	TotalVolume            int64     `json:"total_volume"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// SuccessRate returns successful/total*100, or 0 when total is not positive.
// The result is clamped to [0, 100].
func SuccessRate(successful, total int64) float64 {
	if total <= 0 || successful <= 0 {
		return 0
	}
	if successful >= total {
		return 100
	}
	return float64(successful) / float64(total) * 100
}

// AggregationConfig parameterizes one aggregation run.
type AggregationConfig struct {
	IntervalHours int `json:"interval_hours" koanf:"interval_hours" validate:"gt=0"`
	LookbackHours int `json:"lookback_hours" koanf:"lookback_hours" validate:"gt=0"`
	BatchSize     int `json:"batch_size" koanf:"batch_size" validate:"gt=0"`
}
