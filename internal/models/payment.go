// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package models

import (
	"fmt"
	"time"
)

// PaymentStatus is the ledger outcome of a payment operation.
type PaymentStatus string

const (
	PaymentSuccessful PaymentStatus = "successful"
	PaymentFailed     PaymentStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s PaymentStatus) Valid() bool {
	return s == PaymentSuccessful || s == PaymentFailed
}

// StatusFromOutcome maps a transaction success flag to a PaymentStatus.
func StatusFromOutcome(successful bool) PaymentStatus {
	if successful {
		return PaymentSuccessful
	}
	return PaymentFailed
}

// RawPayment is a payment operation as returned by a ledger source, before a
// corridor key has been derived.
//
// Amount is in the asset's minor units (stroops for Stellar, 10^-7).
// Assets use the canonical "native" or "CODE:ISSUER" form.
type RawPayment struct {
	ID                 string    `json:"id"`
	LedgerSequence     uint32    `json:"ledger_sequence"`
	OccurredAt         time.Time `json:"occurred_at"`
	TxHash             string    `json:"tx_hash"`
	OperationType      string    `json:"operation_type"`
	SourceAccount      string    `json:"source_account"`
	DestinationAccount string    `json:"destination_account"`
	SourceAsset        string    `json:"source_asset"`
	DestinationAsset   string    `json:"destination_asset"`
	Amount             int64     `json:"amount"`
	Successful         bool      `json:"successful"`
}

// Payment is a stored, deduplicated payment operation. ID is the dedup key.
// Once written a Payment is never modified by the pipeline.
type Payment struct {
	ID                 string        `json:"id"`
	CorridorKey        string        `json:"corridor_key"`
	Amount             int64         `json:"amount"`
	AssetCode          string        `json:"asset_code"`
	Status             PaymentStatus `json:"status"`
	OccurredAt         time.Time     `json:"occurred_at"`
	LedgerSequence     uint32        `json:"ledger_sequence"`
	TxHash             string        `json:"tx_hash"`
	OperationType      string        `json:"operation_type"`
	SourceAccount      string        `json:"source_account"`
	DestinationAccount string        `json:"destination_account"`
	SourceAsset        string        `json:"source_asset"`
	DestinationAsset   string        `json:"destination_asset"`
}

// Validate checks the fields the stores rely on.
func (p *Payment) Validate() error {
	switch {
	case p.ID == "":
		return fmt.Errorf("payment id is required")
	case p.CorridorKey == "":
		return fmt.Errorf("payment %s: corridor key is required", p.ID)
	case p.Amount < 0:
		return fmt.Errorf("payment %s: negative amount %d", p.ID, p.Amount)
	case !p.Status.Valid():
		return fmt.Errorf("payment %s: invalid status %q", p.ID, p.Status)
	case p.OccurredAt.IsZero():
		return fmt.Errorf("payment %s: occurred_at is required", p.ID)
	}
	return nil
}

// PaymentCursor is the keyset position after the last row of a page.
type PaymentCursor struct {
	OccurredAt time.Time `json:"occurred_at"`
	ID         string    `json:"id"`
}

// PaymentPage is one chunk of a time-ordered payment scan.
type PaymentPage struct {
	Payments []Payment
	// Next is nil when the range is exhausted.
	Next *PaymentCursor
}
