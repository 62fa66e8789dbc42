// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

// Package corridor derives the grouping key under which payments are
// aggregated.
//
// A KeyFunc must be deterministic and depend only on the raw payment, since
// the key is stored with the payment and never recomputed. It must never
// return an empty string; Apply substitutes Unknown when it does.
package corridor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/paycorridor/internal/models"
)

// Unknown is the key used when a KeyFunc cannot classify a payment.
const Unknown = "unknown"

// KeyFunc maps a raw payment to its corridor key.
type KeyFunc func(models.RawPayment) string

// AssetPair keys by "<source asset>-><destination asset>". Plain payments
// have the same asset on both sides; path payments may differ.
func AssetPair(p models.RawPayment) string {
	src, dst := p.SourceAsset, p.DestinationAsset
	if src == "" && dst == "" {
		return ""
	}
	if src == "" {
		src = dst
	}
	if dst == "" {
		dst = src
	}
	return src + "->" + dst
}

// AccountPair keys by "<source account>-><destination account>".
func AccountPair(p models.RawPayment) string {
	if p.SourceAccount == "" || p.DestinationAccount == "" {
		return ""
	}
	return p.SourceAccount + "->" + p.DestinationAccount
}

// DestinationAsset keys by the asset delivered, ignoring the source side.
func DestinationAsset(p models.RawPayment) string {
	if p.DestinationAsset != "" {
		return p.DestinationAsset
	}
	return p.SourceAsset
}

var registry = map[string]KeyFunc{
	"asset_pair":        AssetPair,
	"account_pair":      AccountPair,
	"destination_asset": DestinationAsset,
}

// ByName returns a registered KeyFunc.
func ByName(name string) (KeyFunc, error) {
	fn, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown corridor key function %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return fn, nil
}

// Names lists registered KeyFunc names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Apply runs fn and substitutes Unknown for an empty key.
func Apply(fn KeyFunc, p models.RawPayment) string {
	if key := fn(p); key != "" {
		return key
	}
	return Unknown
}

// AssetCode returns the code part of a canonical asset ("native" for XLM).
func AssetCode(asset string) string {
	if asset == "" || asset == "native" {
		return "XLM"
	}
	code, _, _ := strings.Cut(asset, ":")
	return code
}

// ToPayment builds the stored form of p under key fn.
func ToPayment(fn KeyFunc, p models.RawPayment) models.Payment {
	asset := p.DestinationAsset
	if asset == "" {
		asset = p.SourceAsset
	}
	return models.Payment{
		ID:                 p.ID,
		CorridorKey:        Apply(fn, p),
		Amount:             p.Amount,
		AssetCode:          AssetCode(asset),
		Status:             models.StatusFromOutcome(p.Successful),
		OccurredAt:         p.OccurredAt.UTC(),
		LedgerSequence:     p.LedgerSequence,
		TxHash:             p.TxHash,
		OperationType:      p.OperationType,
		SourceAccount:      p.SourceAccount,
		DestinationAccount: p.DestinationAccount,
		SourceAsset:        p.SourceAsset,
		DestinationAsset:   p.DestinationAsset,
	}
}
