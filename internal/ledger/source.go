// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package ledger

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tomtom215/paycorridor/internal/models"
)

// Page is one bounded batch of records returned by FetchSince.
type Page struct {
	Records []models.RawPayment
	// NextPosition is where the following fetch starts. It equals the
	// requested position when the source had nothing new.
	NextPosition string
	// HasMore is false once the source has caught up.
	HasMore bool
}

// Source is a paginated, at-least-once feed of payment records. Records at or
// after position are returned; a record may appear on more than one page.
//
// Errors wrap pipeline.ErrSourceUnavailable.
type Source interface {
	FetchSince(ctx context.Context, position string) (Page, error)
	Name() string
}

// PositionComparer is implemented by sources whose positions have a total
// order. ComparePositions returns -1, 0 or +1.
type PositionComparer interface {
	ComparePositions(a, b string) (int, error)
}

// unwrapper is implemented by decorating sources.
type unwrapper interface {
	Unwrap() Source
}

// ComparerOf returns the position ordering of src, looking through
// decorators, or nil when positions are opaque.
func ComparerOf(src Source) PositionComparer {
	for src != nil {
		if c, ok := src.(PositionComparer); ok {
			return c
		}
		u, ok := src.(unwrapper)
		if !ok {
			return nil
		}
		src = u.Unwrap()
	}
	return nil
}

// CompareSequencePositions orders decimal sequence positions. The empty
// position (start of history) sorts before every other.
func CompareSequencePositions(a, b string) (int, error) {
	switch {
	case a == b:
		return 0, nil
	case a == "":
		return -1, nil
	case b == "":
		return 1, nil
	}
	x, err := strconv.ParseUint(a, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q: %w", a, err)
	}
	y, err := strconv.ParseUint(b, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q: %w", b, err)
	}
	switch {
	case x < y:
		return -1, nil
	case x > y:
		return 1, nil
	}
	return 0, nil
}

func formatSequence(seq uint64) string {
	return strconv.FormatUint(seq, 10)
}
