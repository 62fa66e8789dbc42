// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/paycorridor/internal/config"
	"github.com/tomtom215/paycorridor/internal/pipeline"
)

func TestCompareSequencePositions(t *testing.T) {
	tests := []struct {
		a, b    string
		want    int
		wantErr bool
	}{
		{"", "", 0, false},
		{"", "1", -1, false},
		{"1", "", 1, false},
		{"9", "10", -1, false},
		{"10", "9", 1, false},
		{"42", "42", 0, false},
		{"x", "1", 0, true},
		{"1", "-1", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got, err := CompareSequencePositions(tt.a, tt.b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("CompareSequencePositions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

type opaqueSource struct{}

func (opaqueSource) FetchSince(context.Context, string) (Page, error) { return Page{}, nil }
func (opaqueSource) Name() string                                     { return "opaque" }

func TestComparerOf(t *testing.T) {
	mock := NewMockSource(nil, 1)
	if ComparerOf(mock) == nil {
		t.Error("mock source should expose a comparer")
	}

	wrapped := NewCircuitBreakerSource(mock, config.BreakerConfig{Timeout: time.Second})
	if ComparerOf(wrapped) == nil {
		t.Error("comparer should be found through the circuit breaker")
	}

	if ComparerOf(opaqueSource{}) != nil {
		t.Error("opaque source should have no comparer")
	}
	if ComparerOf(NewCircuitBreakerSource(opaqueSource{}, config.BreakerConfig{})) != nil {
		t.Error("wrapped opaque source should have no comparer")
	}
}

func TestMockSource_Pages(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	src := NewMockSource(GenerateMockPayments(7, base, 100), 3)
	ctx := context.Background()

	var (
		position string
		got      int
		pages    int
	)
	for {
		page, err := src.FetchSince(ctx, position)
		if err != nil {
			t.Fatalf("FetchSince(%q) error = %v", position, err)
		}
		pages++
		got += len(page.Records)
		position = page.NextPosition
		if !page.HasMore {
			break
		}
	}
	if got != 7 || pages != 3 {
		t.Errorf("got %d records in %d pages, want 7 in 3", got, pages)
	}
	if position != "7" {
		t.Errorf("final position = %q, want 7", position)
	}

	// Caught up: empty page, same position.
	page, err := src.FetchSince(ctx, position)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Records) != 0 || page.NextPosition != position || page.HasMore {
		t.Errorf("caught-up page = %+v", page)
	}
}

func TestMockSource_Overlap(t *testing.T) {
	src := NewMockSource(GenerateMockPayments(6, time.Unix(0, 0), 1), 3).WithOverlap(2)
	page, err := src.FetchSince(context.Background(), "3")
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Records) != 5 {
		t.Errorf("got %d records, want 5 (2 re-delivered)", len(page.Records))
	}
}

func TestMockSource_FailNext(t *testing.T) {
	src := NewMockSource(GenerateMockPayments(2, time.Unix(0, 0), 1), 1)
	src.FailNext(errors.New("boom"), nil)

	_, err := src.FetchSince(context.Background(), "")
	if !errors.Is(err, pipeline.ErrSourceUnavailable) {
		t.Errorf("first fetch error = %v, want ErrSourceUnavailable", err)
	}
	if _, err := src.FetchSince(context.Background(), ""); err != nil {
		t.Errorf("second fetch error = %v, want nil", err)
	}
	if src.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", src.Calls())
	}
}

func TestGenerateMockPayments(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := GenerateMockPayments(50, base, 1000)
	b := GenerateMockPayments(50, base, 1000)

	ids := make(map[string]bool)
	failed := 0
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("payment %d not deterministic", i)
		}
		if ids[a[i].ID] {
			t.Fatalf("duplicate id %s", a[i].ID)
		}
		ids[a[i].ID] = true
		if a[i].Amount <= 0 {
			t.Errorf("payment %d amount = %d", i, a[i].Amount)
		}
		if !a[i].Successful {
			failed++
		}
	}
	if failed == 0 || failed == len(a) {
		t.Errorf("failed = %d, want a mix", failed)
	}
	if got := a[49].OccurredAt.Sub(base); got != 49*time.Minute {
		t.Errorf("last payment offset = %v, want 49m", got)
	}
}
