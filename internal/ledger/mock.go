// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package ledger

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/stellar/go/amount"
	"github.com/stellar/go/toid"

	"github.com/tomtom215/paycorridor/internal/models"
	"github.com/tomtom215/paycorridor/internal/pipeline"
)

const mockSourceName = "mock"

// Mock corridor assets.
const (
	MockUSDC = "USDC:GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"
	MockEURC = "EURC:GDHU6WRG4IEQXM5NZ4BMPKOXHW76MZM4Y2IEMFDVXBSDP6SJY4ITNPP2"
)

var mockCorridors = [][2]string{
	{"native", MockUSDC},
	{MockUSDC, MockUSDC},
	{MockEURC, "native"},
}

const mockPaymentsPerLedger = 5

// GenerateMockPayments returns n deterministic payments starting at base,
// one minute apart, five per ledger from startLedger. Every seventh payment
// belongs to a failed transaction.
func GenerateMockPayments(n int, base time.Time, startLedger uint32) []models.RawPayment {
	out := make([]models.RawPayment, 0, n)
	for i := 0; i < n; i++ {
		seq := startLedger + uint32(i/mockPaymentsPerLedger) //nolint:gosec // bounded by n
		txIndex := int32(i%mockPaymentsPerLedger) + 1        //nolint:gosec // < 6
		pair := mockCorridors[i%len(mockCorridors)]

		// 1.0000000 to 100.9999999 in stroops, stable per index.
		amt, err := amount.ParseInt64(fmt.Sprintf("%d.%07d", 1+i%100, (i*7919)%10_000_000))
		if err != nil {
			panic(err) // unreachable: the format is always a valid amount
		}

		opType := OpPayment
		if pair[0] != pair[1] {
			opType = OpPathPaymentStrictSend
		}

		out = append(out, models.RawPayment{
			ID:                 strconv.FormatInt(toid.New(int32(seq), txIndex, 1).ToInt64(), 10), //nolint:gosec // test ledgers fit int32
			LedgerSequence:     seq,
			OccurredAt:         base.Add(time.Duration(i) * time.Minute).UTC(),
			TxHash:             fmt.Sprintf("%064x", i+1),
			OperationType:      opType,
			SourceAccount:      fmt.Sprintf("GSRC%04d", i%13),
			DestinationAccount: fmt.Sprintf("GDST%04d", i%17),
			SourceAsset:        pair[0],
			DestinationAsset:   pair[1],
			Amount:             amt,
			Successful:         i%7 != 6,
		})
	}
	return out
}

// MockSource serves a fixed slice of payments in pages. Positions are the
// decimal index of the next record. It can be told to fail, to re-deliver
// overlapping records, or to report a bogus next position.
type MockSource struct {
	mu        sync.Mutex
	records   []models.RawPayment
	pageSize  int
	overlap   int
	failNext  []error
	calls     int
	rewindTo  *string
	positions []string
}

// NewMockSource returns a source that serves records pageSize at a time.
func NewMockSource(records []models.RawPayment, pageSize int) *MockSource {
	if pageSize < 1 {
		pageSize = 1
	}
	return &MockSource{records: records, pageSize: pageSize}
}

// WithOverlap makes every page after the first start n records early, so
// records are delivered more than once.
func (m *MockSource) WithOverlap(n int) *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overlap = n
	return m
}

// FailNext queues errors returned by the next fetches, in order. A nil entry
// lets that fetch succeed.
func (m *MockSource) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = append(m.failNext, errs...)
}

// ReturnNextPosition makes the next successful fetch report position as its
// NextPosition.
func (m *MockSource) ReturnNextPosition(position string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rewindTo = &position
}

// Calls returns the number of FetchSince calls.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Positions returns the positions FetchSince was called with.
func (m *MockSource) Positions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.positions...)
}

// Name implements Source.
func (m *MockSource) Name() string { return mockSourceName }

// ComparePositions implements PositionComparer.
func (m *MockSource) ComparePositions(a, b string) (int, error) {
	return CompareSequencePositions(a, b)
}

// FetchSince implements Source.
func (m *MockSource) FetchSince(ctx context.Context, position string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, pipeline.SourceUnavailable("mock fetch", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.positions = append(m.positions, position)

	if len(m.failNext) > 0 {
		err := m.failNext[0]
		m.failNext = m.failNext[1:]
		if err != nil {
			return Page{}, pipeline.SourceUnavailable("mock fetch", err)
		}
	}

	start := 0
	if position != "" {
		n, err := strconv.Atoi(position)
		if err != nil || n < 0 {
			return Page{}, pipeline.SourceUnavailable("mock fetch", fmt.Errorf("invalid position %q", position))
		}
		start = n
	}
	if start > len(m.records) {
		start = len(m.records)
	}

	from := start
	if start > 0 && m.overlap > 0 {
		from = max(0, start-m.overlap)
	}
	end := min(start+m.pageSize, len(m.records))

	page := Page{
		Records:      append([]models.RawPayment(nil), m.records[from:end]...),
		NextPosition: strconv.Itoa(end),
		HasMore:      end < len(m.records),
	}
	if start == end {
		page.Records = nil
		page.NextPosition = position
	}
	if m.rewindTo != nil {
		page.NextPosition = *m.rewindTo
		m.rewindTo = nil
	}
	return page, nil
}
