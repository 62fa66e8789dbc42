// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package ledger

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/stellar/stellar-rpc/client"
	"github.com/stellar/stellar-rpc/protocol"
	"golang.org/x/time/rate"

	"github.com/tomtom215/paycorridor/internal/config"
	"github.com/tomtom215/paycorridor/internal/logging"
	"github.com/tomtom215/paycorridor/internal/metrics"
	"github.com/tomtom215/paycorridor/internal/pipeline"
)

const rpcSourceName = "stellar-rpc"

// RPCSource pages through ledgers of a Stellar RPC server with getLedgers and
// extracts payment operations.
//
// Positions are the decimal sequence of the next ledger to fetch. The empty
// position starts at LedgerConfig.StartLedger, or at the oldest ledger the
// server retains when that is zero.
type RPCSource struct {
	client      *client.Client
	limiter     *rate.Limiter
	passphrase  string
	startLedger uint32
	pageLimit   uint
	timeout     time.Duration
}

// NewRPCSource creates a source for cfg.RPCEndpoint.
func NewRPCSource(cfg *config.LedgerConfig) *RPCSource {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &RPCSource{
		client:      client.NewClient(cfg.RPCEndpoint, &http.Client{Timeout: timeout}),
		limiter:     rate.NewLimiter(limit, burst),
		passphrase:  cfg.NetworkPassphrase,
		startLedger: cfg.StartLedger,
		pageLimit:   cfg.PageLimit,
		timeout:     timeout,
	}
}

// Name implements Source.
func (s *RPCSource) Name() string { return rpcSourceName }

// ComparePositions implements PositionComparer.
func (s *RPCSource) ComparePositions(a, b string) (int, error) {
	return CompareSequencePositions(a, b)
}

// Close releases the RPC connection.
func (s *RPCSource) Close() error {
	return s.client.Close()
}

// FetchSince returns payments from up to pageLimit ledgers starting at
// position.
func (s *RPCSource) FetchSince(ctx context.Context, position string) (page Page, err error) {
	defer func() { metrics.RecordSourceRequest(rpcSourceName, err) }()

	if err := s.limiter.Wait(ctx); err != nil {
		return Page{}, pipeline.SourceUnavailable("rate limit wait", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start, err := s.resolveStart(reqCtx, position)
	if err != nil {
		return Page{}, err
	}

	resp, err := s.client.GetLedgers(reqCtx, protocol.GetLedgersRequest{
		StartLedger: start,
		Pagination:  &protocol.LedgerPaginationOptions{Limit: s.pageLimit},
	})
	if err != nil {
		// Asking past the newest ledger is an error on the server; treat it
		// as caught up.
		if latest, lerr := s.client.GetLatestLedger(reqCtx); lerr == nil && start > latest.Sequence {
			metrics.SourceLatestLedger.Set(float64(latest.Sequence))
			return Page{NextPosition: formatSequence(uint64(start))}, nil
		}
		return Page{}, pipeline.SourceUnavailable("get ledgers", err)
	}
	metrics.SourceLatestLedger.Set(float64(resp.LatestLedger))

	if len(resp.Ledgers) == 0 {
		return Page{NextPosition: formatSequence(uint64(start))}, nil
	}

	page = Page{}
	for _, info := range resp.Ledgers {
		lcm, err := DecodeLedgerCloseMeta(info.LedgerMetadata)
		if err != nil {
			return Page{}, pipeline.SourceUnavailable(fmt.Sprintf("decode ledger %d", info.Sequence), err)
		}
		payments, err := ExtractPayments(s.passphrase, lcm)
		if err != nil {
			return Page{}, pipeline.SourceUnavailable(fmt.Sprintf("extract ledger %d", info.Sequence), err)
		}
		page.Records = append(page.Records, payments...)
	}

	last := resp.Ledgers[len(resp.Ledgers)-1].Sequence
	page.NextPosition = formatSequence(uint64(last) + 1)
	page.HasMore = last < resp.LatestLedger

	logging.Debug().
		Uint32("start", start).
		Uint32("last", last).
		Uint32("latest", resp.LatestLedger).
		Int("records", len(page.Records)).
		Msg("Fetched ledger page")
	return page, nil
}

func (s *RPCSource) resolveStart(ctx context.Context, position string) (uint32, error) {
	if position != "" {
		seq, err := strconv.ParseUint(position, 10, 32)
		if err != nil {
			return 0, pipeline.SourceUnavailable("parse position", fmt.Errorf("invalid ledger position %q: %w", position, err))
		}
		return uint32(seq), nil
	}
	if s.startLedger > 0 {
		return s.startLedger, nil
	}
	health, err := s.client.GetHealth(ctx)
	if err != nil {
		return 0, pipeline.SourceUnavailable("get health", err)
	}
	logging.Info().
		Uint32("oldest_ledger", health.OldestLedger).
		Uint32("latest_ledger", health.LatestLedger).
		Msg("No start ledger configured, starting from oldest retained ledger")
	return health.OldestLedger, nil
}
