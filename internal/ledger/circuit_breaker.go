// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package ledger

import (
	"context"
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/paycorridor/internal/config"
	"github.com/tomtom215/paycorridor/internal/logging"
	"github.com/tomtom215/paycorridor/internal/metrics"
	"github.com/tomtom215/paycorridor/internal/pipeline"
)

// CircuitBreakerSource wraps a Source with a circuit breaker so a failing RPC
// server is not hammered by every scheduled run.
//
// The breaker uses real time for its interval and timeout; tests that need
// to observe recovery wait on short timeouts instead of faking the clock.
type CircuitBreakerSource struct {
	source Source
	cb     *gobreaker.CircuitBreaker[Page]
	name   string
}

// NewCircuitBreakerSource wraps source. Defaults: 3 half-open requests, 1m
// counting interval, 2m open timeout, trip at 60% failures over at least 10
// requests.
func NewCircuitBreakerSource(source Source, cfg config.BreakerConfig) *CircuitBreakerSource {
	name := source.Name() + "-source"
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 3
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 10
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = 0.6
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[Page](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.FailureRatio {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", ratio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", stateToString(from)).Str("to", stateToString(to)).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
		},
		// A cancelled run says nothing about the server's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &CircuitBreakerSource{source: source, cb: cb, name: name}
}

// Name implements Source.
func (c *CircuitBreakerSource) Name() string { return c.source.Name() }

// Unwrap returns the wrapped source.
func (c *CircuitBreakerSource) Unwrap() Source { return c.source }

// State returns the breaker state name.
func (c *CircuitBreakerSource) State() string { return stateToString(c.cb.State()) }

// FetchSince implements Source. Rejections while open are reported as
// ErrSourceUnavailable.
func (c *CircuitBreakerSource) FetchSince(ctx context.Context, position string) (Page, error) {
	page, err := c.cb.Execute(func() (Page, error) {
		return c.source.FetchSince(ctx, position)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
			logging.Warn().Err(err).Str("breaker", c.name).Msg("[CIRCUIT BREAKER] Request rejected")
			return Page{}, pipeline.SourceUnavailable("circuit breaker", err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		return Page{}, pipeline.SourceUnavailable("fetch", err)
	}
	metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	return page, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
