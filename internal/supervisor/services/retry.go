// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tomtom215/paycorridor/internal/config"
	"github.com/tomtom215/paycorridor/internal/logging"
	"github.com/tomtom215/paycorridor/internal/metrics"
	"github.com/tomtom215/paycorridor/internal/pipeline"
)

// RetryPolicy controls how a scheduled pipeline invocation is retried
// within a single tick.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsed      time.Duration
}

// DefaultRetryPolicy matches the config defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        5,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
		MaxElapsed:      2 * time.Minute,
	}
}

// RetryPolicyFrom builds a policy from configuration. Zero fields fall back
// to DefaultRetryPolicy.
func RetryPolicyFrom(cfg *config.RetryConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg == nil {
		return p
	}
	if cfg.MaxTries > 0 {
		p.MaxTries = cfg.MaxTries
	}
	if cfg.InitialInterval > 0 {
		p.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		p.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier >= 1 {
		p.Multiplier = cfg.Multiplier
	}
	if cfg.MaxElapsed > 0 {
		p.MaxElapsed = cfg.MaxElapsed
	}
	return p
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	return b
}

// Retry runs op under the policy. Errors that pipeline.IsRetryable rejects
// stop immediately, as does ErrConcurrentRun: another worker is already
// doing the job, so the next tick picks it up instead.
func Retry[T any](ctx context.Context, p RetryPolicy, service string, op func(context.Context) (T, error)) (T, error) {
	attempt := func() (T, error) {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, pipeline.ErrConcurrentRun) || !pipeline.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	notify := func(err error, wait time.Duration) {
		kind := pipeline.Kind(err)
		metrics.SchedulerRetries.WithLabelValues(service, kind).Inc()
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("service", service).
			Str("error_type", kind).
			Dur("retry_in", wait).
			Msg("Pipeline run failed, retrying")
	}

	return backoff.Retry(ctx, attempt,
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(p.MaxTries),
		backoff.WithMaxElapsedTime(p.MaxElapsed),
		backoff.WithNotify(notify),
	)
}
