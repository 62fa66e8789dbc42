// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

// Package pipeline holds the error taxonomy shared by the ingestion and
// aggregation services and their callers.
//
// Every error returned by a pipeline operation wraps exactly one of the
// sentinels below, so callers can decide on retry with errors.Is:
//
//	if errors.Is(err, pipeline.ErrConcurrentRun) {
//	    // another instance holds the lease; try again next tick
//	}
package pipeline

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable reports a ledger transport or timeout failure.
	// No state was mutated. Retryable.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrStorage reports a failed read, write or transaction. Atomicity
	// guarantees no partial cursor/payment write. Retryable.
	ErrStorage = errors.New("storage error")

	// ErrConcurrentRun reports that another runner holds the ingestion lease.
	ErrConcurrentRun = errors.New("concurrent run conflict")

	// ErrInvalidConfig reports unusable run parameters. Not retryable.
	ErrInvalidConfig = errors.New("invalid config")
)

// kindError tags a cause with a taxonomy sentinel while keeping both
// reachable through errors.Is / errors.As.
type kindError struct {
	kind error
	op   string
	err  error
}

func (e *kindError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %v", e.op, e.kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.op, e.kind, e.err)
}

func (e *kindError) Unwrap() []error {
	if e.err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.err}
}

func wrap(kind error, op string, err error) error {
	if err != nil && errors.Is(err, kind) {
		return err
	}
	return &kindError{kind: kind, op: op, err: err}
}

// SourceUnavailable wraps err as ErrSourceUnavailable.
func SourceUnavailable(op string, err error) error { return wrap(ErrSourceUnavailable, op, err) }

// Storage wraps err as ErrStorage.
func Storage(op string, err error) error { return wrap(ErrStorage, op, err) }

// ConcurrentRun wraps err as ErrConcurrentRun.
func ConcurrentRun(op string, err error) error { return wrap(ErrConcurrentRun, op, err) }

// InvalidConfig wraps err as ErrInvalidConfig.
func InvalidConfig(op string, err error) error { return wrap(ErrInvalidConfig, op, err) }

// IsRetryable reports whether a caller may retry the operation that
// returned err. Cancellation is not retryable.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, ErrInvalidConfig):
		return false
	case errors.Is(err, ErrSourceUnavailable),
		errors.Is(err, ErrStorage),
		errors.Is(err, ErrConcurrentRun):
		return true
	default:
		return false
	}
}

// Kind returns a stable label for err, used as a metric label and in API
// error codes.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrConcurrentRun):
		return "concurrent_run"
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}
