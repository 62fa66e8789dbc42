// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/paycorridor/internal/pipeline"
)

// triggerSchedule tags run events produced by the schedulers.
const triggerSchedule = "schedule"

// runLoop calls tick immediately and then once per interval until ctx is
// done. A tick returning an error ends the loop with that error so the
// supervisor can restart the service.
func runLoop(ctx context.Context, interval time.Duration, tick func(context.Context) error) error {
	if err := tick(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := tick(ctx); err != nil {
				return err
			}
		}
	}
}

// tickError decides whether a failed run should take the service down.
// Invalid configuration can never succeed, so the supervisor is told not to
// restart. Everything else has already been retried; the loop keeps going
// and the next tick tries again.
func tickError(service string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pipeline.ErrInvalidConfig):
		return fmt.Errorf("%s: %w: %w", service, err, suture.ErrDoNotRestart)
	default:
		return nil
	}
}
