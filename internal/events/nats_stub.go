// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

//go:build !nats

package events

import (
	"context"
	"fmt"

	"github.com/tomtom215/paycorridor/internal/config"
)

// NATSPublisher is a stub when NATS dependencies are not compiled in.
// Build with -tags=nats to enable it.
type NATSPublisher struct{}

// NewNATSPublisher returns an error in builds without the nats tag.
func NewNATSPublisher(*config.NATSConfig) (*NATSPublisher, error) {
	return nil, fmt.Errorf("NATS publisher not available: build with -tags=nats")
}

// Publish implements Publisher.
func (*NATSPublisher) Publish(context.Context, *RunEvent) error {
	return fmt.Errorf("NATS publisher not available: build with -tags=nats")
}

// Close implements Publisher.
func (*NATSPublisher) Close() error { return nil }
