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

// EmbeddedServer is a stub when NATS dependencies are not compiled in.
type EmbeddedServer struct{}

// NewEmbeddedServer returns an error in builds without the nats tag.
func NewEmbeddedServer(*config.NATSConfig) (*EmbeddedServer, error) {
	return nil, fmt.Errorf("embedded NATS server not available: build with -tags=nats")
}

// ClientURL returns "".
func (*EmbeddedServer) ClientURL() string { return "" }

// Shutdown is a no-op.
func (*EmbeddedServer) Shutdown(context.Context) error { return nil }
