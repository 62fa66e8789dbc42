// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/paycorridor/internal/logging"
)

// EmbeddedNATS matches *events.EmbeddedServer.
type EmbeddedNATS interface {
	ClientURL() string
	Shutdown(ctx context.Context) error
}

// EmbeddedNATSService keeps an already-started embedded NATS server under
// supervision and shuts it down with the tree.
//
// The server is started before the tree so that the event publisher can
// connect during wiring. Serve only parks until ctx is canceled.
type EmbeddedNATSService struct {
	server          EmbeddedNATS
	shutdownTimeout time.Duration
	name            string
}

// NewEmbeddedNATSService wraps server.
func NewEmbeddedNATSService(server EmbeddedNATS, shutdownTimeout time.Duration) *EmbeddedNATSService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &EmbeddedNATSService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "nats-server",
	}
}

// Serve implements suture.Service.
func (s *EmbeddedNATSService) Serve(ctx context.Context) error {
	logging.Info().Str("url", s.server.ClientURL()).Msg("Embedded NATS server supervised")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("nats server shutdown failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture logs.
func (s *EmbeddedNATSService) String() string {
	return s.name
}
