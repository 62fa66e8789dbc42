// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/paycorridor/internal/config"
	"github.com/tomtom215/paycorridor/internal/database"
	"github.com/tomtom215/paycorridor/internal/ledger"
	"github.com/tomtom215/paycorridor/internal/logging"
	"github.com/tomtom215/paycorridor/internal/pgstore"
	"github.com/tomtom215/paycorridor/internal/store"
)

// openStore opens the backend named by cfg.Driver.
func openStore(ctx context.Context, cfg *config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case "", config.DriverDuckDB:
		db, err := database.New(cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverPostgres:
		pg, err := pgstore.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// newSource builds the ledger source. The mock generator backdates its
// payments so the first aggregation window already has data.
func newSource(cfg *config.LedgerConfig) ledger.Source {
	var src ledger.Source
	if cfg.Mock {
		base := time.Now().UTC().Add(-time.Duration(cfg.MockPayments) * time.Minute)
		src = ledger.NewMockSource(ledger.GenerateMockPayments(cfg.MockPayments, base, cfg.StartLedger), int(cfg.PageLimit))
		logging.Warn().Int("payments", cfg.MockPayments).Msg("Using mock ledger source (LEDGER_MOCK=true)")
	} else {
		src = ledger.NewRPCSource(cfg)
		logging.Info().Str("endpoint", cfg.RPCEndpoint).Uint32("start_ledger", cfg.StartLedger).Msg("Using Stellar RPC ledger source")
	}

	if cfg.Breaker.Enabled {
		return ledger.NewCircuitBreakerSource(src, cfg.Breaker)
	}
	return src
}

func loggingConfig(cfg *config.LoggingConfig) logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = cfg.Level
	lc.Format = cfg.Format
	lc.Caller = cfg.Caller
	lc.File = logging.FileConfig{
		Path:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return lc
}
