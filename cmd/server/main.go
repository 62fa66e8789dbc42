// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/paycorridor/internal/aggregation"
	"github.com/tomtom215/paycorridor/internal/api"
	"github.com/tomtom215/paycorridor/internal/auth"
	"github.com/tomtom215/paycorridor/internal/config"
	"github.com/tomtom215/paycorridor/internal/corridor"
	"github.com/tomtom215/paycorridor/internal/events"
	"github.com/tomtom215/paycorridor/internal/indexing"
	"github.com/tomtom215/paycorridor/internal/logging"
	"github.com/tomtom215/paycorridor/internal/supervisor"
	"github.com/tomtom215/paycorridor/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(loggingConfig(&cfg.Logging))
	defer func() { _ = logging.Close() }()

	logging.Info().
		Str("version", version).
		Str("db_driver", cfg.Database.Driver).
		Bool("ledger_mock", cfg.Ledger.Mock).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting PayCorridor with supervisor tree")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, &cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	logging.Info().Str("driver", cfg.Database.Driver).Msg("Store initialized")

	keyFunc, err := corridor.ByName(cfg.Ingestion.Corridor)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid corridor key function")
	}

	source := newSource(&cfg.Ledger)
	indexer := indexing.NewService(source, st, keyFunc, indexing.Config{
		JobName:    cfg.Ingestion.JobName,
		MaxPages:   cfg.Ingestion.MaxPages,
		TimeBudget: cfg.Ingestion.TimeBudget,
		LeaseTTL:   cfg.Ingestion.LeaseTTL,
	})
	aggregator := aggregation.NewService(st)

	// Auth
	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	revocations, err := auth.NewRevocationCache(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create revocation cache")
	}
	if err := revocations.Init(ctx); err != nil {
		logging.Fatal().Err(err).Str("backend", cfg.Security.RevocationCache).Msg("Failed to initialize revocation cache")
	}
	defer func() {
		if err := revocations.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing revocation cache")
		}
	}()
	authService, err := auth.NewService(&cfg.Security, jwtManager, revocations)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize auth service")
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Events
	if cfg.NATS.Enabled && cfg.NATS.Embedded {
		natsServer, err := events.NewEmbeddedServer(&cfg.NATS)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
		}
		cfg.NATS.URL = natsServer.ClientURL()
		tree.AddMessagingService(services.NewEmbeddedNATSService(natsServer, cfg.Server.ShutdownTimeout))
		logging.Info().Str("url", cfg.NATS.URL).Msg("Embedded NATS server started")
	}
	publisher, err := events.New(&cfg.NATS)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event publisher")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event publisher")
		}
	}()

	// HTTP
	handler := api.NewHandler(api.HandlerDeps{
		Store:               st,
		Ingestion:           indexer,
		Aggregation:         aggregator,
		Auth:                authService,
		Publisher:           publisher,
		AggregationDefaults: cfg.Aggregation.RunConfig(),
		Version:             version,
	})
	router := api.NewRouter(handler, auth.NewMiddleware(authService), api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Server)))

	// Schedulers
	policy := services.RetryPolicyFrom(&cfg.Retry)
	if cfg.Ingestion.Enabled {
		tree.AddPipelineService(services.NewIngestionService(indexer, publisher, cfg.Ingestion.Interval, policy))
	} else {
		logging.Info().Msg("Scheduled ingestion disabled (INGESTION_ENABLED=false)")
	}
	if cfg.Aggregation.Enabled {
		aggSvc := services.NewAggregationService(aggregator, publisher, cfg.Aggregation.RunConfig(), cfg.Aggregation.Interval, policy)
		tree.AddPipelineService(aggSvc.OnSuccess(handler.InvalidateMetricsCache))
	} else {
		logging.Info().Msg("Scheduled aggregation disabled (AGGREGATION_ENABLED=false)")
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, addr, cfg.Server.ShutdownTimeout))

	logging.Info().Msg("Starting supervisor tree...")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}
