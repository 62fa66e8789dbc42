// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

/*
Package main is the entry point for the PayCorridor server.

PayCorridor ingests payment operations from a ledger RPC endpoint into a
payment store, keeps a resumable cursor per ingestion job, and rolls the
payments up into hourly per-corridor success and volume metrics served over
an operator API.

# Application Architecture

	RootSupervisor ("paycorridor")
	├── PipelineSupervisor ("pipeline-layer")
	│   ├── IngestionService (INGESTION_ENABLED)
	│   └── AggregationService (AGGREGATION_ENABLED)
	├── MessagingSupervisor ("messaging-layer")
	│   └── EmbeddedNATSService (NATS_EMBEDDED, -tags nats)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Initialization order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog, optionally rotated to a file with lumberjack
 3. Store: DuckDB (default) or PostgreSQL via pgx
 4. Ledger source: Stellar RPC or the mock generator, behind a circuit breaker
 5. Pipelines: indexing and aggregation services
 6. Auth: JWT manager, revocation cache (memory, badger or redis)
 7. Run events: NATS JetStream publisher, optional embedded server
 8. Supervisor tree and HTTP server

# Configuration

	# Store
	DB_DRIVER=duckdb             # duckdb or postgres
	DUCKDB_PATH=/data/paycorridor.duckdb
	POSTGRES_DSN=postgres://...

	# Ledger
	STELLAR_RPC_URL=https://soroban-testnet.stellar.org
	STELLAR_START_LEDGER=0       # 0 = oldest retained ledger
	LEDGER_MOCK=false            # true serves generated payments

	# Pipelines
	INGESTION_INTERVAL=1m
	INGESTION_CORRIDOR=asset_pair
	AGGREGATION_INTERVAL=5m
	AGGREGATION_LOOKBACK_HOURS=24

	# API
	HTTP_PORT=8080
	JWT_SECRET=<32+ chars>
	ADMIN_USERNAME=admin
	ADMIN_PASSWORD_HASH=<bcrypt>

	# Events
	NATS_ENABLED=false
	NATS_EMBEDDED=false

# Build Tags

	go build ./cmd/server                  # no NATS, events are dropped
	go build -tags nats ./cmd/server       # JetStream run events

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. Schedulers finish their
current page, the HTTP server drains for server.shutdown_timeout, and the
store, revocation cache and event publisher are closed in that order.
*/
package main
