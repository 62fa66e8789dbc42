// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

// Package testinfra provides containers for integration tests.
//
// This package uses testcontainers-go to run disposable PostgreSQL and Redis
// instances, so the pgx store and the Redis revocation cache are exercised
// against real servers:
//
//	func TestStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//
//	    s, err := pgstore.New(ctx, &config.DatabaseConfig{PostgresDSN: pg.DSN, PostgresMaxConns: 4})
//	    // ...
//	}
//
// # Build Tags
//
// Everything here is behind the integration tag:
//
//	go test -tags integration ./...
//
// Tests call SkipIfNoDocker first, so the tag is safe on machines without a
// Docker daemon.
package testinfra
