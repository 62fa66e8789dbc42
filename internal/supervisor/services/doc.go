// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

/*
Package services provides suture.Service implementations for PayCorridor.

Each service adapts a component lifecycle to suture's context-aware Serve
method and implements fmt.Stringer so supervisor events name it.

# Available Services

IngestionService:
  - Runs indexing.Service.RunPaymentIngestion immediately and then on a fixed interval
  - Retries source and storage failures under a RetryPolicy
  - Skips a tick when the job lease is held by another worker

AggregationService:
  - Runs aggregation.Service.RunHourlyAggregation on a fixed interval
  - Same retry behavior as ingestion

HTTPServerService:
  - Wraps *http.Server with graceful shutdown

EmbeddedNATSService:
  - Shuts down the embedded NATS server with the tree

# Retry and Restart

Retries happen inside a tick with cenkalti/backoff/v5. A failure that
survives the policy is logged and the service waits for the next tick.
Invalid configuration is wrapped with suture.ErrDoNotRestart, which removes
the service from its supervisor instead of restarting it in a loop.

# Run Events

Every finished attempt is published through events.Publisher with the
"schedule" trigger. Publishing never fails a run.
*/
package services
