// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

/*
Package supervisor provides process supervision for PayCorridor using suture v4.

# Overview

Long-running services are grouped into layers that restart independently:

	RootSupervisor ("paycorridor")
	├── PipelineSupervisor ("pipeline-layer")
	│   ├── IngestionService (if ingestion.enabled)
	│   └── AggregationService (if aggregation.enabled)
	├── MessagingSupervisor ("messaging-layer")
	│   └── EmbeddedNATSService (if nats.embedded, build tag: nats)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with suture's failure threshold and backoff.
A service returning an error that wraps suture.ErrDoNotRestart is removed
instead; the schedulers do this for invalid configuration.

Supervisor events (start, failure, backoff) are logged through sutureslog
into the zerolog-backed slog handler from internal/logging.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddPipelineService(services.NewIngestionService(indexer, publisher, interval, policy))
	tree.AddAPIService(services.NewHTTPServerService(server, addr, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# See Also

  - internal/supervisor/services: suture.Service implementations
  - github.com/thejerf/suture/v4
*/
package supervisor
