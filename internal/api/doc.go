// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

/*
Package api exposes the operator HTTP API.

Routes (chi):

	GET  /health                   liveness summary
	GET  /health/live              always 200 while the process serves
	GET  /health/ready             200 when the store answers a ping
	GET  /metrics                  Prometheus exposition

	POST /api/auth/login           username + password -> token pair
	POST /api/auth/refresh         refresh token -> new pair (old one revoked)
	POST /api/auth/logout          revoke a refresh token

	GET  /api/v1/metrics/hourly    ?start=&end=&corridor=
	GET  /api/v1/ingestion/cursor  current cursor for the ingestion job
	POST /api/v1/ingestion/run     bearer token required
	POST /api/v1/aggregation/run   bearer token required

Every JSON body uses the models.APIResponse envelope. Pipeline errors map
to stable codes: CONCURRENT_RUN (409), SOURCE_UNAVAILABLE (502),
STORAGE_ERROR (500), INVALID_CONFIG (400).

Hourly metric reads over an explicit start and end are served from a short
TTL cache.LRU. InvalidateMetricsCache clears it; the aggregation endpoint and
the scheduled aggregation service both call it after a successful run.
*/
package api
