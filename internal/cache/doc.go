// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

/*
Package cache provides an in-memory LRU cache with TTL expiration.

The operator API keeps recent hourly-metric query results here so repeated
dashboard polls over the same explicit range do not hit the store. Entries
live for a short TTL and the whole cache is cleared after every successful
aggregation run, so a reader never sees rows older than the last rollup for
longer than that TTL.

# Usage

	c := cache.NewLRU[[]models.HourlyCorridorMetric]("hourly_metrics", 256, 30*time.Second)
	if rows, ok := c.Get(key); ok {
	    return rows
	}
	rows, err := store.QueryHourlyMetricsInRange(ctx, start, end)
	if err == nil {
	    c.Add(key, rows)
	}

Cached values are shared between readers and must be treated as read-only.

# Metrics

Lookups are counted in paycorridor_cache_lookups_total{cache, result}.
*/
package cache
