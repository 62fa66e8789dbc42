// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/paycorridor/internal/models"
	"github.com/tomtom215/paycorridor/internal/pipeline"
)

// HourlyMetricsResponse is the data of GET /api/v1/metrics/hourly.
type HourlyMetricsResponse struct {
	Start    time.Time                     `json:"start"`
	End      time.Time                     `json:"end"`
	Corridor string                        `json:"corridor,omitempty"`
	Count    int                           `json:"count"`
	Metrics  []models.HourlyCorridorMetric `json:"metrics"`
}

// HourlyMetrics returns hourly corridor metrics with start <= hour_bucket <= end,
// ordered by bucket then corridor key. corridor filters to one key.
func (h *Handler) HourlyMetrics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := hourlyMetricsRequestFrom(r)
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}
	from, to, err := req.Range(time.Now())
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}

	rows, err := h.hourlyMetrics(r.Context(), from, to, req.Start != "" && req.End != "")
	if err != nil {
		respondServiceError(w, r, pipeline.Storage("query hourly metrics", err), nil)
		return
	}
	if req.Corridor != "" {
		rows = filterCorridor(rows, req.Corridor)
	}
	if rows == nil {
		rows = []models.HourlyCorridorMetric{}
	}

	respondSuccess(w, http.StatusOK, HourlyMetricsResponse{
		Start:    from,
		End:      to,
		Corridor: req.Corridor,
		Count:    len(rows),
		Metrics:  rows,
	}, start)
}

// hourlyMetrics reads through the metrics cache. Only explicit ranges are
// cached; a defaulted end moves with the clock and would never hit.
func (h *Handler) hourlyMetrics(ctx context.Context, from, to time.Time, cacheable bool) ([]models.HourlyCorridorMetric, error) {
	if h.metricsCache == nil || !cacheable {
		return h.store.QueryHourlyMetricsInRange(ctx, from, to)
	}
	key := from.Format(time.RFC3339) + "|" + to.Format(time.RFC3339)
	if rows, ok := h.metricsCache.Get(key); ok {
		return rows, nil
	}
	rows, err := h.store.QueryHourlyMetricsInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	h.metricsCache.Add(key, rows)
	return rows, nil
}

// filterCorridor returns a new slice; rows may be shared with the cache.
func filterCorridor(rows []models.HourlyCorridorMetric, corridor string) []models.HourlyCorridorMetric {
	out := make([]models.HourlyCorridorMetric, 0, len(rows))
	for _, m := range rows {
		if m.CorridorKey == corridor {
			out = append(out, m)
		}
	}
	return out
}
