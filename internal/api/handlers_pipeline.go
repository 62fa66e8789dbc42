// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/paycorridor/internal/events"
	"github.com/tomtom215/paycorridor/internal/logging"
	"github.com/tomtom215/paycorridor/internal/models"
	"github.com/tomtom215/paycorridor/internal/pipeline"
)

const triggerAPI = "api"

// IngestionCursor returns the stored cursor for the ingestion job, or 404
// before the first committed page.
func (h *Handler) IngestionCursor(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	job := h.ingestion.JobName()

	cursor, err := h.store.GetCursor(r.Context(), job)
	if err != nil {
		respondServiceError(w, r, pipeline.Storage("get cursor", err), nil)
		return
	}
	if cursor == nil {
		respondErrorDetails(w, http.StatusNotFound, CodeNotFound, "no cursor stored yet",
			map[string]interface{}{"job_name": job}, nil)
		return
	}
	respondSuccess(w, http.StatusOK, cursor, start)
}

// RunIngestion triggers one ingestion pass and returns its report. A run
// already holding the lease yields 409 CONCURRENT_RUN.
func (h *Handler) RunIngestion(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	report, err := h.ingestion.RunPaymentIngestion(r.Context())
	if report != nil {
		events.PublishQuietly(r.Context(), h.publisher, events.FromIngestion(report, err, triggerAPI))
	}
	if err != nil {
		var runID string
		if report != nil {
			runID = report.RunID
		}
		if errors.Is(err, pipeline.ErrConcurrentRun) {
			logging.Ctx(r.Context()).Info().Str("job", h.ingestion.JobName()).Msg("Manual ingestion skipped: lease held")
		}
		respondServiceError(w, r, err, runDetails(runID, pipeline.Kind(err)))
		return
	}
	respondSuccess(w, http.StatusOK, report, start)
}

// RunAggregation triggers one aggregation pass. The optional body overrides
// interval_hours, lookback_hours and batch_size for this run only.
func (h *Handler) RunAggregation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.AggregationRunRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	cfg := h.aggDefaults
	if req.IntervalHours > 0 {
		cfg.IntervalHours = req.IntervalHours
	}
	if req.LookbackHours > 0 {
		cfg.LookbackHours = req.LookbackHours
	}
	if req.BatchSize > 0 {
		cfg.BatchSize = req.BatchSize
	}

	report, err := h.aggregation.RunHourlyAggregation(r.Context(), cfg)
	if report != nil {
		events.PublishQuietly(r.Context(), h.publisher, events.FromAggregation(report, err, triggerAPI))
	}
	if err != nil {
		var runID string
		if report != nil {
			runID = report.RunID
		}
		respondServiceError(w, r, err, runDetails(runID, pipeline.Kind(err)))
		return
	}
	h.InvalidateMetricsCache()
	respondSuccess(w, http.StatusOK, report, start)
}

func runDetails(runID, kind string) map[string]interface{} {
	d := map[string]interface{}{"error_kind": kind}
	if runID != "" {
		d["run_id"] = runID
	}
	return d
}
