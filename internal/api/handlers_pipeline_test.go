// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/paycorridor/internal/aggregation"
	"github.com/tomtom215/paycorridor/internal/indexing"
	"github.com/tomtom215/paycorridor/internal/models"
	"github.com/tomtom215/paycorridor/internal/pipeline"
	"github.com/tomtom215/paycorridor/internal/store"
)

type fakeStore struct {
	pingErr  error
	cursor   *models.IngestionCursor
	rows     []models.HourlyCorridorMetric
	queryErr error
	queries  int
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) GetCursor(context.Context, string) (*models.IngestionCursor, error) {
	return f.cursor, f.queryErr
}

func (f *fakeStore) QueryHourlyMetricsInRange(context.Context, time.Time, time.Time) ([]models.HourlyCorridorMetric, error) {
	f.queries++
	return f.rows, f.queryErr
}

type fakeIngestion struct {
	err error
}

func (f *fakeIngestion) RunPaymentIngestion(context.Context) (*indexing.RunReport, error) {
	return &indexing.RunReport{RunID: "fake-run", JobName: indexing.DefaultJobName}, f.err
}

func (f *fakeIngestion) JobName() string { return indexing.DefaultJobName }

type fakeAggregation struct {
	got models.AggregationConfig
	err error
}

func (f *fakeAggregation) RunHourlyAggregation(_ context.Context, cfg models.AggregationConfig) (*aggregation.RunReport, error) {
	f.got = cfg
	return &aggregation.RunReport{RunID: "fake-agg"}, f.err
}

func TestRunIngestion_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"lease held", pipeline.ConcurrentRun("acquire lease", store.ErrLeaseHeld), http.StatusConflict, CodeConcurrentRun},
		{"source down", pipeline.SourceUnavailable("fetch page", errors.New("rpc timeout")), http.StatusBadGateway, CodeSourceUnavailable},
		{"storage", pipeline.Storage("commit page", errors.New("disk full")), http.StatusInternalServerError, CodeStorageError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, envOptions{ingestion: &fakeIngestion{err: tt.err}})
			pair := env.login(t)

			rec, resp := env.do(t, http.MethodPost, "/api/v1/ingestion/run", nil, pair.AccessToken)
			wantError(t, rec, resp, tt.status, tt.code)
			if resp.Error.Details["run_id"] != "fake-run" {
				t.Errorf("details = %v", resp.Error.Details)
			}
			if tt.status == http.StatusInternalServerError && resp.Error.Message == tt.err.Error() {
				t.Error("internal error text leaked to client")
			}
			if len(env.publisher.events) != 1 || env.publisher.events[0].Outcome != pipeline.Kind(tt.err) {
				t.Errorf("events = %+v", env.publisher.events)
			}
		})
	}
}

func TestRunAggregation_Overrides(t *testing.T) {
	fake := &fakeAggregation{}
	env := newTestEnv(t, envOptions{aggregation: fake})
	pair := env.login(t)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/aggregation/run", models.AggregationRunRequest{LookbackHours: 6, BatchSize: 10}, pair.AccessToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	want := models.AggregationConfig{IntervalHours: 1, LookbackHours: 6, BatchSize: 10}
	if fake.got != want {
		t.Errorf("config = %+v, want %+v", fake.got, want)
	}

	rec, resp := env.do(t, http.MethodPost, "/api/v1/aggregation/run", `{"batch_size": -1}`, pair.AccessToken)
	wantError(t, rec, resp, http.StatusBadRequest, CodeValidationError)
}

func TestRunAggregation_InvalidDefaults(t *testing.T) {
	env := newTestEnv(t, envOptions{aggDefaults: &models.AggregationConfig{}})
	pair := env.login(t)

	rec, resp := env.do(t, http.MethodPost, "/api/v1/aggregation/run", nil, pair.AccessToken)
	wantError(t, rec, resp, http.StatusBadRequest, CodeInvalidConfig)
}

func TestIngestionCursor_StorageError(t *testing.T) {
	env := newTestEnv(t, envOptions{store: &fakeStore{queryErr: errors.New("connection reset")}})

	rec, resp := env.do(t, http.MethodGet, "/api/v1/ingestion/cursor", nil, "")
	wantError(t, rec, resp, http.StatusInternalServerError, CodeStorageError)
}

func TestHourlyMetrics_Validation(t *testing.T) {
	env := newTestEnv(t, envOptions{store: &fakeStore{}})

	tests := []struct {
		name  string
		query string
	}{
		{"bad start", "?start=yesterday"},
		{"bad end", "?end=2026-13-01T00:00:00Z"},
		{"start after end", "?start=2026-03-14T10:00:00Z&end=2026-03-14T09:00:00Z"},
		{"range too long", "?start=2025-01-01T00:00:00Z&end=2026-03-14T00:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := env.do(t, http.MethodGet, "/api/v1/metrics/hourly"+tt.query, nil, "")
			wantError(t, rec, resp, http.StatusBadRequest, CodeValidationError)
		})
	}
}

func TestHourlyMetrics_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t, envOptions{store: &fakeStore{}})

	rec, _ := env.do(t, http.MethodGet, "/api/v1/metrics/hourly", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"metrics":[]`)) {
		t.Errorf("body = %s, want empty metrics array", rec.Body.String())
	}
}

func TestHourlyMetrics_Cache(t *testing.T) {
	st := &fakeStore{rows: []models.HourlyCorridorMetric{
		{CorridorKey: "USDC->EURC", TotalTransactions: 4, SuccessfulTransactions: 3, SuccessRate: 75},
		{CorridorKey: "XLM->USDC", TotalTransactions: 2, SuccessfulTransactions: 2, SuccessRate: 100},
	}}
	env := newTestEnv(t, envOptions{store: st, aggregation: &fakeAggregation{}})
	pair := env.login(t)
	explicit := "/api/v1/metrics/hourly?start=2026-03-14T00:00:00Z&end=2026-03-14T23:00:00Z"

	env.do(t, http.MethodGet, explicit, nil, "")
	env.do(t, http.MethodGet, explicit+"&corridor=XLM-%3EUSDC", nil, "")
	if st.queries != 1 {
		t.Errorf("store queried %d times for a repeated range, want 1", st.queries)
	}

	// The corridor filter must not truncate the cached rows.
	rec, resp := env.do(t, http.MethodGet, explicit, nil, "")
	var got HourlyMetricsResponse
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || got.Count != 2 {
		t.Errorf("cached response count = %d, want 2", got.Count)
	}

	if rec, _ := env.do(t, http.MethodPost, "/api/v1/aggregation/run", nil, pair.AccessToken); rec.Code != http.StatusOK {
		t.Fatalf("aggregation run status = %d", rec.Code)
	}
	env.do(t, http.MethodGet, explicit, nil, "")
	if st.queries != 2 {
		t.Errorf("store queried %d times after aggregation, want 2", st.queries)
	}

	env.do(t, http.MethodGet, "/api/v1/metrics/hourly", nil, "")
	env.do(t, http.MethodGet, "/api/v1/metrics/hourly", nil, "")
	if st.queries != 4 {
		t.Errorf("defaulted ranges should bypass the cache, queries = %d", st.queries)
	}
}

func TestHourlyMetricsRequest_Range(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	start, end, err := HourlyMetricsRequest{}.Range(now)
	if err != nil {
		t.Fatal(err)
	}
	if !end.Equal(now) || !start.Equal(now.Add(-24*time.Hour)) {
		t.Errorf("defaults = [%s, %s]", start, end)
	}

	start, end, err = HourlyMetricsRequest{Start: "2026-03-14T10:00:00+01:00", End: "2026-03-14T10:00:00Z"}.Range(now)
	if err != nil {
		t.Fatal(err)
	}
	if start.Location() != time.UTC || start.Hour() != 9 || end.Hour() != 10 {
		t.Errorf("range = [%s, %s], want UTC 09:00-10:00", start, end)
	}

	// equal bounds are a valid single-instant range
	if _, _, err := (HourlyMetricsRequest{Start: "2026-03-14T10:00:00Z", End: "2026-03-14T10:00:00Z"}).Range(now); err != nil {
		t.Errorf("equal bounds rejected: %v", err)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{pipeline.ConcurrentRun("x", errors.New("held")), http.StatusConflict, CodeConcurrentRun},
		{pipeline.InvalidConfig("x", errors.New("bad")), http.StatusBadRequest, CodeInvalidConfig},
		{pipeline.SourceUnavailable("x", errors.New("down")), http.StatusBadGateway, CodeSourceUnavailable},
		{pipeline.Storage("x", errors.New("io")), http.StatusInternalServerError, CodeStorageError},
		{context.Canceled, http.StatusServiceUnavailable, CodeCanceled},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		status, code := statusForError(tt.err)
		if status != tt.status || code != tt.code {
			t.Errorf("statusForError(%v) = (%d, %s), want (%d, %s)", tt.err, status, code, tt.status, tt.code)
		}
	}
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue = %q", got)
	}
}
