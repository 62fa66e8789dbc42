// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/paycorridor/internal/aggregation"
	"github.com/tomtom215/paycorridor/internal/auth"
	"github.com/tomtom215/paycorridor/internal/config"
	"github.com/tomtom215/paycorridor/internal/corridor"
	"github.com/tomtom215/paycorridor/internal/database"
	"github.com/tomtom215/paycorridor/internal/events"
	"github.com/tomtom215/paycorridor/internal/indexing"
	"github.com/tomtom215/paycorridor/internal/ledger"
	"github.com/tomtom215/paycorridor/internal/models"
)

const testPassword = "s3cret-operator-pass"

var (
	paymentsBase = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	fixedNow     = time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)
)

type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.RunEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e *events.RunEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type testEnv struct {
	db        *database.DB
	source    *ledger.MockSource
	publisher *recordingPublisher
	handler   http.Handler
}

type envOptions struct {
	ingestion   IngestionRunner
	aggregation AggregationRunner
	store       ReadStore
	aggDefaults *models.AggregationConfig
	middleware  *ChiMiddlewareConfig
}

func newTestAuth(t *testing.T) *auth.Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.SecurityConfig{
		JWTSecret:         "test-secret-that-is-at-least-32-bytes-long",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   24 * time.Hour,
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
		RevocationCache:   config.CacheMemory,
	}
	jwtManager, err := auth.NewJWTManager(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cache := auth.NewMemoryRevocationCache()
	if err := cache.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	svc, err := auth.NewService(cfg, jwtManager, cache)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 2})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	src := ledger.NewMockSource(ledger.GenerateMockPayments(12, paymentsBase, 5000), 5)
	env := &testEnv{db: db, source: src, publisher: &recordingPublisher{}}

	deps := HandlerDeps{
		Store:               db,
		Ingestion:           indexing.NewService(src, db, corridor.AssetPair, indexing.Config{}),
		Aggregation:         aggregation.NewService(db, aggregation.WithClock(func() time.Time { return fixedNow })),
		Auth:                newTestAuth(t),
		Publisher:           env.publisher,
		AggregationDefaults: models.AggregationConfig{IntervalHours: 1, LookbackHours: 24, BatchSize: 100},
		Version:             "test",
	}
	if opts.ingestion != nil {
		deps.Ingestion = opts.ingestion
	}
	if opts.aggregation != nil {
		deps.Aggregation = opts.aggregation
	}
	if opts.store != nil {
		deps.Store = opts.store
	}
	if opts.aggDefaults != nil {
		deps.AggregationDefaults = *opts.aggDefaults
	}

	mwCfg := opts.middleware
	if mwCfg == nil {
		mwCfg = DefaultChiMiddlewareConfig()
		mwCfg.RateLimitDisabled = true
	}
	authn := auth.NewMiddleware(deps.Auth.(*auth.Service))
	env.handler = NewRouter(NewHandler(deps), authn, NewChiMiddleware(mwCfg)).SetupChi()
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	var env2 envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env2); err != nil {
			t.Fatalf("%s %s: body is not an envelope: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec, env2
}

func (env *testEnv) login(t *testing.T) *models.TokenPair {
	t.Helper()
	rec, resp := env.do(t, http.MethodPost, "/api/auth/login", models.LoginRequest{Username: "admin", Password: testPassword}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var pair models.TokenPair
	if err := json.Unmarshal(resp.Data, &pair); err != nil {
		t.Fatal(err)
	}
	return &pair
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, resp envelope, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d: %s", rec.Code, status, rec.Body.String())
	}
	if resp.Status != "error" || resp.Error == nil || resp.Error.Code != code {
		t.Fatalf("error = %+v, want code %s", resp.Error, code)
	}
}

func TestEndToEnd_IngestAggregateQuery(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	pair := env.login(t)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/ingestion/cursor", nil, "")
	wantError(t, rec, resp, http.StatusNotFound, CodeNotFound)

	rec, resp = env.do(t, http.MethodPost, "/api/v1/ingestion/run", nil, pair.AccessToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("ingestion run status = %d: %s", rec.Code, rec.Body.String())
	}
	var ingest indexing.RunReport
	if err := json.Unmarshal(resp.Data, &ingest); err != nil {
		t.Fatal(err)
	}
	if ingest.Inserted != 12 || ingest.FinalPosition != "12" {
		t.Errorf("ingestion report = %+v", ingest)
	}

	rec, resp = env.do(t, http.MethodGet, "/api/v1/ingestion/cursor", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("cursor status = %d", rec.Code)
	}
	var cursor models.IngestionCursor
	if err := json.Unmarshal(resp.Data, &cursor); err != nil {
		t.Fatal(err)
	}
	if cursor.Position != "12" || cursor.JobName != indexing.DefaultJobName {
		t.Errorf("cursor = %+v", cursor)
	}

	rec, resp = env.do(t, http.MethodPost, "/api/v1/aggregation/run", nil, pair.AccessToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("aggregation run status = %d: %s", rec.Code, rec.Body.String())
	}
	var agg aggregation.RunReport
	if err := json.Unmarshal(resp.Data, &agg); err != nil {
		t.Fatal(err)
	}
	if agg.Scanned != 12 || agg.Upserted < 1 {
		t.Errorf("aggregation report = %+v", agg)
	}

	rec, resp = env.do(t, http.MethodGet, "/api/v1/metrics/hourly?start=2026-03-14T00:00:00Z&end=2026-03-14T23:00:00Z", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d: %s", rec.Code, rec.Body.String())
	}
	var got HourlyMetricsResponse
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Count != agg.Upserted || len(got.Metrics) != got.Count {
		t.Fatalf("metrics count = %d, want %d", got.Count, agg.Upserted)
	}
	var total int64
	for _, m := range got.Metrics {
		if m.SuccessRate < 0 || m.SuccessRate > 100 {
			t.Errorf("success rate %v out of bounds for %s", m.SuccessRate, m.CorridorKey)
		}
		if m.SuccessfulTransactions > m.TotalTransactions {
			t.Errorf("successful > total for %s", m.CorridorKey)
		}
		total += m.TotalTransactions
	}
	if total != 12 {
		t.Errorf("sum of totals = %d, want 12", total)
	}

	key := got.Metrics[0].CorridorKey
	rec, resp = env.do(t, http.MethodGet, "/api/v1/metrics/hourly?start=2026-03-14T00:00:00Z&end=2026-03-14T23:00:00Z&corridor="+url.QueryEscape(key), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("filtered metrics status = %d", rec.Code)
	}
	var filtered HourlyMetricsResponse
	if err := json.Unmarshal(resp.Data, &filtered); err != nil {
		t.Fatal(err)
	}
	for _, m := range filtered.Metrics {
		if m.CorridorKey != key {
			t.Errorf("filter leaked corridor %s", m.CorridorKey)
		}
	}
	if filtered.Count == 0 {
		t.Error("filter returned nothing")
	}

	if n := len(env.publisher.events); n != 2 {
		t.Fatalf("published %d events, want 2", n)
	}
	if env.publisher.events[0].Trigger != triggerAPI || env.publisher.events[1].Type != events.TypeAggregation {
		t.Errorf("events = %+v, %+v", env.publisher.events[0], env.publisher.events[1])
	}
}

func TestRunEndpoints_RequireToken(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	pair := env.login(t)

	for _, path := range []string{"/api/v1/ingestion/run", "/api/v1/aggregation/run"} {
		rec, resp := env.do(t, http.MethodPost, path, nil, "")
		wantError(t, rec, resp, http.StatusUnauthorized, CodeInvalidToken)

		rec, resp = env.do(t, http.MethodPost, path, nil, pair.RefreshToken)
		wantError(t, rec, resp, http.StatusUnauthorized, CodeInvalidToken)
	}
	if env.source.Calls() != 0 {
		t.Error("source called without authentication")
	}
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec, resp := env.do(t, http.MethodPost, "/api/auth/login", models.LoginRequest{Username: "admin", Password: "wrong"}, "")
	wantError(t, rec, resp, http.StatusUnauthorized, CodeInvalidCredentials)

	rec, resp = env.do(t, http.MethodPost, "/api/auth/login", models.LoginRequest{Username: "nobody", Password: testPassword}, "")
	wantError(t, rec, resp, http.StatusUnauthorized, CodeInvalidCredentials)

	pair := env.login(t)
	if pair.TokenType != "Bearer" || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("pair = %+v", pair)
	}

	rec, resp = env.do(t, http.MethodPost, "/api/auth/refresh", models.RefreshRequest{RefreshToken: pair.RefreshToken}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d: %s", rec.Code, rec.Body.String())
	}
	var rotated models.TokenPair
	if err := json.Unmarshal(resp.Data, &rotated); err != nil {
		t.Fatal(err)
	}

	rec, resp = env.do(t, http.MethodPost, "/api/auth/refresh", models.RefreshRequest{RefreshToken: pair.RefreshToken}, "")
	wantError(t, rec, resp, http.StatusUnauthorized, CodeInvalidToken)

	rec, _ = env.do(t, http.MethodPost, "/api/auth/logout", models.RefreshRequest{RefreshToken: rotated.RefreshToken}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	rec, resp = env.do(t, http.MethodPost, "/api/auth/refresh", models.RefreshRequest{RefreshToken: rotated.RefreshToken}, "")
	wantError(t, rec, resp, http.StatusUnauthorized, CodeInvalidToken)
}

func TestAuthEndpoints_BadRequests(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	tests := []struct {
		name string
		path string
		body interface{}
		code string
	}{
		{"missing password", "/api/auth/login", map[string]string{"username": "admin"}, CodeValidationError},
		{"unknown field", "/api/auth/login", `{"username":"admin","password":"x","role":"root"}`, CodeInvalidRequest},
		{"malformed json", "/api/auth/login", `{"username":`, CodeInvalidRequest},
		{"empty body", "/api/auth/login", nil, CodeInvalidRequest},
		{"missing refresh token", "/api/auth/refresh", map[string]string{}, CodeValidationError},
		{"garbage refresh token", "/api/auth/logout", models.RefreshRequest{RefreshToken: "abc"}, CodeInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := env.do(t, http.MethodPost, tt.path, tt.body, "")
			if resp.Error == nil || resp.Error.Code != tt.code {
				t.Fatalf("status %d, error = %+v, want %s", rec.Code, resp.Error, tt.code)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec, resp := env.do(t, http.MethodGet, path, nil, "")
		if rec.Code != http.StatusOK || resp.Status != "success" {
			t.Errorf("%s: status = %d, body = %s", path, rec.Code, rec.Body.String())
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing X-Request-ID", path)
		}
	}

	_, resp := env.do(t, http.MethodGet, "/health", nil, "")
	var status HealthStatus
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "healthy" || status.Database != "connected" || status.Version != "test" {
		t.Errorf("health = %+v", status)
	}
}

func TestHealth_StoreDown(t *testing.T) {
	env := newTestEnv(t, envOptions{store: &fakeStore{pingErr: context.DeadlineExceeded}})

	rec, resp := env.do(t, http.MethodGet, "/health/ready", nil, "")
	wantError(t, rec, resp, http.StatusServiceUnavailable, CodeUnavailable)

	rec, resp = env.do(t, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/health status = %d", rec.Code)
	}
	var status HealthStatus
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "degraded" {
		t.Errorf("status = %s, want degraded", status.Status)
	}
}

func TestRouting_NotFoundAndMethod(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec, resp := env.do(t, http.MethodGet, "/api/v1/nope", nil, "")
	wantError(t, rec, resp, http.StatusNotFound, CodeNotFound)

	rec, resp = env.do(t, http.MethodGet, "/api/v1/ingestion/run", nil, "")
	wantError(t, rec, resp, http.StatusMethodNotAllowed, CodeMethodNotAllowed)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.do(t, http.MethodGet, "/health", nil, "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("paycorridor_api_requests_total")) {
		t.Error("exposition lacks paycorridor_api_requests_total")
	}
}

func TestRateLimit(t *testing.T) {
	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitRequests = 2
	env := newTestEnv(t, envOptions{middleware: mw})

	path := "/api/v1/metrics/hourly?start=2026-03-14T00:00:00Z&end=2026-03-14T01:00:00Z"
	for i := 0; i < 2; i++ {
		if rec, _ := env.do(t, http.MethodGet, path, nil, ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec, resp := env.do(t, http.MethodGet, path, nil, "")
	wantError(t, rec, resp, http.StatusTooManyRequests, CodeRateLimited)
}
