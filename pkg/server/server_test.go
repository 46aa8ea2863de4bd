package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/conditional/pkg/config"
	"mercator-hq/conditional/pkg/definition"
	"mercator-hq/conditional/pkg/journal"
	"mercator-hq/conditional/pkg/security/auth"
	"mercator-hq/conditional/pkg/service"
	"mercator-hq/conditional/pkg/telemetry/logging"
)

const testDocument = `
state:
  role: admin
conditions:
  - name: is-admin
    description: Caller holds the admin role.
    root:
      predicate: state.equals
      args: {key: role, value: admin}
  - name: broken
    root:
      all:
        - predicate: "true"
        - predicate: fail
          args: {message: quota exceeded}
`

func newTestServer(t *testing.T, withStore bool, opts ...Option) *Server {
	t.Helper()
	doc, err := definition.Parse([]byte(testDocument))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg := config.NewDefaultConfig()
	svcOpts := []service.Option{service.WithDocument(doc), service.WithLogger(logging.NewNop())}
	if withStore {
		svcOpts = append(svcOpts, service.WithStore(journal.NewMemoryStore()))
	}
	svc, err := service.New(cfg, svcOpts...)
	if err != nil {
		t.Fatalf("service.New() error = %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	opts = append([]Option{WithLogger(logging.NewNop())}, opts...)
	return New(&cfg.Server, svc, opts...)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestServer_Health(t *testing.T) {
	h := newTestServer(t, true).Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("response is missing X-Request-ID")
	}
	if body := decode[map[string]any](t, rec); body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		wantCode int
	}{
		{name: "definitions loaded", wantCode: http.StatusOK},
		{
			name: "failing journal",
			opts: []Option{WithHealthCheck("journal", func(ctx context.Context) error {
				return errors.New("database is closed")
			})},
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, true, tt.opts...).Handler()

			rec := do(t, h, http.MethodGet, "/readyz", "")
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `"definitions"`) {
				t.Errorf("readiness body lacks the definitions check: %s", rec.Body.String())
			}
		})
	}
}

func TestServer_Version(t *testing.T) {
	h := newTestServer(t, true, WithVersion("1.2.3", "abc123", "2026-10-01")).Handler()

	rec := do(t, h, http.MethodGet, "/version", "")
	if body := decode[map[string]any](t, rec); body["version"] != "1.2.3" {
		t.Errorf("version = %v, want 1.2.3", body["version"])
	}
}

func TestServer_RequestIDPropagated(t *testing.T) {
	h := newTestServer(t, true).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
}

func TestServer_ListConditions(t *testing.T) {
	h := newTestServer(t, true).Handler()

	rec := do(t, h, http.MethodGet, "/v1/conditions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	infos := decode[[]ConditionInfo](t, rec)
	if len(infos) != 2 {
		t.Fatalf("got %d conditions, want 2", len(infos))
	}
	if infos[0].Name != "is-admin" || infos[0].Description != "Caller holds the admin role." {
		t.Errorf("infos[0] = %+v", infos[0])
	}
	if infos[1].Name != "broken" {
		t.Errorf("infos[1].Name = %q, want broken", infos[1].Name)
	}
}

func TestServer_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
		wantResult journal.Result
	}{
		{name: "empty body", target: "/v1/conditions/is-admin/evaluate", wantStatus: http.StatusOK, wantResult: journal.ResultTrue},
		{name: "state override", target: "/v1/conditions/is-admin/evaluate", body: `{"state":{"role":"guest"}}`, wantStatus: http.StatusOK, wantResult: journal.ResultFalse},
		{name: "mode query", target: "/v1/conditions/broken/evaluate?mode=parallel", wantStatus: http.StatusOK, wantResult: journal.ResultFailed},
		{name: "unknown definition", target: "/v1/conditions/missing/evaluate", wantStatus: http.StatusNotFound},
		{name: "invalid mode", target: "/v1/conditions/is-admin/evaluate", body: `{"mode":"eager"}`, wantStatus: http.StatusBadRequest},
		{name: "invalid json", target: "/v1/conditions/is-admin/evaluate", body: `{"state":`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, true).Handler()

			rec := do(t, h, http.MethodPost, tt.target, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				errResp := decode[ErrorResponse](t, rec)
				if errResp.Error.Message == "" {
					t.Error("error response has no message")
				}
				return
			}
			result := decode[service.Result](t, rec)
			if result.Result != tt.wantResult {
				t.Errorf("result = %q, want %q", result.Result, tt.wantResult)
			}
			if result.RunID == "" {
				t.Error("result has no run_id")
			}
		})
	}
}

func TestServer_Runs(t *testing.T) {
	h := newTestServer(t, true).Handler()

	var runID string
	for _, target := range []string{
		"/v1/conditions/is-admin/evaluate",
		"/v1/conditions/broken/evaluate",
	} {
		rec := do(t, h, http.MethodPost, target, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("evaluate %s: status = %d", target, rec.Code)
		}
		runID = decode[service.Result](t, rec).RunID
	}

	rec := do(t, h, http.MethodGet, "/v1/runs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	if list := decode[RunList](t, rec); list.Count != 2 {
		t.Errorf("count = %d, want 2", list.Count)
	}

	rec = do(t, h, http.MethodGet, "/v1/runs?failed=true", "")
	list := decode[RunList](t, rec)
	if list.Count != 1 || list.Runs[0].Definition != "broken" {
		t.Errorf("failed runs = %+v, want only broken", list.Runs)
	}

	rec = do(t, h, http.MethodGet, "/v1/runs/"+runID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}
	run := decode[journal.Run](t, rec)
	if run.ID != runID || len(run.Events) == 0 {
		t.Errorf("run = %s with %d events, want %s with events", run.ID, len(run.Events), runID)
	}

	if rec := do(t, h, http.MethodGet, "/v1/runs/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/v1/runs?limit=-1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/v1/runs?since=yesterday", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad since status = %d, want 400", rec.Code)
	}
}

func TestServer_RunsWithoutJournal(t *testing.T) {
	h := newTestServer(t, false).Handler()

	if rec := do(t, h, http.MethodGet, "/v1/runs", ""); rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}

func TestServer_MetricsAndNotFound(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("engine_runs_total 1\n"))
	})
	h := newTestServer(t, true, WithMetrics("/metrics", metrics)).Handler()

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "engine_runs_total") {
		t.Errorf("metrics: status %d body %q", rec.Code, rec.Body.String())
	}

	if rec := do(t, h, http.MethodGet, "/nowhere", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/v1/conditions/is-admin/evaluate", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET evaluate status = %d, want 405", rec.Code)
	}
}

func TestServer_RecoversPanic(t *testing.T) {
	s := newTestServer(t, true)
	h := s.recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := do(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	s := newTestServer(t, true)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, listener) }()

	url := "http://" + listener.Addr().String() + "/healthz"
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !s.IsRunning() {
		t.Error("IsRunning() = false while serving")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestServer_WithMiddleware(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				w.Header().Set("X-"+name, "1")
				next.ServeHTTP(w, r)
			})
		}
	}

	srv := newTestServer(t, false, WithMiddleware(tag("outer")), WithMiddleware(tag("inner")))
	rec := do(t, srv.Handler(), http.MethodGet, "/v1/conditions", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("middleware order = %v, want [outer inner]", order)
	}
	if rec.Header().Get("X-outer") != "1" {
		t.Error("outer middleware did not run")
	}
}

func TestServer_WithAuth(t *testing.T) {
	validator := auth.NewValidator([]config.APIKeyConfig{{Name: "ci", Key: "sk-ci"}})
	mw := auth.NewMiddleware(validator, nil, logging.NewNop())
	srv := newTestServer(t, false, WithAuth(mw.Handle))
	h := srv.Handler()

	tests := []struct {
		name       string
		target     string
		key        string
		wantStatus int
	}{
		{name: "v1 without key", target: "/v1/conditions", wantStatus: http.StatusUnauthorized},
		{name: "v1 with key", target: "/v1/conditions", key: "sk-ci", wantStatus: http.StatusOK},
		{name: "liveness stays open", target: "/healthz", wantStatus: http.StatusOK},
		{name: "version stays open", target: "/version", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.key != "" {
				req.Header.Set("Authorization", "Bearer "+tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("GET %s status = %d, want %d", tt.target, rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestServer_WithLimiter(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	srv := newTestServer(t, false, WithLimiter(tag("limiter")), WithAuth(tag("auth")))
	h := srv.Handler()

	do(t, h, http.MethodGet, "/healthz", "")
	if len(order) != 0 {
		t.Errorf("health route passed through %v", order)
	}
	do(t, h, http.MethodGet, "/v1/conditions", "")
	if len(order) != 2 || order[0] != "auth" || order[1] != "limiter" {
		t.Errorf("v1 middleware order = %v, want [auth limiter]", order)
	}
}
