package listener

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/watchdog/internal/watchmodel"
	"github.com/wisbric/watchdog/internal/werr"
)

type fakeHealthChecks struct {
	registered  []watchmodel.HealthCheck
	registerErr error
	listed      []watchmodel.HealthCheck
	listErr     error
}

func (f *fakeHealthChecks) Register(ctx context.Context, hc watchmodel.HealthCheck) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = append(f.registered, hc)
	return nil
}

func (f *fakeHealthChecks) List(ctx context.Context, app, svc, partition string) ([]watchmodel.HealthCheck, error) {
	return f.listed, f.listErr
}

type fakeMetricChecks struct {
	registered  []watchmodel.MetricCheck
	registerErr error
	listed      []watchmodel.MetricCheck
}

func (f *fakeMetricChecks) Register(ctx context.Context, mc watchmodel.MetricCheck) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = append(f.registered, mc)
	return nil
}

func (f *fakeMetricChecks) List(ctx context.Context, app, svc, partition string) ([]watchmodel.MetricCheck, error) {
	return f.listed, nil
}

type fakeProbe struct {
	ready    bool
	healthy  bool
	count    int
	countErr error
}

func (f *fakeProbe) Ready() bool   { return f.ready }
func (f *fakeProbe) Healthy() bool { return f.healthy }
func (f *fakeProbe) RegisteredHealthChecks(ctx context.Context) (int, error) {
	return f.count, f.countErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterHealthCheckSuccess(t *testing.T) {
	hcs := &fakeHealthChecks{}
	h := &handlers{healthChecks: hcs, logger: discardLogger()}

	body := `{"Name":"hc1","ServiceName":"fabric:/A/B","SuffixPath":"api/values","Frequency":60000000000}`
	r := httptest.NewRequest(http.MethodPost, "/healthcheck", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.registerHealthCheck(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(hcs.registered) != 1 {
		t.Fatalf("registered = %d, want 1", len(hcs.registered))
	}
}

func TestRegisterHealthCheckInvalidArgument(t *testing.T) {
	hcs := &fakeHealthChecks{registerErr: werr.Newf(werr.ClassInvalidArgument, "service does not exist")}
	h := &handlers{healthChecks: hcs, logger: discardLogger()}

	body := `{"Name":"hc1","ServiceName":"fabric:/X/Y","SuffixPath":"api/values","Frequency":60000000000}`
	r := httptest.NewRequest(http.MethodPost, "/healthcheck", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.registerHealthCheck(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRegisterHealthCheckStoreFailureIs500(t *testing.T) {
	hcs := &fakeHealthChecks{registerErr: errors.New("store unavailable")}
	h := &handlers{healthChecks: hcs, logger: discardLogger()}

	body := `{"Name":"hc1","ServiceName":"fabric:/A/B","SuffixPath":"api/values","Frequency":60000000000}`
	r := httptest.NewRequest(http.MethodPost, "/healthcheck", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.registerHealthCheck(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestListHealthChecksReturnsJSONArray(t *testing.T) {
	hcs := &fakeHealthChecks{listed: []watchmodel.HealthCheck{{Name: "hc1"}}}
	h := &handlers{healthChecks: hcs, logger: discardLogger()}

	r := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	w := httptest.NewRecorder()

	h.listHealthChecks(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var out []watchmodel.HealthCheck
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].Name != "hc1" {
		t.Fatalf("got %+v", out)
	}
}

func TestRegisterMetricCheckBuildsFromPathAndBody(t *testing.T) {
	mcs := &fakeMetricChecks{}
	h := &handlers{metricChecks: mcs, logger: discardLogger()}

	body := `["cpu","memory"]`
	r := httptest.NewRequest(http.MethodPost, "/metrics/App1/Svc1", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("app", "App1")
	rctx.URLParams.Add("svc", "Svc1")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	h.registerMetricCheck(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(mcs.registered) != 1 {
		t.Fatalf("registered = %d, want 1", len(mcs.registered))
	}
	got := mcs.registered[0]
	if len(got.MetricNames) != 2 || got.MetricNames[0] != "cpu" {
		t.Fatalf("got %+v", got)
	}
	if got.Application != "App1" || got.Service != "Svc1" {
		t.Fatalf("path segments not applied: %+v", got)
	}
}

func TestWatchdogHealthOkWithRegisteredChecks(t *testing.T) {
	h := &handlers{probe: &fakeProbe{ready: true, healthy: true, count: 3}, logger: discardLogger()}
	r := httptest.NewRequest(http.MethodGet, "/watchdog/health", nil)
	w := httptest.NewRecorder()

	h.watchdogHealth(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestWatchdogHealthNoContentWhenNoneRegistered(t *testing.T) {
	h := &handlers{probe: &fakeProbe{ready: true, healthy: true, count: 0}, logger: discardLogger()}
	r := httptest.NewRequest(http.MethodGet, "/watchdog/health", nil)
	w := httptest.NewRecorder()

	h.watchdogHealth(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
}

func TestWatchdogHealthErrorWhenUnhealthy(t *testing.T) {
	h := &handlers{probe: &fakeProbe{ready: true, healthy: false}, logger: discardLogger()}
	r := httptest.NewRequest(http.MethodGet, "/watchdog/health", nil)
	w := httptest.NewRecorder()

	h.watchdogHealth(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestWatchdogHealthErrorWhenNotReady(t *testing.T) {
	h := &handlers{probe: &fakeProbe{ready: false}, logger: discardLogger()}
	r := httptest.NewRequest(http.MethodGet, "/watchdog/health", nil)
	w := httptest.NewRecorder()

	h.watchdogHealth(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
