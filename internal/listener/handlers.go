package listener

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/watchdog/internal/httpserver"
	"github.com/wisbric/watchdog/internal/watchmodel"
)

type handlers struct {
	healthChecks HealthCheckRegistry
	metricChecks MetricCheckRegistry
	probe        HealthProbe
	logger       *slog.Logger
}

// registerHealthCheck handles POST /healthcheck: spec.md §6.
func (h *handlers) registerHealthCheck(w http.ResponseWriter, r *http.Request) {
	var hc watchmodel.HealthCheck
	if err := httpserver.Decode(r, &hc); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.healthChecks.Register(r.Context(), hc); err != nil {
		httpserver.RespondEngineError(w, h.logger, "registering health check", err)
		return
	}
	httpserver.Respond(w, http.StatusOK, nil)
}

// listHealthChecks handles GET /healthcheck/{app?}/{svc?}/{partition?}.
func (h *handlers) listHealthChecks(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	svc := chi.URLParam(r, "svc")
	partition := chi.URLParam(r, "partition")

	checks, err := h.healthChecks.List(r.Context(), app, svc, partition)
	if err != nil {
		httpserver.RespondEngineError(w, h.logger, "listing health checks", err)
		return
	}
	httpserver.Respond(w, http.StatusOK, checks)
}

// registerMetricCheck handles POST /metrics/{app}/{svc?}/{partition?}: the
// body is a JSON array of metric names, per spec.md §6.
func (h *handlers) registerMetricCheck(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	svc := chi.URLParam(r, "svc")
	partition := chi.URLParam(r, "partition")

	var names []string
	if err := httpserver.Decode(r, &names); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	mc := watchmodel.MetricCheck{
		MetricNames: names,
		Application: app,
		Service:     svc,
		Partition:   partition,
	}
	if err := h.metricChecks.Register(r.Context(), mc); err != nil {
		httpserver.RespondEngineError(w, h.logger, "registering metric check", err)
		return
	}
	httpserver.Respond(w, http.StatusOK, nil)
}

// listMetricChecks handles GET /metrics/{app?}/{svc?}/{partition?}.
func (h *handlers) listMetricChecks(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	svc := chi.URLParam(r, "svc")
	partition := chi.URLParam(r, "partition")

	checks, err := h.metricChecks.List(r.Context(), app, svc, partition)
	if err != nil {
		httpserver.RespondEngineError(w, h.logger, "listing metric checks", err)
		return
	}
	httpserver.Respond(w, http.StatusOK, checks)
}

// watchdogHealth handles GET /watchdog/health: 200 if all engines are
// present and at least one health check is registered, 204 if none are
// registered, 500 otherwise (spec.md §6, §7).
func (h *handlers) watchdogHealth(w http.ResponseWriter, r *http.Request) {
	if !h.probe.Ready() || !h.probe.Healthy() {
		httpserver.RespondError(w, http.StatusInternalServerError, "unhealthy", "one or more engines are missing or unhealthy")
		return
	}

	count, err := h.probe.RegisteredHealthChecks(r.Context())
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if count == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusOK)
}
