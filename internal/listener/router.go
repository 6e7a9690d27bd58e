// Package listener implements the watchdog's thin HTTP registration
// surface, spec.md §6 "Listener surface": health-check and metric-check
// registration/listing, plus the aggregate /watchdog/health probe.
package listener

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wisbric/watchdog/internal/httpserver"
)

// Config holds the dependencies NewRouter needs to build the Listener surface.
type Config struct {
	HealthChecks       HealthCheckRegistry
	MetricChecks       MetricCheckRegistry
	Probe              HealthProbe
	Logger             *slog.Logger
	Metrics            *prometheus.Registry
	CORSAllowedOrigins []string
}

// NewRouter builds the watchdog's HTTP surface: global middleware, the
// health-check and metric-check registration endpoints, and the aggregate
// /watchdog/health probe.
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(httpserver.RequestID)
	r.Use(httpserver.Logger(cfg.Logger))
	r.Use(httpserver.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	h := &handlers{
		healthChecks: cfg.HealthChecks,
		metricChecks: cfg.MetricChecks,
		probe:        cfg.Probe,
		logger:       cfg.Logger,
	}

	r.Post("/healthcheck", h.registerHealthCheck)
	r.Get("/healthcheck", h.listHealthChecks)
	r.Get("/healthcheck/{app}", h.listHealthChecks)
	r.Get("/healthcheck/{app}/{svc}", h.listHealthChecks)
	r.Get("/healthcheck/{app}/{svc}/{partition}", h.listHealthChecks)

	r.Post("/metrics/{app}", h.registerMetricCheck)
	r.Post("/metrics/{app}/{svc}", h.registerMetricCheck)
	r.Post("/metrics/{app}/{svc}/{partition}", h.registerMetricCheck)
	r.Get("/metrics", h.listMetricChecks)
	r.Get("/metrics/{app}", h.listMetricChecks)
	r.Get("/metrics/{app}/{svc}", h.listMetricChecks)
	r.Get("/metrics/{app}/{svc}/{partition}", h.listMetricChecks)

	r.Get("/watchdog/health", h.watchdogHealth)

	if cfg.Metrics != nil {
		r.Handle("/metrics-prometheus", promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{}))
	}

	return r
}
