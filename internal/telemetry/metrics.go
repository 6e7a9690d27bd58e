package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks listener-surface request latency.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "watchdog",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// EngineTickDuration tracks how long each Coordinator-driven tick loop
// (healthcheck, metrics, cleanup, selfreport) takes per iteration, labeled
// by engine name so a slow cleanup pass doesn't get blamed on healthcheck.
var EngineTickDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "watchdog",
		Subsystem: "coordinator",
		Name:      "engine_tick_duration_seconds",
		Help:      "Duration of one engine tick, by engine name.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"engine"},
)

// NewMetricsRegistry creates a Prometheus registry with the Go/process
// collectors, HTTPRequestDuration, EngineTickDuration, and any additional
// engine-specific collectors (the TelemetrySink's gauges/counters) passed as
// arguments.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
		EngineTickDuration,
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
