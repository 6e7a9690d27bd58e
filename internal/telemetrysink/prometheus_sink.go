package telemetrysink

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink reports watchdog telemetry as Prometheus collectors,
// registered into the same registry the Listener serves at /metrics-prometheus.
// This is the concrete adapter SPEC_FULL.md's expansion adds for the
// abstract TelemetrySink collaborator.
type PrometheusSink struct {
	key string

	loadMetric          *prometheus.GaugeVec
	availabilityTotal   *prometheus.CounterVec
	availabilityLatency *prometheus.HistogramVec
	healthState         *prometheus.GaugeVec
}

// NewPrometheusSink builds a PrometheusSink and registers its collectors
// into reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		loadMetric: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "watchdog",
			Subsystem: "metrics",
			Name:      "load_value",
			Help:      "Most recently observed load metric value, by role/instance/metric name.",
		}, []string{"role", "instance", "metric"}),
		availabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "watchdog",
			Subsystem: "healthcheck",
			Name:      "probe_total",
			Help:      "Total number of health probes executed, by service/name/result.",
		}, []string{"service", "name", "success"}),
		availabilityLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "watchdog",
			Subsystem: "healthcheck",
			Name:      "probe_duration_seconds",
			Help:      "Health probe duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "name"}),
		healthState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "watchdog",
			Subsystem: "health",
			Name:      "state",
			Help:      "Reported health state (0=Invalid,1=Ok,2=Warning,3=Error) by app/service/instance/source/property.",
		}, []string{"app", "service", "instance", "source", "property"}),
	}
	reg.MustRegister(s.loadMetric, s.availabilityTotal, s.availabilityLatency, s.healthState)
	return s
}

func (s *PrometheusSink) ReportMetric(_ context.Context, role, instance, name string, value float64) {
	s.loadMetric.WithLabelValues(role, instance, name).Set(value)
}

func (s *PrometheusSink) ReportAvailability(_ context.Context, service, instance, name string, _ time.Time, duration time.Duration, _ string, success bool) {
	s.availabilityTotal.WithLabelValues(service, name, boolLabel(success)).Inc()
	if duration >= 0 {
		s.availabilityLatency.WithLabelValues(service, name).Observe(duration.Seconds())
	}
}

func (s *PrometheusSink) ReportHealth(_ context.Context, app, service, instance, source, property, state string) {
	s.healthState.WithLabelValues(app, service, instance, source, property).Set(float64(stateOrdinal(state)))
}

func (s *PrometheusSink) SetKey(key string) { s.key = key }

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func stateOrdinal(state string) int {
	switch state {
	case "Ok":
		return 1
	case "Warning":
		return 2
	case "Error":
		return 3
	default:
		return 0
	}
}

var _ Sink = (*PrometheusSink)(nil)
