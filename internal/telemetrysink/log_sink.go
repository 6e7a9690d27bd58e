package telemetrysink

import (
	"context"
	"log/slog"
	"time"
)

// LogSink reports telemetry as structured debug log lines, in the spirit of
// the teacher's noop integration adapters (pkg/integration.NoopCaller).
// internal/app always wires PrometheusSink; nothing selects LogSink from
// configuration, and the coordinator tests use it directly.
type LogSink struct {
	logger *slog.Logger
	key    string
}

// NewLogSink builds a LogSink writing through logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) ReportMetric(_ context.Context, role, instance, name string, value float64) {
	s.logger.Debug("telemetry: metric", "role", role, "instance", instance, "name", name, "value", value)
}

func (s *LogSink) ReportAvailability(_ context.Context, service, instance, name string, capturedAt time.Time, duration time.Duration, location string, success bool) {
	s.logger.Debug("telemetry: availability",
		"service", service, "instance", instance, "name", name,
		"captured_at", capturedAt, "duration", duration, "location", location, "success", success)
}

func (s *LogSink) ReportHealth(_ context.Context, app, service, instance, source, property, state string) {
	s.logger.Debug("telemetry: health", "app", app, "service", service, "instance", instance, "source", source, "property", property, "state", state)
}

func (s *LogSink) SetKey(key string) { s.key = key }

var _ Sink = (*LogSink)(nil)
