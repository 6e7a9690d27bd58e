// Package telemetrysink declares the abstract TelemetrySink collaborator
// (spec.md §6) engines publish metrics, availability, and health events
// through, plus a Prometheus-backed adapter and a slog-backed fallback.
package telemetrysink

import (
	"context"
	"time"
)

// Sink is the abstract TelemetrySink from spec.md §6.
type Sink interface {
	ReportMetric(ctx context.Context, role, instance, name string, value float64)
	ReportAvailability(ctx context.Context, service, instance, name string, capturedAt time.Time, duration time.Duration, location string, success bool)
	ReportHealth(ctx context.Context, app, service, instance, source, property, state string)

	// SetKey updates the sink's telemetry key (e.g. an ingestion key);
	// spec.md §6 documents Key as mutable on the interface.
	SetKey(key string)
}
