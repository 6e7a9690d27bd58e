package listener

import (
	"context"

	"github.com/wisbric/watchdog/internal/watchmodel"
)

// HealthCheckRegistry is the subset of healthcheck.Engine the listener
// depends on.
type HealthCheckRegistry interface {
	Register(ctx context.Context, hc watchmodel.HealthCheck) error
	List(ctx context.Context, app, svc, partition string) ([]watchmodel.HealthCheck, error)
}

// MetricCheckRegistry is the subset of metricengine.Engine the listener
// depends on.
type MetricCheckRegistry interface {
	Register(ctx context.Context, mc watchmodel.MetricCheck) error
	List(ctx context.Context, app, svc, partition string) ([]watchmodel.MetricCheck, error)
}

// HealthProbe reports the watchdog's own aggregate health for
// GET /watchdog/health, per spec.md §6 and §4.5.
type HealthProbe interface {
	// Ready reports whether every engine is present and wired.
	Ready() bool
	// RegisteredHealthChecks reports how many health checks are currently
	// registered, to distinguish 200 (>=1) from 204 (none).
	RegisteredHealthChecks(ctx context.Context) (int, error)
	// Healthy reports whether the aggregate watchdog health is anything
	// other than Error.
	Healthy() bool
}
