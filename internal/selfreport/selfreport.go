// Package selfreport implements SelfReporter: periodic aggregation of the
// watchdog's own health, its own load counters, and the cluster-health
// roll-up, all fanned out through PlatformClient and TelemetrySink
// (spec.md §4.5).
package selfreport

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/wisbric/watchdog/internal/cleanup"
	"github.com/wisbric/watchdog/internal/healthcheck"
	"github.com/wisbric/watchdog/internal/metricengine"
	"github.com/wisbric/watchdog/internal/platformclient"
	"github.com/wisbric/watchdog/internal/telemetrysink"
	"github.com/wisbric/watchdog/internal/watchmodel"
)

// DefaultInterval is spec.md §4.6's WatchdogHealthReportInterval default.
const DefaultInterval = 60 * time.Second

// clusterHealthTimeout bounds the ClusterHealth roll-up call.
const clusterHealthTimeout = 4 * time.Second

// Engine is SelfReporter.
type Engine struct {
	platform platformclient.Client
	sink     telemetrysink.Sink
	logger   *slog.Logger

	healthEngine  *healthcheck.Engine
	metricEngine  *metricengine.Engine
	cleanupEngine *cleanup.Engine

	partitionID uuid.UUID

	interval      atomic.Duration
	listenerCount atomic.Int64

	health      atomic.Value // watchmodel.HealthState, boxed
	description atomic.String
}

// New constructs a SelfReporter bound to the three engines it aggregates.
// partitionID is the watchdog's own partition, used when it posts its own
// health back through PlatformClient (so the watchdog appears as a
// monitored target alongside everything it watches).
func New(
	platform platformclient.Client,
	sink telemetrysink.Sink,
	logger *slog.Logger,
	healthEngine *healthcheck.Engine,
	metricEngine *metricengine.Engine,
	cleanupEngine *cleanup.Engine,
	partitionID uuid.UUID,
	interval time.Duration,
) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	e := &Engine{
		platform:      platform,
		sink:          sink,
		logger:        logger,
		healthEngine:  healthEngine,
		metricEngine:  metricEngine,
		cleanupEngine: cleanupEngine,
		partitionID:   partitionID,
	}
	e.interval.Store(interval)
	e.health.Store(watchmodel.HealthOk)
	return e
}

// SetInterval atomically updates the report interval (hot-reload, spec.md §4.6).
func (e *Engine) SetInterval(d time.Duration) {
	if d > 0 {
		e.interval.Store(d)
	}
}

// Interval returns the current report interval.
func (e *Engine) Interval() time.Duration { return e.interval.Load() }

// SetListenerCount records how many HTTP listeners the process has
// successfully bound (internal/app sets it once the Listener socket is open).
// A count of zero degrades self-health to Error.
func (e *Engine) SetListenerCount(n int) {
	e.listenerCount.Store(int64(n))
}

// Health returns the watchdog's own aggregate HealthState.
func (e *Engine) Health() watchmodel.HealthState {
	return e.health.Load().(watchmodel.HealthState)
}

// Description returns the accumulated failure description from the most
// recent Tick, empty when the watchdog is healthy.
func (e *Engine) Description() string {
	return e.description.Load()
}

// Tick performs one SelfReporter pass, per spec.md §4.5.
func (e *Engine) Tick(ctx context.Context) error {
	state, desc := e.computeSelfHealth()
	e.health.Store(state)
	e.description.Store(desc)

	e.reportEngineHealth(ctx, state)
	e.reportOwnLoad(ctx)
	e.reportClusterRollup(ctx)
	return nil
}

// computeSelfHealth starts at Ok and worsens for every missing or unhealthy
// dependency, per spec.md §4.5.
func (e *Engine) computeSelfHealth() (watchmodel.HealthState, string) {
	state := watchmodel.HealthOk
	var lines []string
	worsen := func(reason string) {
		state = watchmodel.WorsenHealth(state, watchmodel.HealthError)
		lines = append(lines, reason)
	}

	if e.logger == nil {
		worsen("logger sink missing")
	}
	if e.healthEngine == nil {
		worsen("health check engine missing")
	} else if e.healthEngine.Health() == watchmodel.HealthError {
		worsen("health check engine unhealthy")
	}
	if e.metricEngine == nil {
		worsen("metrics engine missing")
	} else if e.metricEngine.Health() == watchmodel.HealthError {
		worsen("metrics engine unhealthy")
	}
	if e.listenerCount.Load() == 0 {
		worsen("no listening endpoints bound")
	}

	return state, strings.Join(lines, "; ")
}

// reportEngineHealth posts the four partition-health events spec.md §4.5
// names: WatchdogServiceHealth, HealthCheckOperations, MetricOperations,
// CleanupOperations.
func (e *Engine) reportEngineHealth(ctx context.Context, selfState watchmodel.HealthState) {
	type event struct {
		property string
		state    watchmodel.HealthState
	}
	events := []event{
		{"WatchdogServiceHealth", selfState},
		{"HealthCheckOperations", e.healthEngine.Health()},
		{"MetricOperations", e.metricEngine.Health()},
		{"CleanupOperations", e.cleanupEngine.Health()},
	}
	for _, ev := range events {
		if err := e.platform.ReportPartitionHealth(ctx, e.partitionID, "SelfReporter", ev.property, toClientHealthState(ev.state)); err != nil {
			e.logger.Error("selfreport: reporting partition health failed", "property", ev.property, "error", err)
		}
		e.sink.ReportHealth(ctx, "Watchdog", "Watchdog", "SelfReporter", "SelfReporter", ev.property, ev.state.String())
	}
}

// reportOwnLoad posts the watchdog's own observed-metric and health-check
// counts through the telemetry sink. PlatformClient has no "push my own
// load" call (PartitionLoad/ReplicaLoad/AppLoad are read-only enumeration
// calls used by MetricsEngine to read others' load), so this is
// sink-only.
func (e *Engine) reportOwnLoad(ctx context.Context) {
	e.sink.ReportMetric(ctx, "SelfReporter", "watchdog", "HealthCheckCount", float64(e.healthEngine.Count()))
	e.sink.ReportMetric(ctx, "SelfReporter", "watchdog", "ObservedMetricCount", float64(e.metricEngine.Count()))
}

// reportClusterRollup obtains the cluster-wide health aggregate with a
// bounded timeout and surfaces it plus every non-Ok application/node.
func (e *Engine) reportClusterRollup(ctx context.Context) {
	rollupCtx, cancel := context.WithTimeout(ctx, clusterHealthTimeout)
	defer cancel()

	cluster, err := e.platform.ClusterHealth(rollupCtx)
	if err != nil {
		e.logger.Error("selfreport: cluster health roll-up failed", "error", err)
		return
	}

	e.sink.ReportHealth(ctx, "", "", "", "SelfReporter", "ClusterHealth", clientStateString(cluster.Aggregate))
	for app, state := range cluster.Applications {
		if state == platformclient.HealthOk {
			continue
		}
		e.sink.ReportHealth(ctx, app, "", "", "SelfReporter", "ApplicationHealth", clientStateString(state))
	}
	for node, state := range cluster.Nodes {
		if state == platformclient.HealthOk {
			continue
		}
		e.sink.ReportHealth(ctx, "", "", node, "SelfReporter", "NodeHealth", clientStateString(state))
	}
}

func toClientHealthState(s watchmodel.HealthState) platformclient.HealthState {
	switch s {
	case watchmodel.HealthOk:
		return platformclient.HealthOk
	case watchmodel.HealthWarning:
		return platformclient.HealthWarning
	default:
		return platformclient.HealthError
	}
}

func clientStateString(s platformclient.HealthState) string {
	switch s {
	case platformclient.HealthOk:
		return "Ok"
	case platformclient.HealthWarning:
		return "Warning"
	default:
		return "Error"
	}
}
