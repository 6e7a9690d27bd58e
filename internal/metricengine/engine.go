// Package metricengine implements MetricsEngine: the durable subscription
// list plus periodic load-metric harvest and telemetry fan-out described in
// spec.md §4.3.
package metricengine

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/atomic"

	"github.com/wisbric/watchdog/internal/platformclient"
	"github.com/wisbric/watchdog/internal/storekv"
	"github.com/wisbric/watchdog/internal/telemetrysink"
	"github.com/wisbric/watchdog/internal/watchmodel"
	"github.com/wisbric/watchdog/internal/werr"
)

// DefaultInterval is the tick interval spec.md §4.6 defaults MetricInterval to.
const DefaultInterval = 5 * time.Minute

// pageRetryBudget bounds retries of a single paginated call (spec.md §4.3,
// "independent retry budget of 5").
const pageRetryBudget = 5

const mcMapName = "mc"

// Engine is MetricsEngine.
type Engine struct {
	store    *storekv.Store
	platform platformclient.Client
	sink     telemetrysink.Sink
	logger   *slog.Logger

	interval atomic.Duration
	count    atomic.Int64

	health atomic.Value // watchmodel.HealthState, boxed
}

// New constructs a MetricsEngine.
func New(store *storekv.Store, platform platformclient.Client, sink telemetrysink.Sink, logger *slog.Logger, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	e := &Engine{store: store, platform: platform, sink: sink, logger: logger}
	e.interval.Store(interval)
	e.health.Store(watchmodel.HealthOk)
	return e
}

// SetInterval atomically updates the tick interval (hot-reload, spec.md §4.6).
func (e *Engine) SetInterval(d time.Duration) {
	if d > 0 {
		e.interval.Store(d)
	}
}

// Interval returns the current tick interval.
func (e *Engine) Interval() time.Duration {
	return e.interval.Load()
}

// Count returns ObservedMetricCount: the number of individual metric values
// emitted so far, for the self-reporter (spec.md §4.5).
func (e *Engine) Count() int64 {
	return e.count.Load()
}

// Health returns the engine's current HealthState for the self-reporter.
func (e *Engine) Health() watchmodel.HealthState {
	return e.health.Load().(watchmodel.HealthState)
}

// Register upserts a MetricCheck subscription, per spec.md §4.3.
func (e *Engine) Register(ctx context.Context, mc watchmodel.MetricCheck) error {
	if err := mc.Validate(); err != nil {
		return werr.New(werr.ClassInvalidArgument, err)
	}

	tx, err := e.store.Begin(ctx, true)
	if err != nil {
		return err
	}
	defer tx.Discard()

	mcMap, err := mcCodecMap(tx)
	if err != nil {
		return err
	}
	if err := mcMap.AddOrUpdate(storekv.StringKey(mc.Key()), mc); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns an ordered snapshot of mc whose keys start with the filter
// prefix assembled per spec.md §4.2.a (shared rule).
func (e *Engine) List(ctx context.Context, app, svc, partition string) ([]watchmodel.MetricCheck, error) {
	tx, err := e.store.Begin(ctx, false)
	if err != nil {
		return nil, err
	}
	defer tx.Discard()

	mcMap, err := mcCodecMap(tx)
	if err != nil {
		return nil, err
	}
	entries, err := mcMap.IterateOrdered(storekv.StringKey(watchmodel.FilterPrefix(app, svc, partition)))
	if err != nil {
		return nil, err
	}
	out := make([]watchmodel.MetricCheck, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Value)
	}
	return out, nil
}

// Tick performs one MetricsEngine iteration: dispatch every registered
// subscription and fan its reports out to the telemetry sink.
func (e *Engine) Tick(ctx context.Context) error {
	if !e.store.Ready() {
		return nil
	}

	tx, err := e.store.Begin(ctx, false)
	if err != nil {
		if storekv.IsNotPrimary(err) {
			return nil
		}
		return err
	}
	mcMap, err := mcCodecMap(tx)
	if err != nil {
		tx.Discard()
		return e.classifyTickError(err)
	}
	entries, err := mcMap.IterateOrdered(nil)
	tx.Discard()
	if err != nil {
		return e.classifyTickError(err)
	}

	clean := true
	for _, entry := range entries {
		if err := e.dispatch(ctx, entry.Value); err != nil {
			if storekv.IsNotPrimary(err) {
				return nil
			}
			if werr.Is(err, werr.ClassTransient) || errIsNotFound(err) {
				e.logger.Error("metricengine tick: subscription dispatch ended without success", "key", entry.Value.Key(), "error", err)
				continue
			}
			e.logger.Error("metricengine tick: fatal dispatch error", "key", entry.Value.Key(), "error", err)
			clean = false
			continue
		}
	}
	if clean {
		e.health.Store(watchmodel.HealthOk)
	} else {
		e.health.Store(watchmodel.HealthError)
	}
	return nil
}

func (e *Engine) classifyTickError(err error) error {
	if werr.Is(err, werr.ClassTransient) {
		e.logger.Error("metricengine tick: transient store failure", "error", err)
		return nil
	}
	e.health.Store(watchmodel.HealthError)
	return err
}

func errIsNotFound(err error) bool {
	return platformclient.IsNotFound(err)
}
