// Package coordinator implements Coordinator: it owns the three engines,
// the self-reporter, the shared cancellation token, the configuration
// snapshot, and the platform-client handle (spec.md §4.6).
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wisbric/watchdog/internal/cleanup"
	"github.com/wisbric/watchdog/internal/healthcheck"
	"github.com/wisbric/watchdog/internal/metricengine"
	"github.com/wisbric/watchdog/internal/platformclient"
	"github.com/wisbric/watchdog/internal/selfreport"
	"github.com/wisbric/watchdog/internal/storekv"
	"github.com/wisbric/watchdog/internal/telemetry"
	"github.com/wisbric/watchdog/internal/watchconfig"
	"github.com/wisbric/watchdog/internal/watchmodel"
)

// SelfEndpoint is the URI the Coordinator registers its own health probe
// under (spec.md §4.6 "registers its own health probe with itself via
// HTTP").
const SelfEndpoint = "fabric:/Watchdog/Watchdog"

// Coordinator owns the engines and runs them until its context is cancelled.
type Coordinator struct {
	store    *storekv.Store
	platform atomic.Pointer[platformclient.Client]

	healthEngine  *healthcheck.Engine
	metricEngine  *metricengine.Engine
	cleanupEngine *cleanup.Engine
	selfReporter  *selfreport.Engine

	elector    *Elector
	cfgWatcher *watchconfig.Watcher
	logger     *slog.Logger
	listenAddr string
}

// New constructs a Coordinator from already-built engines and collaborators.
// Dependency construction (store, platform client, telemetry sink) happens
// in internal/app, which knows how to wire concrete adapters; Coordinator
// only knows how to run them.
func New(
	store *storekv.Store,
	platform platformclient.Client,
	healthEngine *healthcheck.Engine,
	metricEngine *metricengine.Engine,
	cleanupEngine *cleanup.Engine,
	selfReporter *selfreport.Engine,
	elector *Elector,
	cfgWatcher *watchconfig.Watcher,
	logger *slog.Logger,
	listenAddr string,
) *Coordinator {
	c := &Coordinator{
		store:         store,
		healthEngine:  healthEngine,
		metricEngine:  metricEngine,
		cleanupEngine: cleanupEngine,
		selfReporter:  selfReporter,
		elector:       elector,
		cfgWatcher:    cfgWatcher,
		logger:        logger,
		listenAddr:    listenAddr,
	}
	c.platform.Store(&platform)
	return c
}

// Platform returns the currently active platform client.
func (c *Coordinator) Platform() platformclient.Client {
	return *c.platform.Load()
}

// RefreshPlatform calls Refresh on the current platform client and wraps any
// error. It does not replace the stored Client: the same instance stays in
// place, and no instance is swapped out or closed.
func (c *Coordinator) RefreshPlatform(ctx context.Context) error {
	old := c.Platform()
	if err := old.Refresh(ctx); err != nil {
		return fmt.Errorf("coordinator: refreshing platform client: %w", err)
	}
	return nil
}

// RegisterSelfProbe registers the Coordinator's own /watchdog/health
// endpoint as a monitored HealthCheck, per spec.md §4.6.
func (c *Coordinator) RegisterSelfProbe(ctx context.Context) error {
	hc := watchmodel.HealthCheck{
		Name:        "watchdog-self",
		ServiceName: SelfEndpoint,
		SuffixPath:  "watchdog/health",
		Frequency:   60 * time.Second,
	}
	hc.ApplyDefaults()
	return c.healthEngine.Register(ctx, hc)
}

// Run starts every periodic loop and blocks until ctx is cancelled or one
// of them returns a hard error, per spec.md §5's "preemptive multi-task"
// scheduling model: four independent tickers, each running its tick to
// completion serially with respect to itself.
func (c *Coordinator) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if c.elector != nil {
		g.Go(func() error { return c.elector.Run(gctx) })
	}

	g.Go(func() error { return c.runLoop(gctx, "healthcheck", c.healthEngine.Interval, c.healthEngine.Tick) })
	g.Go(func() error { return c.runLoop(gctx, "metrics", c.metricEngine.Interval, c.metricEngine.Tick) })
	g.Go(func() error { return c.runLoop(gctx, "cleanup", c.cleanupEngine.Interval, c.cleanupEngine.Tick) })
	g.Go(func() error { return c.runLoop(gctx, "selfreport", c.selfReporter.Interval, c.selfReporter.Tick) })

	if c.cfgWatcher != nil {
		g.Go(func() error { return c.watchConfig(gctx) })
	}

	return g.Wait()
}

// runLoop drives one engine's Tick on its own interval. Intervals are read
// fresh on every iteration so a hot-reload (SetInterval) takes effect
// without tearing the loop down, per spec.md §4.6 "change the timer
// without tearing down state". If a tick overruns its interval the next
// tick fires immediately on return, per spec.md §5.
func (c *Coordinator) runLoop(ctx context.Context, name string, interval func() time.Duration, tick func(context.Context) error) error {
	timer := time.NewTimer(interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			start := time.Now()
			err := tick(ctx)
			telemetry.EngineTickDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			if err != nil {
				c.logger.Error("coordinator: engine tick failed", "engine", name, "error", err)
			}
			next := interval() - time.Since(start)
			if next < 0 {
				next = 0
			}
			timer.Reset(next)
		}
	}
}

// watchConfig applies every ConfigurationModified event atomically per
// engine: only the affected timer/threshold changes, never the engine's
// running state (spec.md §4.6).
func (c *Coordinator) watchConfig(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-c.cfgWatcher.Events:
			if !ok {
				return nil
			}
			c.Apply(ev.Config)
		}
	}
}

// Apply atomically swaps each engine's interval (and the cleanup engine's
// thresholds) from cfg, without tearing down any engine's goroutine.
func (c *Coordinator) Apply(cfg watchconfig.WatchdogConfig) {
	c.healthEngine.SetInterval(cfg.HealthCheckInterval)
	c.metricEngine.SetInterval(cfg.MetricInterval)
	c.cleanupEngine.SetInterval(cfg.DiagnosticInterval)
	c.cleanupEngine.Configure(cfg.DiagnosticTimeToKeep, cfg.DiagnosticTargetCount, cfg.DiagnosticEndpoint, cfg.DiagnosticSasToken)
	c.selfReporter.SetInterval(cfg.WatchdogHealthReportInterval)
	c.logger.Info("coordinator: applied configuration reload")
}

// Ready implements listener.HealthProbe.
func (c *Coordinator) Ready() bool {
	return c.healthEngine != nil && c.metricEngine != nil && c.cleanupEngine != nil
}

// Healthy implements listener.HealthProbe: the aggregate is unhealthy if
// any engine reports HealthError.
func (c *Coordinator) Healthy() bool {
	return c.healthEngine.Health() != watchmodel.HealthError &&
		c.metricEngine.Health() != watchmodel.HealthError &&
		c.cleanupEngine.Health() != watchmodel.HealthError
}

// RegisteredHealthChecks implements listener.HealthProbe.
func (c *Coordinator) RegisteredHealthChecks(ctx context.Context) (int, error) {
	checks, err := c.healthEngine.List(ctx, "", "", "")
	if err != nil {
		return 0, err
	}
	return len(checks), nil
}
