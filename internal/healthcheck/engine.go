// Package healthcheck implements HealthCheckEngine: the durable schedule
// plus HTTP probe execution and verdict publication described in
// spec.md §4.2.
package healthcheck

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.uber.org/atomic"

	"github.com/wisbric/watchdog/internal/platformclient"
	"github.com/wisbric/watchdog/internal/storekv"
	"github.com/wisbric/watchdog/internal/telemetrysink"
	"github.com/wisbric/watchdog/internal/watchmodel"
	"github.com/wisbric/watchdog/internal/werr"
)

// DefaultInterval is the tick interval spec.md §4.2 defaults to.
const DefaultInterval = 5 * time.Minute

// scheduleCollisionRetries bounds the schedule-key collision retry loop in
// Register and executeItem to 6 attempts (spec.md §9: "up to 6 attempts").
const scheduleCollisionRetries = 6

const hcMapName = "hc"
const schedMapName = "sched"

// Engine is HealthCheckEngine.
type Engine struct {
	store    *storekv.Store
	platform platformclient.Client
	sink     telemetrysink.Sink
	logger   *slog.Logger
	http     *http.Client

	interval atomic.Duration
	count    atomic.Int64

	health atomic.Value // watchmodel.HealthState, boxed
}

// New constructs a HealthCheckEngine. interval is the tick period
// (spec.md §4.2 default: 5 minutes).
func New(store *storekv.Store, platform platformclient.Client, sink telemetrysink.Sink, logger *slog.Logger, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	e := &Engine{
		store:    store,
		platform: platform,
		sink:     sink,
		logger:   logger,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     90 * time.Second,
				DisableKeepAlives:   false,
			},
		},
	}
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

// Count returns the number of successful registrations observed so far.
func (e *Engine) Count() int64 {
	return e.count.Load()
}

// Health returns the engine's current HealthState for the self-reporter.
func (e *Engine) Health() watchmodel.HealthState {
	return e.health.Load().(watchmodel.HealthState)
}

// Close releases the engine's HTTP client connections.
func (e *Engine) Close() {
	e.http.CloseIdleConnections()
}

// Register validates and durably schedules a new HealthCheck, per
// spec.md §4.2.
func (e *Engine) Register(ctx context.Context, hc watchmodel.HealthCheck) error {
	hc.ApplyDefaults()
	if err := hc.Validate(); err != nil {
		return werr.New(werr.ClassInvalidArgument, err)
	}

	exists, err := e.platform.ServiceExists(ctx, hc.ServiceName, nilableUUID(hc.Partition))
	if err != nil {
		return werr.New(werr.ClassTransient, fmt.Errorf("checking service existence: %w", err))
	}
	if !exists {
		return werr.Newf(werr.ClassInvalidArgument, "healthcheck: service %s does not exist", hc.ServiceName)
	}

	tx, err := e.store.Begin(ctx, true)
	if err != nil {
		return err
	}
	defer tx.Discard()

	hcMap, err := hcCodecMap(tx)
	if err != nil {
		return err
	}
	schedMap, err := schedCodecMap(tx)
	if err != nil {
		return err
	}

	if err := hcMap.AddOrUpdate(storekv.StringKey(hc.Key()), hc); err != nil {
		return err
	}

	if err := insertScheduledItem(schedMap, watchmodel.Now(), hc.Key()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	e.count.Inc()
	return nil
}

// List returns an ordered snapshot of hc whose keys start with the filter
// prefix assembled per spec.md §4.2.a.
func (e *Engine) List(ctx context.Context, app, svc, partition string) ([]watchmodel.HealthCheck, error) {
	tx, err := e.store.Begin(ctx, false)
	if err != nil {
		return nil, err
	}
	defer tx.Discard()

	hcMap, err := hcCodecMap(tx)
	if err != nil {
		return nil, err
	}
	entries, err := hcMap.IterateOrdered(storekv.StringKey(hcFilterPrefix(app, svc, partition)))
	if err != nil {
		return nil, err
	}
	out := make([]watchmodel.HealthCheck, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Value)
	}
	return out, nil
}

// Tick performs one HealthCheckEngine iteration: skip if not granted access,
// otherwise drain every sched entry whose ExecutionTicks has elapsed.
func (e *Engine) Tick(ctx context.Context) error {
	if !(e.store.ReadStatus().Granted && e.store.WriteStatus().Granted) {
		return nil
	}

	tx, err := e.store.Begin(ctx, true)
	if err != nil {
		if storekv.IsNotPrimary(err) {
			return nil
		}
		return err
	}
	defer tx.Discard()

	schedMap, err := schedCodecMap(tx)
	if err != nil {
		return e.classifyTickError(err)
	}
	hcMap, err := hcCodecMap(tx)
	if err != nil {
		return e.classifyTickError(err)
	}

	entries, err := schedMap.IterateOrdered(nil)
	if err != nil {
		return e.classifyTickError(err)
	}

	now := watchmodel.Now()
	for _, entry := range entries {
		if entry.Value.ExecutionTicks >= now {
			break // ascending order: everything after this is also future
		}
		if err := e.executeItem(ctx, hcMap, schedMap, entry); err != nil {
			if storekv.IsNotPrimary(err) {
				return nil
			}
			if werr.Is(err, werr.ClassTransient) {
				e.logger.Error("healthcheck tick: transient failure executing item", "key", entry.Value.Key, "error", err)
				continue
			}
			e.health.Store(watchmodel.HealthError)
			return err
		}
	}

	return tx.Commit()
}

func (e *Engine) classifyTickError(err error) error {
	if werr.Is(err, werr.ClassTransient) {
		e.logger.Error("healthcheck tick: transient store failure", "error", err)
		return nil
	}
	e.health.Store(watchmodel.HealthError)
	return err
}
