package cleanup

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/atomic"

	"github.com/wisbric/watchdog/internal/storekv"
	"github.com/wisbric/watchdog/internal/watchmodel"
)

// DefaultInterval is the tick interval spec.md §4.6 calls DiagnosticInterval.
const DefaultInterval = 2 * time.Minute

// DefaultTimeToKeep is spec.md §4.6's DiagnosticTimeToKeep default.
const DefaultTimeToKeep = 10 * 24 * time.Hour

// DefaultTargetCount is spec.md §4.6's DiagnosticTargetCount default. (§4.4's
// prose default of 5000 is the per-pass illustrative figure; the coordinator
// config table's 8000 is the value actually wired through Coordinator.Apply,
// so that is what this package defaults to absent explicit configuration.)
const DefaultTargetCount = 8000

// MaximumBatchSize bounds a single BatchDelete call, grouped by PartitionKey.
const MaximumBatchSize = 100

// BatchPause is the pause after each batch submission, successful or not, to
// avoid throttling.
const BatchPause = 100 * time.Millisecond

// ServerCallTimeout and OverallBatchTimeout bound one batch submission,
// per spec.md §4.4.
const (
	ServerCallTimeout   = 5 * time.Second
	OverallBatchTimeout = 60 * time.Second
)

// DefaultTables are the three fixed diagnostic tables CleanupEngine ages out,
// per spec.md §4.4's "three configured table names" (named per scenario S6).
var DefaultTables = []string{
	"WADPerformanceCountersTable",
	"WADWindowsEventLogsTable",
	"WADDiagnosticInfrastructureLogsTable",
}

// Engine is CleanupEngine.
type Engine struct {
	store      *storekv.Store
	tableStore TableStore
	logger     *slog.Logger
	tables     []string

	interval    atomic.Duration
	timeToKeep  atomic.Duration
	targetCount atomic.Int64
	endpoint    atomic.String
	sasToken    atomic.String

	health atomic.Value // watchmodel.HealthState, boxed
}

// New constructs a CleanupEngine. tables overrides DefaultTables when
// non-empty (primarily for tests).
func New(store *storekv.Store, tableStore TableStore, logger *slog.Logger, interval time.Duration, tables []string) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if len(tables) == 0 {
		tables = DefaultTables
	}
	e := &Engine{store: store, tableStore: tableStore, logger: logger, tables: tables}
	e.interval.Store(interval)
	e.timeToKeep.Store(DefaultTimeToKeep)
	e.targetCount.Store(DefaultTargetCount)
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
func (e *Engine) Interval() time.Duration { return e.interval.Load() }

// Configure applies the DiagnosticTimeToKeep/DiagnosticTargetCount/
// DiagnosticEndpoint/DiagnosticSasToken configuration keys (spec.md §4.6),
// atomically and without tearing down the engine.
func (e *Engine) Configure(timeToKeep time.Duration, targetCount int, endpoint, sasToken string) {
	if timeToKeep > 0 {
		e.timeToKeep.Store(timeToKeep)
	}
	if targetCount > 0 {
		e.targetCount.Store(int64(targetCount))
	}
	e.endpoint.Store(endpoint)
	e.sasToken.Store(sasToken)
}

// Health returns the engine's current HealthState for the self-reporter.
func (e *Engine) Health() watchmodel.HealthState {
	return e.health.Load().(watchmodel.HealthState)
}

// Tick performs one CleanupEngine pass: age out rows older than TimeToKeep
// from every configured table, per spec.md §4.4. The running total is checked
// against TargetCount before each batch, so the pass stops once the target is
// reached; the last batch completes in full, so the total can exceed it.
func (e *Engine) Tick(ctx context.Context) error {
	if e.endpoint.Load() == "" || e.sasToken.Load() == "" {
		return nil
	}
	// Gated the same way as the other two engines so only the replica
	// holding write status runs a cleanup pass.
	if !e.store.Ready() {
		return nil
	}

	target := int(e.targetCount.Load())
	cutoff := time.Now().Add(-e.timeToKeep.Load())
	deleted := 0
	clean := true

tables:
	for _, table := range e.tables {
		exists, err := e.tableStore.TableExists(ctx, table)
		if err != nil {
			e.logger.Error("cleanup: checking table existence failed", "table", table, "error", err)
			clean = false
			continue
		}
		if !exists {
			continue
		}

		continuation := ""
		for {
			if deleted >= target {
				break tables
			}
			rows, next, err := e.tableStore.QueryByTimestamp(ctx, table, cutoff, continuation)
			if err != nil {
				e.logger.Error("cleanup: querying rows failed", "table", table, "error", err)
				clean = false
				break
			}

			for _, batch := range groupByPartitionKey(rows, MaximumBatchSize) {
				if deleted >= target {
					break tables
				}
				n, err := e.submitBatch(ctx, table, batch)
				deleted += n
				if err != nil {
					e.logger.Error("cleanup: batch submission abandoned", "table", table, "error", err)
					clean = false
				}
				time.Sleep(BatchPause)
			}

			if next == "" {
				break
			}
			continuation = next
		}
	}

	if clean {
		e.health.Store(watchmodel.HealthOk)
	} else {
		e.health.Store(watchmodel.HealthError)
	}
	return nil
}
