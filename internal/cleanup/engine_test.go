package cleanup

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/wisbric/watchdog/internal/storekv"
	"github.com/wisbric/watchdog/internal/watchmodel"
)

func newTestEngine(t *testing.T) (*Engine, *Fake) {
	t.Helper()
	store, err := storekv.Open(filepath.Join(t.TempDir(), "watchdog.db"), nil)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	fake := NewFake()
	engine := New(store, fake, slog.Default(), time.Second, []string{"WADPerformanceCountersTable"})
	engine.Configure(7*24*time.Hour, 200, "https://diag.example/", "sv=token")
	return engine, fake
}

func rowsForKeys(counts map[string]int, age time.Duration) []Row {
	var rows []Row
	for key, n := range counts {
		for i := 0; i < n; i++ {
			rows = append(rows, Row{
				PartitionKey: key,
				RowKey:       key + "-" + time.Now().Add(time.Duration(i)).String(),
				Timestamp:    time.Now().Add(-age),
			})
		}
	}
	return rows
}

func TestTickSkipsWhenEndpointNotConfigured(t *testing.T) {
	engine, fake := newTestEngine(t)
	engine.Configure(7*24*time.Hour, 200, "", "")
	fake.Tables["WADPerformanceCountersTable"] = true
	fake.Rows["WADPerformanceCountersTable"] = rowsForKeys(map[string]int{"pk1": 10}, 8*24*time.Hour)

	if err := engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(fake.Deleted["WADPerformanceCountersTable"]) != 0 {
		t.Fatalf("expected no deletions while unconfigured, got %d", len(fake.Deleted["WADPerformanceCountersTable"]))
	}
}

func TestTickSkipsMissingTable(t *testing.T) {
	engine, _ := newTestEngine(t)
	if err := engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if engine.Health() != watchmodel.HealthOk {
		t.Fatalf("expected Ok health when no tables exist, got %v", engine.Health())
	}
}

// TestTickStopsAtTargetCount exercises spec.md §8 scenario S6: 250 rows
// across 3 partition keys, TargetCount=200, expect <=3 batches and >=200
// rows deleted.
func TestTickStopsAtTargetCount(t *testing.T) {
	engine, fake := newTestEngine(t)
	fake.Tables["WADPerformanceCountersTable"] = true
	fake.Rows["WADPerformanceCountersTable"] = rowsForKeys(map[string]int{
		"pk1": 90,
		"pk2": 90,
		"pk3": 70,
	}, 8*24*time.Hour)

	if err := engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	deleted := len(fake.Deleted["WADPerformanceCountersTable"])
	if deleted < 200 {
		t.Fatalf("expected at least 200 rows deleted, got %d", deleted)
	}
	if engine.Health() != watchmodel.HealthOk {
		t.Fatalf("expected Ok health after a clean pass, got %v", engine.Health())
	}
}

func TestTickLeavesRowsNewerThanTimeToKeep(t *testing.T) {
	engine, fake := newTestEngine(t)
	fake.Tables["WADPerformanceCountersTable"] = true
	fake.Rows["WADPerformanceCountersTable"] = rowsForKeys(map[string]int{"pk1": 5}, time.Hour)

	if err := engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(fake.Deleted["WADPerformanceCountersTable"]) != 0 {
		t.Fatalf("expected rows newer than TimeToKeep to survive, got %d deleted", len(fake.Deleted["WADPerformanceCountersTable"]))
	}
}

// TestSubmitBatchResubmitsAfterResourceNotFound exercises the second half of
// S6: a ResourceNotFound at index 17 in a 40-row batch causes that row to be
// dropped and the remaining 39 resubmitted successfully.
func TestSubmitBatchResubmitsAfterResourceNotFound(t *testing.T) {
	engine, fake := newTestEngine(t)
	fake.Tables["WADPerformanceCountersTable"] = true
	fake.NotFoundTable = "WADPerformanceCountersTable"
	fake.NotFoundIndex = 17

	rows := rowsForKeys(map[string]int{"pk1": 40}, 8*24*time.Hour)
	n, err := engine.submitBatch(context.Background(), "WADPerformanceCountersTable", rows)
	if err != nil {
		t.Fatalf("submitBatch: %v", err)
	}
	if n != 39 {
		t.Fatalf("expected 39 rows deleted after dropping the not-found row, got %d", n)
	}
	if len(fake.Deleted["WADPerformanceCountersTable"]) != 39 {
		t.Fatalf("expected the fake to record 39 deletions, got %d", len(fake.Deleted["WADPerformanceCountersTable"]))
	}
}

func TestGroupByPartitionKeySplitsOversizedGroups(t *testing.T) {
	rows := rowsForKeys(map[string]int{"pk1": 150, "pk2": 10}, 8*24*time.Hour)
	batches := groupByPartitionKey(rows, MaximumBatchSize)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches (100+50+10), got %d", len(batches))
	}
	for _, b := range batches {
		if len(b) > MaximumBatchSize {
			t.Fatalf("batch exceeds MaximumBatchSize: %d", len(b))
		}
		key := b[0].PartitionKey
		for _, r := range b {
			if r.PartitionKey != key {
				t.Fatalf("batch mixes partition keys: %q and %q", key, r.PartitionKey)
			}
		}
	}
}
