package selfreport

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/watchdog/internal/cleanup"
	"github.com/wisbric/watchdog/internal/healthcheck"
	"github.com/wisbric/watchdog/internal/metricengine"
	"github.com/wisbric/watchdog/internal/platformclient"
	"github.com/wisbric/watchdog/internal/storekv"
	"github.com/wisbric/watchdog/internal/watchmodel"
)

type recordingSink struct {
	healthEvents []string
	metrics      map[string]float64
}

func newRecordingSink() *recordingSink {
	return &recordingSink{metrics: make(map[string]float64)}
}

func (s *recordingSink) ReportMetric(_ context.Context, _, _, name string, value float64) {
	s.metrics[name] = value
}

func (s *recordingSink) ReportAvailability(_ context.Context, _, _, _ string, _ time.Time, _ time.Duration, _ string, _ bool) {
}

func (s *recordingSink) ReportHealth(_ context.Context, _, _, _, _, property, state string) {
	s.healthEvents = append(s.healthEvents, property+"="+state)
}

func (s *recordingSink) SetKey(string) {}

func newTestEngines(t *testing.T) (*healthcheck.Engine, *metricengine.Engine, *cleanup.Engine, *platformclient.Fake) {
	t.Helper()
	store, err := storekv.Open(filepath.Join(t.TempDir(), "watchdog.db"), nil)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	fake := platformclient.NewFake()
	sink := newRecordingSink()
	hcEngine := healthcheck.New(store, fake, sink, slog.Default(), time.Second)
	mEngine := metricengine.New(store, fake, sink, slog.Default(), time.Second)
	cEngine := cleanup.New(store, cleanup.NewFake(), slog.Default(), time.Second, nil)
	return hcEngine, mEngine, cEngine, fake
}

func TestTickDegradesWhenNoListenersBound(t *testing.T) {
	hcEngine, mEngine, cEngine, fake := newTestEngines(t)
	sink := newRecordingSink()
	reporter := New(fake, sink, slog.Default(), hcEngine, mEngine, cEngine, uuid.New(), time.Second)

	if err := reporter.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if reporter.Health() != watchmodel.HealthError {
		t.Fatalf("expected Error health with zero bound listeners, got %v", reporter.Health())
	}
	if reporter.Description() == "" {
		t.Fatalf("expected a non-empty failure description")
	}
}

func TestTickReportsOkWhenHealthy(t *testing.T) {
	hcEngine, mEngine, cEngine, fake := newTestEngines(t)
	sink := newRecordingSink()
	reporter := New(fake, sink, slog.Default(), hcEngine, mEngine, cEngine, uuid.New(), time.Second)
	reporter.SetListenerCount(1)

	if err := reporter.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if reporter.Health() != watchmodel.HealthOk {
		t.Fatalf("expected Ok health, got %v", reporter.Health())
	}

	found := false
	for _, ev := range sink.healthEvents {
		if ev == "WatchdogServiceHealth=Ok" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a WatchdogServiceHealth=Ok event, got %+v", sink.healthEvents)
	}
	if len(fake.HealthReports) != 4 {
		t.Fatalf("expected four partition-health reports, got %d", len(fake.HealthReports))
	}
}

func TestTickPostsOwnLoadCounters(t *testing.T) {
	hcEngine, mEngine, cEngine, fake := newTestEngines(t)
	sink := newRecordingSink()
	reporter := New(fake, sink, slog.Default(), hcEngine, mEngine, cEngine, uuid.New(), time.Second)
	reporter.SetListenerCount(1)

	if err := reporter.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if _, ok := sink.metrics["HealthCheckCount"]; !ok {
		t.Fatalf("expected HealthCheckCount to be reported")
	}
	if _, ok := sink.metrics["ObservedMetricCount"]; !ok {
		t.Fatalf("expected ObservedMetricCount to be reported")
	}
}

func TestTickSurfacesNonOkApplicationsAndNodes(t *testing.T) {
	hcEngine, mEngine, cEngine, fake := newTestEngines(t)
	fake.Cluster = platformclient.ClusterHealth{
		Aggregate:    platformclient.HealthWarning,
		Applications: map[string]platformclient.HealthState{"App": platformclient.HealthError},
		Nodes:        map[string]platformclient.HealthState{"Node1": platformclient.HealthWarning},
	}
	sink := newRecordingSink()
	reporter := New(fake, sink, slog.Default(), hcEngine, mEngine, cEngine, uuid.New(), time.Second)
	reporter.SetListenerCount(1)

	if err := reporter.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	var sawApp, sawNode bool
	for _, ev := range sink.healthEvents {
		if ev == "ApplicationHealth=Error" {
			sawApp = true
		}
		if ev == "NodeHealth=Warning" {
			sawNode = true
		}
	}
	if !sawApp {
		t.Fatalf("expected a non-Ok application to be surfaced, got %+v", sink.healthEvents)
	}
	if !sawNode {
		t.Fatalf("expected a non-Ok node to be surfaced, got %+v", sink.healthEvents)
	}
}
