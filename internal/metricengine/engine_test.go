package metricengine

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/watchdog/internal/platformclient"
	"github.com/wisbric/watchdog/internal/storekv"
	"github.com/wisbric/watchdog/internal/watchmodel"
)

func newTestEngine(t *testing.T) (*Engine, *platformclient.Fake, *recordingSink) {
	t.Helper()
	store, err := storekv.Open(filepath.Join(t.TempDir(), "watchdog.db"), nil)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	fake := platformclient.NewFake()
	sink := &recordingSink{}
	engine := New(store, fake, sink, slog.Default(), time.Second)
	return engine, fake, sink
}

type metricEvent struct {
	role, instance, name string
	value                float64
}

type recordingSink struct {
	metrics []metricEvent
}

func (s *recordingSink) ReportMetric(_ context.Context, role, instance, name string, value float64) {
	s.metrics = append(s.metrics, metricEvent{role, instance, name, value})
}

func (s *recordingSink) ReportAvailability(_ context.Context, _, _, _ string, _ time.Time, _ time.Duration, _ string, _ bool) {
}

func (s *recordingSink) ReportHealth(_ context.Context, _, _, _, _, _, _ string) {}

func (s *recordingSink) SetKey(string) {}

func TestRegisterThenListRoundTrips(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	mc := watchmodel.MetricCheck{Application: "App", Service: "Service", MetricNames: []string{"cpu"}}
	if err := engine.Register(context.Background(), mc); err != nil {
		t.Fatalf("Register: %v", err)
	}
	list, err := engine.List(context.Background(), "App", "", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Application != "App" {
		t.Fatalf("expected one matching subscription, got %+v", list)
	}
}

func TestTickDispatchesPartitionLoadUnfiltered(t *testing.T) {
	engine, fake, sink := newTestEngine(t)
	partitionID := uuid.New()
	fake.PartLoads[partitionID] = []platformclient.LoadReport{
		{Name: "cpu", Value: 1},
		{Name: "unsubscribed", Value: 2},
	}
	mc := watchmodel.MetricCheck{Application: "App", Service: "Service", Partition: partitionID.String(), MetricNames: []string{"cpu"}}
	if err := engine.Register(context.Background(), mc); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(sink.metrics) != 2 {
		t.Fatalf("expected both partition-load reports to be emitted unfiltered, got %+v", sink.metrics)
	}
	if engine.Count() != 2 {
		t.Fatalf("expected ObservedMetricCount 2, got %d", engine.Count())
	}
}

func TestTickDispatchesServiceScopeFilteredByMetricNames(t *testing.T) {
	engine, fake, sink := newTestEngine(t)

	partitionID := uuid.New()
	fake.PartitionPages["fabric:/App/Service"] = []platformclient.Partition{
		{ID: partitionID, Status: platformclient.PartitionReady},
	}
	fake.ReplicaPages[partitionID] = []platformclient.Replica{
		{ID: "replica-1", Status: platformclient.PartitionReady},
	}
	fake.ReplicaLoads[partitionID.String()+"|replica-1"] = []platformclient.LoadReport{
		{Name: "cpu", Value: 5},
		{Name: "mem", Value: 9},
	}

	mc := watchmodel.MetricCheck{Application: "App", Service: "Service", MetricNames: []string{"cpu"}}
	if err := engine.Register(context.Background(), mc); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(sink.metrics) != 1 || sink.metrics[0].name != "cpu" {
		t.Fatalf("expected only the subscribed metric name to be emitted, got %+v", sink.metrics)
	}
	if sink.metrics[0].instance != "replica-1" {
		t.Fatalf("expected the replica id as the instance label, got %q", sink.metrics[0].instance)
	}
}

func TestTickDispatchesApplicationScopeFilteredByMetricNames(t *testing.T) {
	engine, fake, sink := newTestEngine(t)
	fake.AppLoads["App"] = []platformclient.LoadReport{
		{Name: "cpu", Value: 3},
		{Name: "disk", Value: 4},
	}
	mc := watchmodel.MetricCheck{Application: "App", MetricNames: []string{"disk"}}
	if err := engine.Register(context.Background(), mc); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(sink.metrics) != 1 || sink.metrics[0].name != "disk" {
		t.Fatalf("expected only the subscribed metric name to be emitted, got %+v", sink.metrics)
	}
}

func TestTickSkipsPartitionsThatAreNotReady(t *testing.T) {
	engine, fake, sink := newTestEngine(t)
	partitionID := uuid.New()
	fake.PartitionPages["fabric:/App/Service"] = []platformclient.Partition{
		{ID: partitionID, Status: platformclient.PartitionNotReady},
	}
	mc := watchmodel.MetricCheck{Application: "App", Service: "Service", MetricNames: []string{"cpu"}}
	if err := engine.Register(context.Background(), mc); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(sink.metrics) != 0 {
		t.Fatalf("expected no metrics for a not-ready partition, got %+v", sink.metrics)
	}
}
