package healthcheck

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/watchdog/internal/platformclient"
	"github.com/wisbric/watchdog/internal/storekv"
	"github.com/wisbric/watchdog/internal/telemetrysink"
	"github.com/wisbric/watchdog/internal/watchmodel"
)

func newTestEngine(t *testing.T) (*Engine, *storekv.Store, *platformclient.Fake) {
	t.Helper()
	store, err := storekv.Open(filepath.Join(t.TempDir(), "watchdog.db"), nil)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	fake := platformclient.NewFake()
	sink := telemetrysink.NewLogSink(slog.Default())
	engine := New(store, fake, sink, slog.Default(), time.Second)
	t.Cleanup(engine.Close)
	return engine, store, fake
}

func TestRegisterRejectsUnknownService(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	hc := watchmodel.HealthCheck{
		Name:        "probe-a",
		ServiceName: "fabric:/App/Service",
		SuffixPath:  "/health",
	}
	if err := engine.Register(context.Background(), hc); err == nil {
		t.Fatal("expected Register to fail for an unregistered service")
	}
}

func TestRegisterThenListRoundTrips(t *testing.T) {
	engine, _, fake := newTestEngine(t)
	fake.Services["fabric:/App/Service"] = true

	hc := watchmodel.HealthCheck{
		Name:        "probe-a",
		ServiceName: "fabric:/App/Service",
		SuffixPath:  "/health",
	}
	if err := engine.Register(context.Background(), hc); err != nil {
		t.Fatalf("Register: %v", err)
	}

	list, err := engine.List(context.Background(), "App", "Service", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Name != "probe-a" {
		t.Fatalf("expected one matching entry, got %+v", list)
	}

	if list, err = engine.List(context.Background(), "OtherApp", "", ""); err != nil {
		t.Fatalf("List: %v", err)
	} else if len(list) != 0 {
		t.Fatalf("expected no entries for a non-matching app filter, got %+v", list)
	}
}

func TestTickProbesDueItemAndReschedules(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	engine, _, fake := newTestEngine(t)
	fake.Services["fabric:/App/Service"] = true

	partitionID := uuid.New()
	fake.Partitions[partitionID] = platformclient.Partition{ID: partitionID, Kind: platformclient.KindSingleton}
	fake.Endpoints["fabric:/App/Service|"] = platformclient.ResolvedEndpoint{
		Role:      platformclient.RolePrimary,
		Listeners: map[string]string{"": srv.URL},
	}

	hc := watchmodel.HealthCheck{
		Name:        "probe-a",
		ServiceName: "fabric:/App/Service",
		Partition:   partitionID,
		SuffixPath:  "/health",
		Frequency:   time.Hour,
	}
	if err := engine.Register(context.Background(), hc); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected exactly one probe request, got %d", hits)
	}
	if len(fake.HealthReports) != 1 {
		t.Fatalf("expected one health report, got %d", len(fake.HealthReports))
	}
	if fake.HealthReports[0].State != platformclient.HealthOk {
		t.Fatalf("expected Ok verdict, got %v", fake.HealthReports[0].State)
	}

	list, err := engine.List(context.Background(), "App", "Service", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected the health check to survive a tick, got %+v", list)
	}
	if list[0].ResultCode != http.StatusOK {
		t.Fatalf("expected ResultCode 200, got %d", list[0].ResultCode)
	}
	if list[0].FailureCount != 0 {
		t.Fatalf("expected FailureCount reset to 0 on success, got %d", list[0].FailureCount)
	}

	// A second immediate tick must not re-probe: the item was rescheduled an
	// hour out.
	if err := engine.Tick(context.Background()); err != nil {
		t.Fatalf("second Tick: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected no further probe before the next due time, got %d hits", hits)
	}
}

func TestTickDeregistersWhenPartitionGone(t *testing.T) {
	engine, _, fake := newTestEngine(t)
	fake.Services["fabric:/App/Service"] = true

	missingPartition := uuid.New()
	hc := watchmodel.HealthCheck{
		Name:        "probe-a",
		ServiceName: "fabric:/App/Service",
		Partition:   missingPartition,
		SuffixPath:  "/health",
	}
	if err := engine.Register(context.Background(), hc); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	list, err := engine.List(context.Background(), "", "", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected the health check to be deregistered once its partition vanished, got %+v", list)
	}
}

func TestWorsenedFailureCountAccumulatesAcrossTicks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	engine, _, fake := newTestEngine(t)
	fake.Services["fabric:/App/Service"] = true

	partitionID := uuid.New()
	fake.Partitions[partitionID] = platformclient.Partition{ID: partitionID, Kind: platformclient.KindSingleton}
	fake.Endpoints["fabric:/App/Service|"] = platformclient.ResolvedEndpoint{
		Role:      platformclient.RolePrimary,
		Listeners: map[string]string{"": srv.URL},
	}

	hc := watchmodel.HealthCheck{
		Name:        "probe-a",
		ServiceName: "fabric:/App/Service",
		Partition:   partitionID,
		SuffixPath:  "/health",
		Frequency:   time.Nanosecond,
	}
	if err := engine.Register(context.Background(), hc); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for i := 0; i < 3; i++ {
		time.Sleep(time.Millisecond)
		if err := engine.Tick(context.Background()); err != nil {
			t.Fatalf("Tick %d: %v", i, err)
		}
	}

	list, err := engine.List(context.Background(), "", "", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected the check to remain registered, got %+v", list)
	}
	if list[0].FailureCount != 3 {
		t.Fatalf("expected FailureCount 3 after three failing probes, got %d", list[0].FailureCount)
	}
	for _, report := range fake.HealthReports {
		if report.State != platformclient.HealthError {
			t.Fatalf("expected every report to be Error, got %v", report.State)
		}
	}
}
