package platformclient

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Fake is an in-memory PlatformClient for engine tests, modeled on the
// teacher's integration.NoopCaller: every call is recorded and driven by
// fields the test sets up ahead of time rather than real RPC.
type Fake struct {
	mu sync.Mutex

	Services    map[string]bool // serviceURI -> exists
	Partitions  map[uuid.UUID]Partition
	Endpoints   map[string]ResolvedEndpoint // "service|partitionKey" -> endpoint
	AppLoads    map[string][]LoadReport
	PartLoads   map[uuid.UUID][]LoadReport
	ReplicaLoads map[string][]LoadReport // "partition|replica" -> reports
	PartitionPages map[string][]Partition
	ReplicaPages   map[uuid.UUID][]Replica
	Cluster        ClusterHealth

	HealthReports []HealthReport
	RefreshCount  int
	Closed        bool
}

// HealthReport records one call to ReportPartitionHealth for test assertions.
type HealthReport struct {
	PartitionID uuid.UUID
	Source      string
	Property    string
	State       HealthState
}

// NewFake returns an empty Fake ready for a test to populate.
func NewFake() *Fake {
	return &Fake{
		Services:       make(map[string]bool),
		Partitions:     make(map[uuid.UUID]Partition),
		Endpoints:      make(map[string]ResolvedEndpoint),
		AppLoads:       make(map[string][]LoadReport),
		PartLoads:      make(map[uuid.UUID][]LoadReport),
		ReplicaLoads:   make(map[string][]LoadReport),
		PartitionPages: make(map[string][]Partition),
		ReplicaPages:   make(map[uuid.UUID][]Replica),
	}
}

func (f *Fake) ServiceExists(_ context.Context, serviceURI string, _ *uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Services[serviceURI], nil
}

func (f *Fake) FindPartition(_ context.Context, id uuid.UUID) (*Partition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Partitions[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *Fake) ResolveEndpoint(_ context.Context, serviceURI, partitionKey string) (*ResolvedEndpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ep, ok := f.Endpoints[serviceURI+"|"+partitionKey]
	if !ok {
		return nil, nil
	}
	return &ep, nil
}

func (f *Fake) ReportPartitionHealth(_ context.Context, partitionID uuid.UUID, source, property string, state HealthState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HealthReports = append(f.HealthReports, HealthReport{partitionID, source, property, state})
	return nil
}

func (f *Fake) ClusterHealth(_ context.Context) (ClusterHealth, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Cluster, nil
}

func (f *Fake) PartitionLoad(_ context.Context, id uuid.UUID) ([]LoadReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.PartLoads[id], nil
}

func (f *Fake) ReplicaLoad(_ context.Context, partitionID uuid.UUID, replicaID string) ([]LoadReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ReplicaLoads[partitionID.String()+"|"+replicaID], nil
}

func (f *Fake) AppLoad(_ context.Context, app string) ([]LoadReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.AppLoads[app], nil
}

func (f *Fake) PartitionList(_ context.Context, serviceURI, continuation string) (Page[Partition], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.PartitionPages[serviceURI]
	return Page[Partition]{Items: items}, nil
}

func (f *Fake) ReplicaList(_ context.Context, partitionID uuid.UUID, continuation string) (Page[Replica], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Page[Replica]{Items: f.ReplicaPages[partitionID]}, nil
}

func (f *Fake) Refresh(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RefreshCount++
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

var _ Client = (*Fake)(nil)
