// Package platformclient declares the abstract host-platform collaborator
// (spec.md §6) the engines use to resolve partitions/endpoints and publish
// health/load reports, plus an HTTP-based reference adapter and an
// in-memory fake for tests.
package platformclient

import (
	"context"

	"github.com/google/uuid"
)

// PartitionKind determines how an endpoint's partition key is derived
// (spec.md §4.2.c).
type PartitionKind int

const (
	KindSingleton PartitionKind = iota
	KindInt64Range
	KindNamed
)

// Partition describes one shard of a service.
type Partition struct {
	ID       uuid.UUID
	Kind     PartitionKind
	LowKey   int64  // valid when Kind == KindInt64Range
	Name     string // valid when Kind == KindNamed
	Status   PartitionStatus
}

type PartitionStatus int

const (
	PartitionUnknown PartitionStatus = iota
	PartitionReady
	PartitionNotReady
)

// ReplicaRole is the role of a running copy of a partition.
type ReplicaRole int

const (
	RoleUnknown ReplicaRole = iota
	RolePrimary
	RoleSecondary
	RoleStateless
)

// Replica is a running copy of a partition.
type Replica struct {
	ID        string
	Role      ReplicaRole
	Status    PartitionStatus
	Endpoints ResolvedEndpoint
}

// ResolvedEndpoint is the listener multi-map exposed by one replica.
type ResolvedEndpoint struct {
	Role      ReplicaRole
	Listeners map[string]string // listener name → base address
}

// FirstListener returns an arbitrary listener's address, used when the
// caller has no named-endpoint preference. It reports false if there are
// none.
func (e ResolvedEndpoint) FirstListener() (string, bool) {
	for _, addr := range e.Listeners {
		return addr, true
	}
	return "", false
}

// HealthState mirrors watchmodel.HealthState without importing it, so this
// package stays leaf-level; internal/healthcheck converts at the boundary.
type HealthState int

const (
	HealthOk HealthState = iota
	HealthWarning
	HealthError
)

// ClusterHealth is the cluster-wide roll-up returned by ClusterHealth.
type ClusterHealth struct {
	Aggregate    HealthState
	Applications map[string]HealthState
	Nodes        map[string]HealthState
}

// LoadReport is one named metric value from the platform.
type LoadReport struct {
	Name  string
	Value float64
}

// Page is a single page of a continuation-token-paginated list call.
type Page[T any] struct {
	Items      []T
	Continuation string // empty means no more pages
}

// Client is the abstract PlatformClient collaborator from spec.md §6.
type Client interface {
	ServiceExists(ctx context.Context, serviceURI string, partition *uuid.UUID) (bool, error)
	FindPartition(ctx context.Context, partitionID uuid.UUID) (*Partition, error)
	ResolveEndpoint(ctx context.Context, serviceURI, partitionKey string) (*ResolvedEndpoint, error)
	ReportPartitionHealth(ctx context.Context, partitionID uuid.UUID, source, property string, state HealthState) error
	ClusterHealth(ctx context.Context) (ClusterHealth, error)

	PartitionLoad(ctx context.Context, partitionID uuid.UUID) ([]LoadReport, error)
	ReplicaLoad(ctx context.Context, partitionID uuid.UUID, replicaID string) ([]LoadReport, error)
	AppLoad(ctx context.Context, app string) ([]LoadReport, error)

	PartitionList(ctx context.Context, serviceURI, continuation string) (Page[Partition], error)
	ReplicaList(ctx context.Context, partitionID uuid.UUID, continuation string) (Page[Replica], error)

	// Refresh atomically swaps out the underlying connection, used after a
	// transient "platform closed" error (spec.md §4.3).
	Refresh(ctx context.Context) error

	// Close releases any held connections.
	Close() error
}
