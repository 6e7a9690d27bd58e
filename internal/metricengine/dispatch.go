package metricengine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wisbric/watchdog/internal/platformclient"
	"github.com/wisbric/watchdog/internal/watchmodel"
	"github.com/wisbric/watchdog/internal/werr"
)

// dispatch routes one subscription to the correct pull shape, per spec.md
// §4.3.
func (e *Engine) dispatch(ctx context.Context, mc watchmodel.MetricCheck) error {
	switch {
	case mc.Service != "" && mc.Partition != "":
		return e.dispatchPartition(ctx, mc)
	case mc.Service != "":
		return e.dispatchService(ctx, mc)
	default:
		return e.dispatchApplication(ctx, mc)
	}
}

// dispatchPartition handles the (svc set, partition set) shape: every report
// PartitionLoad returns is emitted, unfiltered by MetricNames (spec.md §4.3).
func (e *Engine) dispatchPartition(ctx context.Context, mc watchmodel.MetricCheck) error {
	partitionID, err := uuid.Parse(mc.Partition)
	if err != nil {
		return werr.New(werr.ClassInvalidArgument, fmt.Errorf("metricengine: parsing partition %q: %w", mc.Partition, err))
	}
	reports, err := e.platform.PartitionLoad(ctx, partitionID)
	if err != nil {
		return classifyPlatformError(err)
	}
	for _, r := range reports {
		e.emit(ctx, mc.Service, mc.Partition, r.Name, r.Value)
	}
	return nil
}

// dispatchService handles the (svc set, no partition) shape: walk every
// Ready partition and every Ready replica of the service, emitting only the
// reports named in mc.MetricNames.
func (e *Engine) dispatchService(ctx context.Context, mc watchmodel.MetricCheck) error {
	serviceURI := fmt.Sprintf("fabric:/%s/%s", mc.Application, mc.Service)
	partitions, err := fetchAllPartitions(ctx, e.platform, serviceURI)
	if err != nil {
		return err
	}
	for _, partition := range partitions {
		if partition.Status != platformclient.PartitionReady {
			continue
		}
		replicas, err := fetchAllReplicas(ctx, e.platform, partition.ID)
		if err != nil {
			return err
		}
		for _, replica := range replicas {
			if replica.Status != platformclient.PartitionReady {
				continue
			}
			reports, err := e.platform.ReplicaLoad(ctx, partition.ID, replica.ID)
			if err != nil {
				return classifyPlatformError(err)
			}
			for _, r := range reports {
				if mc.HasMetric(r.Name) {
					e.emit(ctx, mc.Service, replica.ID, r.Name, r.Value)
				}
			}
		}
	}
	return nil
}

// dispatchApplication handles the (no svc) shape: AppLoad, filtered by
// mc.MetricNames.
func (e *Engine) dispatchApplication(ctx context.Context, mc watchmodel.MetricCheck) error {
	reports, err := e.platform.AppLoad(ctx, mc.Application)
	if err != nil {
		return classifyPlatformError(err)
	}
	for _, r := range reports {
		if mc.HasMetric(r.Name) {
			e.emit(ctx, mc.Application, mc.Application, r.Name, r.Value)
		}
	}
	return nil
}

func (e *Engine) emit(ctx context.Context, role, instance, name string, value float64) {
	e.sink.ReportMetric(ctx, role, instance, name, value)
	e.count.Inc()
}

func classifyPlatformError(err error) error {
	if platformclient.IsNotFound(err) {
		return err
	}
	if platformclient.IsTransient(err) {
		return werr.New(werr.ClassTransient, err)
	}
	return werr.New(werr.ClassFatal, err)
}

// fetchAllPartitions walks PartitionList's continuation-token pagination,
// retrying each page up to pageRetryBudget times on a transient error and
// returning whatever was accumulated once the budget is exhausted, per
// spec.md §4.3.
func fetchAllPartitions(ctx context.Context, client platformclient.Client, serviceURI string) ([]platformclient.Partition, error) {
	var all []platformclient.Partition
	continuation := ""
	for {
		page, err := fetchPartitionPage(ctx, client, serviceURI, continuation)
		if err != nil {
			if platformclient.IsNotFound(err) {
				return all, err
			}
			if platformclient.IsTransient(err) {
				// Retry budget exhausted: keep what was accumulated.
				return all, nil
			}
			return all, classifyPlatformError(err)
		}
		all = append(all, page.Items...)
		if page.Continuation == "" {
			return all, nil
		}
		continuation = page.Continuation
	}
}

func fetchPartitionPage(ctx context.Context, client platformclient.Client, serviceURI, continuation string) (platformclient.Page[platformclient.Partition], error) {
	var lastErr error
	for attempt := 0; attempt < pageRetryBudget; attempt++ {
		page, err := client.PartitionList(ctx, serviceURI, continuation)
		if err == nil {
			return page, nil
		}
		if platformclient.IsNotFound(err) {
			return platformclient.Page[platformclient.Partition]{}, err
		}
		if !platformclient.IsTransient(err) {
			return platformclient.Page[platformclient.Partition]{}, err
		}
		lastErr = err
	}
	return platformclient.Page[platformclient.Partition]{}, lastErr
}

// fetchAllReplicas mirrors fetchAllPartitions for ReplicaList.
func fetchAllReplicas(ctx context.Context, client platformclient.Client, partitionID uuid.UUID) ([]platformclient.Replica, error) {
	var all []platformclient.Replica
	continuation := ""
	for {
		page, err := fetchReplicaPage(ctx, client, partitionID, continuation)
		if err != nil {
			if platformclient.IsNotFound(err) {
				return all, err
			}
			if platformclient.IsTransient(err) {
				// Retry budget exhausted: keep what was accumulated.
				return all, nil
			}
			return all, classifyPlatformError(err)
		}
		all = append(all, page.Items...)
		if page.Continuation == "" {
			return all, nil
		}
		continuation = page.Continuation
	}
}

func fetchReplicaPage(ctx context.Context, client platformclient.Client, partitionID uuid.UUID, continuation string) (platformclient.Page[platformclient.Replica], error) {
	var lastErr error
	for attempt := 0; attempt < pageRetryBudget; attempt++ {
		page, err := client.ReplicaList(ctx, partitionID, continuation)
		if err == nil {
			return page, nil
		}
		if platformclient.IsNotFound(err) {
			return platformclient.Page[platformclient.Replica]{}, err
		}
		if !platformclient.IsTransient(err) {
			return platformclient.Page[platformclient.Replica]{}, err
		}
		lastErr = err
	}
	return platformclient.Page[platformclient.Replica]{}, lastErr
}
