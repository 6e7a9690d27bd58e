package healthcheck

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/watchdog/internal/platformclient"
	"github.com/wisbric/watchdog/internal/storekv"
	"github.com/wisbric/watchdog/internal/watchmodel"
	"github.com/wisbric/watchdog/internal/werr"
)

// executeItem runs one due ScheduledItem: load its HealthCheck, resolve the
// target partition, probe it, CAS the updated result back in, and
// reschedule, per spec.md §4.2.b.
func (e *Engine) executeItem(ctx context.Context, hcMap *storekv.Map[watchmodel.HealthCheck], schedMap *storekv.Map[watchmodel.ScheduledItem], entry storekv.Entry[watchmodel.ScheduledItem]) error {
	hc, witness, ok, err := hcMap.TryGet(storekv.StringKey(entry.Value.Key), storekv.ModeUpdate)
	if err != nil {
		return err
	}
	if !ok {
		// The HealthCheck was removed since this item was scheduled; drop
		// the stale schedule entry and move on.
		_, err := schedMap.TryRemove(entry.Key)
		return err
	}

	partition, err := e.platform.FindPartition(ctx, hc.Partition)
	if err != nil {
		return werr.New(werr.ClassTransient, fmt.Errorf("resolving partition for %s: %w", hc.Key(), err))
	}
	if partition == nil {
		// The target no longer exists in the cluster: deregister.
		if _, err := hcMap.TryRemove(storekv.StringKey(hc.Key())); err != nil {
			return err
		}
		if _, err := schedMap.TryRemove(entry.Key); err != nil {
			return err
		}
		return nil
	}

	updated, probeErr := e.probe(ctx, hc, *partition)
	if probeErr != nil {
		switch werr.ClassOf(probeErr) {
		case werr.ClassInvalidArgument:
			// A malformed request can't ever succeed; record the failure but
			// keep rescheduling so an operator sees it worsen rather than
			// silently stop.
			e.logger.Error("healthcheck probe misconfigured", "key", hc.Key(), "error", probeErr)
		case werr.ClassTransient:
			e.logger.Error("healthcheck probe transient failure", "key", hc.Key(), "error", probeErr)
		default:
			// An unrecognized partition kind or other invariant violation:
			// the record is left untouched and the tick itself fails.
			return probeErr
		}
	}

	swapped, err := hcMap.TryUpdate(storekv.StringKey(hc.Key()), updated, witness)
	if err != nil {
		return err
	}
	if !swapped {
		// Someone else (a concurrent Register, or a racing tick) mutated
		// this entry first; leave the existing schedule entry alone, the
		// next tick will pick up whatever state won.
		return nil
	}

	if _, err := schedMap.TryRemove(entry.Key); err != nil {
		return err
	}
	nextExecution := watchmodel.Now().Add(updated.Frequency)
	return insertScheduledItem(schedMap, nextExecution, hc.Key())
}

// probe executes one HTTP health check against hc's target partition,
// per spec.md §4.2.c: resolve the partition key from partition.Kind,
// resolve the endpoint, classify the response, and report the verdict
// through both the platform client and telemetry sink.
func (e *Engine) probe(ctx context.Context, hc watchmodel.HealthCheck, partition platformclient.Partition) (watchmodel.HealthCheck, error) {
	partitionKey, err := partitionKeyFor(partition)
	if err != nil {
		return failedProbe(hc, err), werr.New(werr.ClassFatal, err)
	}

	endpoint, err := e.platform.ResolveEndpoint(ctx, hc.ServiceName, partitionKey)
	if err != nil {
		return failedProbe(hc, err), werr.New(werr.ClassTransient, fmt.Errorf("resolving endpoint: %w", err))
	}
	if endpoint == nil || (endpoint.Role != platformclient.RolePrimary && endpoint.Role != platformclient.RoleStateless) {
		err := fmt.Errorf("no primary/stateless endpoint for %s", hc.Key())
		return failedProbe(hc, err), werr.New(werr.ClassTransient, err)
	}
	base, ok := resolveListener(*endpoint, hc.Endpoint)
	if !ok {
		err := fmt.Errorf("listener %q not found for %s", hc.Endpoint, hc.Key())
		return failedProbe(hc, err), werr.New(werr.ClassTransient, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, hc.MaximumDuration)
	defer cancel()

	var body io.Reader
	if len(hc.Content) > 0 {
		body = bytes.NewReader(hc.Content)
	}
	target := strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(hc.SuffixPath, "/")
	req, err := http.NewRequestWithContext(reqCtx, hc.Method, target, body)
	if err != nil {
		return failedProbe(hc, err), werr.New(werr.ClassInvalidArgument, err)
	}
	for k, v := range hc.Headers {
		req.Header.Set(k, v)
	}
	if hc.MediaType != nil {
		req.Header.Set("Content-Type", *hc.MediaType)
	}

	start := time.Now()
	resp, err := e.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		updated := failedProbe(hc, err)
		e.reportVerdict(ctx, updated, partition.ID, watchmodel.VerdictError, duration, false)
		return updated, nil
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	verdict, success := watchmodel.ClassifyStatus(resp.StatusCode, hc.WarningStatusCodes, hc.ErrorStatusCodes)

	updated := hc
	updated.LastAttempt = watchmodel.Now()
	updated.ResultCode = resp.StatusCode
	updated.Duration = duration.Milliseconds()
	if success {
		updated.FailureCount = 0
	} else {
		updated.FailureCount++
	}

	e.reportVerdict(ctx, updated, partition.ID, verdict, duration, success)
	return updated, nil
}

// reportVerdict publishes a probe result through both the PlatformClient
// (partition health) and the TelemetrySink (availability), per spec.md
// §4.2.c. Failures reporting out are logged, never propagated: a telemetry
// outage must not stop the schedule from advancing.
func (e *Engine) reportVerdict(ctx context.Context, hc watchmodel.HealthCheck, partitionID uuid.UUID, verdict watchmodel.Verdict, duration time.Duration, success bool) {
	state := toClientHealthState(watchmodel.FromVerdict(verdict))
	if err := e.platform.ReportPartitionHealth(ctx, partitionID, "HealthCheckEngine", hc.Name, state); err != nil {
		e.logger.Error("healthcheck: reporting partition health failed", "key", hc.Key(), "error", err)
	}
	e.sink.ReportAvailability(ctx, hc.ServiceName, hc.Name, hc.Name, hc.LastAttempt.Time(), duration, hc.Endpoint, success)
}

// failedProbe records a transient network/platform probe failure, per
// spec.md §4.2.c: Duration=-1 and ResultCode=500 are the fixed sentinels for
// a probe that never got a real response, regardless of which step failed.
func failedProbe(hc watchmodel.HealthCheck, _ error) watchmodel.HealthCheck {
	updated := hc
	updated.LastAttempt = watchmodel.Now()
	updated.ResultCode = 500
	updated.Duration = -1
	updated.FailureCount++
	return updated
}

// partitionKeyFor derives the partition-key string ResolveEndpoint expects,
// per spec.md §4.2.c: empty for a singleton, the decimal low key for an
// Int64Range partition, the name for a Named partition.
func partitionKeyFor(p platformclient.Partition) (string, error) {
	switch p.Kind {
	case platformclient.KindSingleton:
		return "", nil
	case platformclient.KindInt64Range:
		return fmt.Sprintf("%d", p.LowKey), nil
	case platformclient.KindNamed:
		return p.Name, nil
	default:
		return "", fmt.Errorf("healthcheck: unrecognized partition kind %d", p.Kind)
	}
}

func resolveListener(ep platformclient.ResolvedEndpoint, name string) (string, bool) {
	if name == "" {
		return ep.FirstListener()
	}
	addr, ok := ep.Listeners[name]
	return addr, ok
}

func toClientHealthState(s watchmodel.HealthState) platformclient.HealthState {
	switch s {
	case watchmodel.HealthOk:
		return platformclient.HealthOk
	case watchmodel.HealthWarning:
		return platformclient.HealthWarning
	default:
		return platformclient.HealthError
	}
}
