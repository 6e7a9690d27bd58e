package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// submitBatch submits rows as one (possibly shrinking) batch, honoring the
// ResourceNotFound-row-removal rule from spec.md §4.4: a row the store no
// longer has is dropped and the remainder resubmitted, up to once per row.
func (e *Engine) submitBatch(ctx context.Context, table string, rows []Row) (int, error) {
	overallCtx, cancel := context.WithTimeout(ctx, OverallBatchTimeout)
	defer cancel()

	working := rows
	for len(working) > 0 {
		results, err := e.submitWithRetry(overallCtx, table, working)
		if err != nil {
			return 0, err
		}

		hasNotFound := false
		notFoundAt := 0
		for _, r := range results {
			if r.HasNotFound {
				hasNotFound = true
				notFoundAt = r.NotFoundIndex
				break
			}
		}
		if !hasNotFound {
			return len(working), nil
		}
		if notFoundAt < 0 || notFoundAt >= len(working) {
			return 0, fmt.Errorf("cleanup: resourcenotfound index %d out of range for a batch of %d rows", notFoundAt, len(working))
		}
		working = dropIndex(working, notFoundAt)
	}
	return 0, nil
}

// submitWithRetry runs one BatchDelete call with exponential backoff (base
// 1s, 3 attempts), each bounded by ServerCallTimeout.
func (e *Engine) submitWithRetry(ctx context.Context, table string, rows []Row) ([]Result, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second

	return backoff.Retry(ctx, func() ([]Result, error) {
		callCtx, cancel := context.WithTimeout(ctx, ServerCallTimeout)
		defer cancel()
		return e.tableStore.BatchDelete(callCtx, table, rows, BatchOptions{
			ServerTimeout:  ServerCallTimeout,
			OverallTimeout: OverallBatchTimeout,
		})
	}, backoff.WithBackOff(b), backoff.WithMaxTries(3))
}

func dropIndex(rows []Row, idx int) []Row {
	out := make([]Row, 0, len(rows)-1)
	out = append(out, rows[:idx]...)
	out = append(out, rows[idx+1:]...)
	return out
}

// groupByPartitionKey buckets rows into batches of at most maxSize, never
// mixing partition keys within one batch (an Azure-table-style batch
// transaction requires a single partition key), preserving the order
// partition keys first appeared in.
func groupByPartitionKey(rows []Row, maxSize int) [][]Row {
	byKey := make(map[string][]Row)
	var order []string
	for _, r := range rows {
		if _, ok := byKey[r.PartitionKey]; !ok {
			order = append(order, r.PartitionKey)
		}
		byKey[r.PartitionKey] = append(byKey[r.PartitionKey], r)
	}

	var batches [][]Row
	for _, key := range order {
		group := byKey[key]
		for len(group) > 0 {
			n := maxSize
			if n > len(group) {
				n = len(group)
			}
			batches = append(batches, group[:n])
			group = group[n:]
		}
	}
	return batches
}
