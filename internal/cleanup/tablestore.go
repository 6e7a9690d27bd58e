// Package cleanup implements CleanupEngine: batched, age-based deletion of
// diagnostic rows from an external table store (spec.md §4.4), plus the
// abstract TableStore collaborator it drives.
package cleanup

import (
	"context"
	"time"
)

// Row is one diagnostic record as seen by queryByTimestamp.
type Row struct {
	PartitionKey string
	RowKey       string
	Timestamp    time.Time
}

// BatchOptions bounds one batchDelete call, per spec.md §4.4 "Batch submission".
type BatchOptions struct {
	ServerTimeout  time.Duration
	OverallTimeout time.Duration
}

// Result is the per-row outcome of a batchDelete call.
type Result struct {
	StatusCode int
	// NotFoundIndex is set when the store reports ResourceNotFound for a
	// specific row in the batch; -1 means no row could be identified (an
	// unparseable or out-of-range index), which abandons the whole batch.
	NotFoundIndex int
	HasNotFound   bool
}

// TableStore is the abstract external diagnostic store from spec.md §6.
type TableStore interface {
	TableExists(ctx context.Context, name string) (bool, error)
	QueryByTimestamp(ctx context.Context, name string, cutoff time.Time, continuation string) (rows []Row, nextContinuation string, err error)
	BatchDelete(ctx context.Context, name string, rows []Row, opts BatchOptions) ([]Result, error)
}
