package storekv

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

// Tx is a scoped transaction handle. Its zero-value life cycle is
// begin → (mutate maps) → Commit, or an early Discard on any error path;
// Discard on an already-committed Tx is a harmless no-op, mirroring the
// "disposal aborts if not committed" pattern spec.md §9 calls for in place
// of the source's `using` blocks.
type Tx struct {
	btx       *bbolt.Tx
	ctx       context.Context
	committed bool
}

// Context returns the context the transaction was opened with, so callers
// can thread cancellation into any outbound call made mid-transaction.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Commit finalizes the transaction. Safe to call at most once.
func (tx *Tx) Commit() error {
	if tx.committed {
		return nil
	}
	select {
	case <-tx.ctx.Done():
		_ = tx.btx.Rollback()
		tx.committed = true
		return ErrTransient(tx.ctx.Err())
	default:
	}
	if err := tx.btx.Commit(); err != nil {
		tx.committed = true
		return ErrTransient(fmt.Errorf("storekv: commit: %w", err))
	}
	tx.committed = true
	return nil
}

// Discard rolls back the transaction if it has not already been committed.
func (tx *Tx) Discard() {
	if tx.committed {
		return
	}
	tx.committed = true
	_ = tx.btx.Rollback()
}

// GetOrCreateMap materializes (creating on first use) the named ordered map
// within this transaction. The map itself does not fix a key encoding; callers
// choose it per call with StringKey (sorts lexicographically) or Int64Key
// (big-endian with the sign bit flipped, so byte order matches numeric order).
func GetOrCreateMap[V any](tx *Tx, name string, codec Codec[V]) (*Map[V], error) {
	bucket, err := tx.btx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, ErrTransient(fmt.Errorf("storekv: materializing map %s: %w", name, err))
	}
	return &Map[V]{bucket: bucket, codec: codec}, nil
}
