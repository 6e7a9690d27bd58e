// Package pgtablestore implements cleanup.TableStore against Postgres,
// standing in for the Azure-table-style external store spec.md §4.4
// describes (grounded in the teacher's internal/audit batched, timeout-
// bounded Postgres writer style).
package pgtablestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/watchdog/internal/cleanup"
)

const pageSize = 500

// Store is a Postgres-backed cleanup.TableStore. Each "table" spec.md §4.4
// describes is a distinct Postgres table sharing the
// (partition_key text, row_key text, ts timestamptz) schema.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store bound to pool. The tables it will be asked about
// must already exist (created by the ambient migration step); TableExists
// just checks Postgres' own catalog.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	if !validIdentifier(name) {
		return false, nil
	}
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
		name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pgtablestore: checking table %q: %w", name, err)
	}
	return exists, nil
}

// QueryByTimestamp returns rows older than cutoff, keyset-paginated by
// (partition_key, row_key) using continuation as the last-seen key pair
// ("partitionKey\x00rowKey"), per spec.md §4.4.
func (s *Store) QueryByTimestamp(ctx context.Context, name string, cutoff time.Time, continuation string) ([]cleanup.Row, string, error) {
	if !validIdentifier(name) {
		return nil, "", fmt.Errorf("pgtablestore: invalid table name %q", name)
	}

	lastPK, lastRK := splitContinuation(continuation)

	query := fmt.Sprintf(
		`SELECT partition_key, row_key, ts FROM %s
		 WHERE ts < $1 AND (partition_key, row_key) > ($2, $3)
		 ORDER BY partition_key, row_key
		 LIMIT $4`, quoteIdent(name))

	rows, err := s.pool.Query(ctx, query, cutoff, lastPK, lastRK, pageSize)
	if err != nil {
		return nil, "", fmt.Errorf("pgtablestore: querying %q: %w", name, err)
	}
	defer rows.Close()

	var out []cleanup.Row
	for rows.Next() {
		var r cleanup.Row
		if err := rows.Scan(&r.PartitionKey, &r.RowKey, &r.Timestamp); err != nil {
			return nil, "", fmt.Errorf("pgtablestore: scanning %q: %w", name, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("pgtablestore: iterating %q: %w", name, err)
	}

	next := ""
	if len(out) == pageSize {
		last := out[len(out)-1]
		next = last.PartitionKey + "\x00" + last.RowKey
	}
	return out, next, nil
}

// BatchDelete deletes rows inside one statement-timeout-bounded
// transaction. Postgres has no per-row partial-batch failure mode of its
// own, so ResourceNotFound is simulated: rows are re-validated for
// existence immediately before the delete, and the first missing row is
// reported by index so cleanup.Engine's resubmit loop can drop it and
// retry the remainder, per spec.md §4.4 "Batch submission".
func (s *Store) BatchDelete(ctx context.Context, name string, rows []cleanup.Row, opts cleanup.BatchOptions) ([]cleanup.Result, error) {
	if !validIdentifier(name) {
		return nil, fmt.Errorf("pgtablestore: invalid table name %q", name)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, opts.ServerTimeout)
	defer cancel()

	tx, err := s.pool.BeginTx(callCtx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("pgtablestore: beginning batch delete: %w", err)
	}
	defer tx.Rollback(callCtx)

	missingIdx, err := firstMissingRow(callCtx, tx, name, rows)
	if err != nil {
		return nil, err
	}
	if missingIdx >= 0 {
		return []cleanup.Result{{StatusCode: 404, NotFoundIndex: missingIdx, HasNotFound: true}}, nil
	}

	deleteQuery := fmt.Sprintf(
		`DELETE FROM %s AS t
		 USING unnest($1::text[], $2::text[]) AS del(partition_key, row_key)
		 WHERE t.partition_key = del.partition_key AND t.row_key = del.row_key`,
		quoteIdent(name))
	partitionKeys := make([]string, len(rows))
	rowKeys := make([]string, len(rows))
	for i, r := range rows {
		partitionKeys[i] = r.PartitionKey
		rowKeys[i] = r.RowKey
	}
	if _, err := tx.Exec(callCtx, deleteQuery, partitionKeys, rowKeys); err != nil {
		return nil, fmt.Errorf("pgtablestore: deleting batch from %q: %w", name, err)
	}

	if err := tx.Commit(callCtx); err != nil {
		return nil, fmt.Errorf("pgtablestore: committing batch delete on %q: %w", name, err)
	}

	results := make([]cleanup.Result, len(rows))
	for i := range rows {
		results[i] = cleanup.Result{StatusCode: 204}
	}
	return results, nil
}

func firstMissingRow(ctx context.Context, tx pgx.Tx, name string, rows []cleanup.Row) (int, error) {
	existsQuery := fmt.Sprintf(`SELECT 1 FROM %s WHERE partition_key = $1 AND row_key = $2`, quoteIdent(name))
	for i, r := range rows {
		var found int
		err := tx.QueryRow(ctx, existsQuery, r.PartitionKey, r.RowKey).Scan(&found)
		if err == pgx.ErrNoRows {
			return i, nil
		}
		if err != nil {
			return -1, fmt.Errorf("pgtablestore: verifying row %d of %q: %w", i, name, err)
		}
	}
	return -1, nil
}

func splitContinuation(continuation string) (string, string) {
	if continuation == "" {
		return "", ""
	}
	parts := strings.SplitN(continuation, "\x00", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

// validIdentifier keeps table names restricted to the fixed, trusted set
// cleanup.Engine is configured with, never raw client input, so quoting
// below is a defense against a misconfigured table list rather than
// untrusted data.
func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
