// Package storekv implements DurableStore: a transactional, ordered
// key-value facade on top of an embedded bbolt database, gated by replica
// role so engines never mutate state while they are not primary. See
// spec.md §4.1.
package storekv

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// DefaultCallTimeout bounds how long Open waits to acquire the bbolt file
// lock. Transactions and map operations do not apply it; they are bounded
// only by the context passed to Begin.
const DefaultCallTimeout = 5 * time.Second

// Store is the DurableStore: a transactional ordered KV facade gated by
// replica role.
type Store struct {
	db   *bbolt.DB
	role RoleSource
}

// Open opens (creating if absent) a bbolt-backed DurableStore at path. A nil
// role defaults to "always primary", appropriate for a standalone instance
// or a test.
func Open(path string, role RoleSource) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: DefaultCallTimeout})
	if err != nil {
		return nil, fmt.Errorf("storekv: opening %s: %w", path, err)
	}
	if role == nil {
		role = staticRole{}
	}
	return &Store{db: db, role: role}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReadStatus reports whether this replica may currently serve reads.
func (s *Store) ReadStatus() AccessStatus {
	if s.role.Settling() {
		return reconfigStatus
	}
	if !s.role.IsPrimary() {
		return notPrimaryStatus
	}
	return GrantedStatus
}

// WriteStatus reports whether this replica may currently serve writes. In
// this implementation a replica that can write can also read, so the rule
// is identical to ReadStatus; they are kept as distinct methods because
// spec.md §4.1 documents them as independently-checked signals (a
// replicated store could one day grant stale reads while writes are
// blocked).
func (s *Store) WriteStatus() AccessStatus {
	return s.ReadStatus()
}

// Ready reports whether both ReadStatus and WriteStatus are Granted — the
// precondition every engine tick checks before touching state.
func (s *Store) Ready() bool {
	return s.ReadStatus().Granted && s.WriteStatus().Granted
}

// RoleChangeSource is implemented by role providers that can notify
// subscribers of primary/secondary transitions (internal/coordinator's
// elector). Store.OnRoleChange is a no-op for role sources that don't
// support it, such as the static standalone default.
type RoleChangeSource interface {
	Subscribe() <-chan bool // emits the new IsPrimary value on every transition
}

// OnRoleChange registers cb to run whenever this replica's primary/
// secondary standing changes, per spec.md §4.1. It returns false if the
// underlying role source does not support notifications.
func (s *Store) OnRoleChange(cb func(isPrimary bool)) bool {
	src, ok := s.role.(RoleChangeSource)
	if !ok {
		return false
	}
	ch := src.Subscribe()
	go func() {
		for isPrimary := range ch {
			cb(isPrimary)
		}
	}()
	return true
}

// Begin starts a transaction. writable transactions additionally require
// WriteStatus to be Granted; read-only transactions require ReadStatus.
func (s *Store) Begin(ctx context.Context, writable bool) (*Tx, error) {
	status := s.ReadStatus()
	if writable {
		status = s.WriteStatus()
	}
	if !status.Granted {
		return nil, ErrNotPrimary
	}
	btx, err := s.db.Begin(writable)
	if err != nil {
		return nil, ErrTransient(fmt.Errorf("storekv: begin transaction: %w", err))
	}
	return &Tx{btx: btx, ctx: ctx}, nil
}
