package storekv

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
)

// Codec tells a Map how to turn values into durable bytes and back. See
// internal/codec for the concrete tagged-binary implementations used for
// HealthCheck, ScheduledItem, and MetricCheck.
type Codec[V any] struct {
	Encode func(V) []byte
	Decode func([]byte) (V, error)
}

// Map is an ordered, byte-keyed view over one bucket within a transaction.
// Keys sort byte-lexicographically, which is exactly numeric order for
// Int64Key-encoded keys and natural string order for StringKey-encoded
// keys — so a single cursor-based iterateOrdered serves both the hc/mc
// (string-keyed) and sched (int64-keyed) maps spec.md §3 describes.
type Map[V any] struct {
	bucket *bbolt.Bucket
	codec  Codec[V]
}

// StringKey encodes a string map key.
func StringKey(s string) []byte { return []byte(s) }

// Int64Key encodes an int64 map key so that byte order matches numeric
// order (spec.md §3, the sched map is "numeric, ordered").
func Int64Key(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n)^(1<<63))
	return b
}

// DecodeInt64Key is the inverse of Int64Key.
func DecodeInt64Key(b []byte) int64 {
	if len(b) < 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

// TryAdd inserts key only if absent, returning false without error if a
// value is already present.
func (m *Map[V]) TryAdd(key []byte, value V) (bool, error) {
	if m.bucket.Get(key) != nil {
		return false, nil
	}
	if err := m.bucket.Put(key, m.codec.Encode(value)); err != nil {
		return false, ErrTransient(fmt.Errorf("storekv: put: %w", err))
	}
	return true, nil
}

// AddOrUpdate unconditionally upserts key.
func (m *Map[V]) AddOrUpdate(key []byte, value V) error {
	if err := m.bucket.Put(key, m.codec.Encode(value)); err != nil {
		return ErrTransient(fmt.Errorf("storekv: put: %w", err))
	}
	return nil
}

// TryGet reads the current value for key. raw is the still-encoded bytes,
// usable as the CAS witness for a subsequent TryUpdate; mode only affects
// lock strength in a store with independent reader/writer transactions and
// is accepted here for contract fidelity with spec.md §4.1.
func (m *Map[V]) TryGet(key []byte, _ AccessMode) (value V, raw []byte, ok bool, err error) {
	raw = m.bucket.Get(key)
	if raw == nil {
		return value, nil, false, nil
	}
	// Get's slice is only valid for the life of the transaction; copy it so
	// it can be compared later as a witness after further mutation.
	raw = append([]byte(nil), raw...)
	value, err = m.codec.Decode(raw)
	if err != nil {
		return value, raw, false, fmt.Errorf("storekv: decode %s: %w", key, err)
	}
	return value, raw, true, nil
}

// TryUpdate performs compare-and-swap: it only writes new if the value
// currently stored under key still encodes to exactly witness.
func (m *Map[V]) TryUpdate(key []byte, value V, witness []byte) (bool, error) {
	current := m.bucket.Get(key)
	if !bytes.Equal(current, witness) {
		return false, nil
	}
	if err := m.bucket.Put(key, m.codec.Encode(value)); err != nil {
		return false, ErrTransient(fmt.Errorf("storekv: put: %w", err))
	}
	return true, nil
}

// TryRemove deletes key if present, reporting whether it existed.
func (m *Map[V]) TryRemove(key []byte) (bool, error) {
	if m.bucket.Get(key) == nil {
		return false, nil
	}
	if err := m.bucket.Delete(key); err != nil {
		return false, ErrTransient(fmt.Errorf("storekv: delete: %w", err))
	}
	return true, nil
}

// AccessMode distinguishes a plain read from one that intends to follow up
// with a write, per spec.md §4.1 ("mode ∈ {read, update}").
type AccessMode int

const (
	ModeRead AccessMode = iota
	ModeUpdate
)

// Entry is one (key, value) pair yielded by IterateOrdered.
type Entry[V any] struct {
	Key   []byte
	Value V
}

// IterateOrdered walks every entry whose key has the given prefix (nil or
// empty means "all entries") in ascending byte order, decoding as it goes.
// A decode error aborts iteration and is returned to the caller.
func (m *Map[V]) IterateOrdered(prefix []byte) ([]Entry[V], error) {
	var out []Entry[V]
	c := m.bucket.Cursor()
	var k, v []byte
	if len(prefix) == 0 {
		k, v = c.First()
	} else {
		k, v = c.Seek(prefix)
	}
	for ; k != nil; k, v = c.Next() {
		if len(prefix) > 0 && !bytes.HasPrefix(k, prefix) {
			break
		}
		value, err := m.codec.Decode(v)
		if err != nil {
			return nil, fmt.Errorf("storekv: decode %x: %w", k, err)
		}
		out = append(out, Entry[V]{Key: append([]byte(nil), k...), Value: value})
	}
	return out, nil
}
