// Package codec implements the watchdog's persisted-state wire format: a
// flat sequence of (tag uint16, length uint32, payload []byte) records, in
// the spirit of protobuf's tag/length/value framing but hand-rolled because
// the watchdog only ever serializes three small, stable structs and pulling
// in a codegen toolchain for that would be disproportionate (see DESIGN.md).
package codec

import (
	"encoding/binary"
	"fmt"
)

type field struct {
	tag     tag
	payload []byte
}

// writer accumulates fields and renders them to the wire format.
type writer struct {
	fields []field
}

func (w *writer) putBytes(t tag, b []byte) {
	w.fields = append(w.fields, field{tag: t, payload: b})
}

func (w *writer) putString(t tag, s string) {
	if s == "" {
		return
	}
	w.putBytes(t, []byte(s))
}

func (w *writer) putUint64(t tag, v uint64) {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	w.putBytes(t, b)
}

func (w *writer) putInt64(t tag, v int64) {
	w.putUint64(t, uint64(v))
}

func (w *writer) putInt32(t tag, v int32) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	w.putBytes(t, b)
}

func (w *writer) bytes() []byte {
	var size int
	for _, f := range w.fields {
		size += 2 + 4 + len(f.payload)
	}
	out := make([]byte, 0, size)
	for _, f := range w.fields {
		var hdr [6]byte
		binary.BigEndian.PutUint16(hdr[0:2], uint16(f.tag))
		binary.BigEndian.PutUint32(hdr[2:6], uint32(len(f.payload)))
		out = append(out, hdr[:]...)
		out = append(out, f.payload...)
	}
	return out
}

// reader walks the wire format, grouping payloads by tag so repeated fields
// are easy to collect, and skipping any tag the caller never asks for.
type reader struct {
	byTag map[tag][][]byte
}

func parse(data []byte) (*reader, error) {
	r := &reader{byTag: make(map[tag][][]byte)}
	for len(data) > 0 {
		if len(data) < 6 {
			return nil, fmt.Errorf("codec: truncated field header")
		}
		t := tag(binary.BigEndian.Uint16(data[0:2]))
		n := binary.BigEndian.Uint32(data[2:6])
		data = data[6:]
		if uint64(len(data)) < uint64(n) {
			return nil, fmt.Errorf("codec: truncated field payload for tag %d", t)
		}
		r.byTag[t] = append(r.byTag[t], data[:n])
		data = data[n:]
	}
	return r, nil
}

func (r *reader) string(t tag) string {
	vs := r.byTag[t]
	if len(vs) == 0 {
		return ""
	}
	return string(vs[0])
}

func (r *reader) stringPtr(t tag) *string {
	vs := r.byTag[t]
	if len(vs) == 0 {
		return nil
	}
	s := string(vs[0])
	return &s
}

func (r *reader) uint64(t tag) uint64 {
	vs := r.byTag[t]
	if len(vs) == 0 || len(vs[0]) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(vs[0])
}

func (r *reader) int64(t tag) int64 {
	return int64(r.uint64(t))
}

func (r *reader) int32(t tag) int32 {
	vs := r.byTag[t]
	if len(vs) == 0 || len(vs[0]) < 4 {
		return 0
	}
	return int32(binary.BigEndian.Uint32(vs[0]))
}

func (r *reader) repeated(t tag) [][]byte {
	return r.byTag[t]
}

func (r *reader) has(t tag) bool {
	return len(r.byTag[t]) > 0
}
