// Package werr defines the watchdog's error taxonomy. Engines never let an
// error escape a tick uninspected; they classify it with Class and decide
// whether to log-and-retry, abandon the tick, or propagate.
package werr

import (
	"errors"
	"fmt"
)

// Class is the error taxonomy from the watchdog's failure-handling design.
type Class int

const (
	// ClassUnknown is the zero value; treated the same as Fatal by callers
	// that switch on Class, so a forgotten wrap still fails closed.
	ClassUnknown Class = iota
	// ClassInvalidArgument is a boundary rejection (e.g. unknown service).
	ClassInvalidArgument
	// ClassTransient is a retryable failure: timeout, store conflict,
	// platform-closed, throttling.
	ClassTransient
	// ClassNotPrimary means the replica lost write status mid-tick.
	ClassNotPrimary
	// ClassFatal is an invariant violation; the engine marks itself Error.
	ClassFatal
	// ClassTargetGone means the probe's target partition no longer resolves.
	ClassTargetGone
)

func (c Class) String() string {
	switch c {
	case ClassInvalidArgument:
		return "InvalidArgument"
	case ClassTransient:
		return "Transient"
	case ClassNotPrimary:
		return "NotPrimary"
	case ClassFatal:
		return "Fatal"
	case ClassTargetGone:
		return "TargetGone"
	default:
		return "Unknown"
	}
}

// classifiedError pairs an error with its Class so it survives fmt.Errorf
// wrapping via errors.As.
type classifiedError struct {
	class Class
	err   error
}

func (e *classifiedError) Error() string { return e.err.Error() }
func (e *classifiedError) Unwrap() error { return e.err }

// New wraps err with the given Class. If err is nil, New returns nil.
func New(class Class, err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{class: class, err: err}
}

// Newf builds a classified error from a format string, analogous to fmt.Errorf.
func Newf(class Class, format string, args ...any) error {
	return &classifiedError{class: class, err: fmt.Errorf(format, args...)}
}

// ClassOf returns the Class attached to err by New/Newf, walking the Unwrap
// chain. Unclassified errors report ClassUnknown.
func ClassOf(err error) Class {
	var ce *classifiedError
	if errors.As(err, &ce) {
		return ce.class
	}
	return ClassUnknown
}

// Is reports whether err carries the given Class.
func Is(err error, class Class) bool {
	return ClassOf(err) == class
}
