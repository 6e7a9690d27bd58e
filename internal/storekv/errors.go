package storekv

import (
	"errors"

	"github.com/wisbric/watchdog/internal/werr"
)

// ErrNotPrimary is returned by operations attempted while this replica does
// not hold write status. Callers abort the current tick without committing.
var ErrNotPrimary = werr.Newf(werr.ClassNotPrimary, "storekv: this replica is not primary")

// ErrTransient wraps a retryable storage failure (timeout, I/O error,
// momentary unavailability). Callers log and let the next tick retry.
func ErrTransient(cause error) error {
	return werr.New(werr.ClassTransient, cause)
}

// IsNotPrimary reports whether err (or anything it wraps) is ErrNotPrimary.
func IsNotPrimary(err error) bool {
	return werr.Is(err, werr.ClassNotPrimary) || errors.Is(err, ErrNotPrimary)
}

// IsTransient reports whether err is classified as transient.
func IsTransient(err error) bool {
	return werr.Is(err, werr.ClassTransient)
}
