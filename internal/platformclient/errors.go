package platformclient

import (
	"errors"

	"github.com/wisbric/watchdog/internal/werr"
)

// ErrNotFound signals that a requested service/partition/replica does not
// exist. MetricsEngine treats it as ending the current subscription's tick
// with success=false (spec.md §4.3).
var ErrNotFound = errors.New("platformclient: not found")

// ErrClosed signals the underlying platform connection was closed out from
// under the caller; the caller should call Refresh and treat the call as a
// transient failure (spec.md §4.3).
var ErrClosed = werr.Newf(werr.ClassTransient, "platformclient: connection closed")

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransient reports whether err should be treated as retryable.
func IsTransient(err error) bool {
	return werr.Is(err, werr.ClassTransient) || errors.Is(err, ErrClosed)
}
