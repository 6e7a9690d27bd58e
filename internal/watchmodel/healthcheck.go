package watchmodel

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Verdict is the health state a probe emits.
type Verdict int

const (
	VerdictOk Verdict = iota
	VerdictWarning
	VerdictError
)

func (v Verdict) String() string {
	switch v {
	case VerdictOk:
		return "Ok"
	case VerdictWarning:
		return "Warning"
	case VerdictError:
		return "Error"
	default:
		return "Unknown"
	}
}

const (
	DefaultFrequency        = 60 * time.Second
	DefaultExpectedDuration = 200 * time.Millisecond
	DefaultMaximumDuration  = 5 * time.Second
	DefaultMethod           = "GET"
)

// HealthCheck is a registered HTTP probe, together with the result of its
// most recent execution. See spec.md §3.
type HealthCheck struct {
	Name        string
	ServiceName string // absolute URI, e.g. "fabric:/App/Service"
	Partition   uuid.UUID
	Endpoint    string // optional named listener
	SuffixPath  string

	Method   string
	Content   []byte  // nullable
	MediaType *string // must be set if Content is non-nil

	Frequency        time.Duration
	ExpectedDuration time.Duration
	MaximumDuration  time.Duration

	Headers            map[string]string
	WarningStatusCodes map[int]struct{}
	ErrorStatusCodes   map[int]struct{}

	// Result fields, updated by the engine after each execution.
	LastAttempt  Tick
	FailureCount int
	ResultCode   int
	Duration     int64 // milliseconds; -1 for a transient failure that never got a response
}

// Key is the durable map key for this HealthCheck: "<service absolute
// path>/<partition>".
func (h HealthCheck) Key() string {
	return fmt.Sprintf("%s/%s", servicePath(h.ServiceName), partitionSegment(h.Partition))
}

func servicePath(serviceName string) string {
	u, err := url.Parse(serviceName)
	if err != nil {
		return serviceName
	}
	return u.Opaque + u.Path
}

func partitionSegment(p uuid.UUID) string {
	if p == uuid.Nil {
		return ""
	}
	return p.String()
}

// Validate checks the invariants from spec.md §3: ServiceName is an absolute
// URI, SuffixPath is non-empty, Content implies MediaType, Frequency > 0.
func (h *HealthCheck) Validate() error {
	if h.Name == "" {
		return fmt.Errorf("health check: Name must not be empty")
	}
	u, err := url.Parse(h.ServiceName)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("health check: ServiceName %q is not an absolute URI", h.ServiceName)
	}
	if h.SuffixPath == "" {
		return fmt.Errorf("health check: SuffixPath must not be empty")
	}
	if len(h.Content) > 0 && h.MediaType == nil {
		return fmt.Errorf("health check: MediaType must be set when Content is set")
	}
	if h.Frequency <= 0 {
		return fmt.Errorf("health check: Frequency must be > 0")
	}
	return nil
}

// ApplyDefaults fills in the documented defaults for zero-valued fields.
func (h *HealthCheck) ApplyDefaults() {
	if h.Method == "" {
		h.Method = DefaultMethod
	}
	if h.Frequency == 0 {
		h.Frequency = DefaultFrequency
	}
	if h.ExpectedDuration == 0 {
		h.ExpectedDuration = DefaultExpectedDuration
	}
	if h.MaximumDuration == 0 {
		h.MaximumDuration = DefaultMaximumDuration
	}
}

// ClassifyStatus maps an HTTP status code to a Verdict per spec.md §4.2.c:
// warning codes first, then error codes, then the 2xx range, else Error.
func ClassifyStatus(code int, warning, errorCodes map[int]struct{}) (Verdict, bool) {
	if _, ok := warning[code]; ok {
		return VerdictWarning, false
	}
	if _, ok := errorCodes[code]; ok {
		return VerdictError, false
	}
	if IsSuccessCode(code) {
		return VerdictOk, true
	}
	return VerdictError, false
}

// IsSuccessCode reports whether code is in [200, 299].
func IsSuccessCode(code int) bool {
	return code >= 200 && code <= 299
}

// ScheduledItem is a pending execution token: at most one lives per
// HealthCheck key at any instant (see spec.md §3).
type ScheduledItem struct {
	ExecutionTicks Tick
	Key            string
}

// HealthState is the monotone-worsening health classification used by
// engines, the self-reporter, and partition-health reports.
type HealthState int

const (
	HealthInvalid HealthState = iota
	HealthOk
	HealthWarning
	HealthError
)

func (s HealthState) String() string {
	switch s {
	case HealthOk:
		return "Ok"
	case HealthWarning:
		return "Warning"
	case HealthError:
		return "Error"
	default:
		return "Invalid"
	}
}

// WorsenHealth implements the monotone comparison from spec.md §8 invariant
// 4: Ok < Warning < Error, with Invalid/Unknown always superseded by
// whatever is proposed.
func WorsenHealth(current, proposed HealthState) HealthState {
	if current == HealthInvalid {
		return proposed
	}
	if proposed == HealthInvalid {
		return current
	}
	if proposed > current {
		return proposed
	}
	return current
}

// FromVerdict maps a probe Verdict onto the broader HealthState scale used
// by the self-reporter and cluster roll-up.
func FromVerdict(v Verdict) HealthState {
	switch v {
	case VerdictOk:
		return HealthOk
	case VerdictWarning:
		return HealthWarning
	default:
		return HealthError
	}
}
