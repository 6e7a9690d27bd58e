package watchmodel

import "fmt"

// MetricCheck is a subscription to a set of load metrics for an
// application, optionally narrowed to a service and partition. See
// spec.md §3.
type MetricCheck struct {
	MetricNames []string // ordered, non-empty entries
	Application string
	Service     string // optional
	Partition   string // optional
}

// Key is the durable map key: "<app>", "<app>/<svc>", or
// "<app>/<svc>/<partition>", depending on which fields are set.
func (m MetricCheck) Key() string {
	switch {
	case m.Service != "" && m.Partition != "":
		return fmt.Sprintf("%s/%s/%s", m.Application, m.Service, m.Partition)
	case m.Service != "":
		return fmt.Sprintf("%s/%s", m.Application, m.Service)
	default:
		return m.Application
	}
}

// Validate checks that the subscription is well-formed.
func (m *MetricCheck) Validate() error {
	if m.Application == "" {
		return fmt.Errorf("metric check: Application must not be empty")
	}
	if m.Partition != "" && m.Service == "" {
		return fmt.Errorf("metric check: Partition set without Service")
	}
	for _, n := range m.MetricNames {
		if n == "" {
			return fmt.Errorf("metric check: MetricNames must not contain empty entries")
		}
	}
	return nil
}

// HasMetric reports whether name is among the subscription's MetricNames.
func (m MetricCheck) HasMetric(name string) bool {
	for _, n := range m.MetricNames {
		if n == name {
			return true
		}
	}
	return false
}
