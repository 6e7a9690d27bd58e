package watchmodel

import "fmt"

// FilterPrefix builds the "<app>/<svc>/<partition>"-style key prefix used by
// List operations on the mc map (MetricCheck.Key uses this exact layout),
// per spec.md §4.2.a: the more fields are set, the longer and more specific
// the prefix. An empty result means "match all". The hc map's keys are
// derived from a URI path rather than bare segments, so
// internal/healthcheck builds its own prefix from the same app/svc/partition
// triple instead of reusing this helper directly.
func FilterPrefix(app, svc, partition string) string {
	switch {
	case app != "" && svc != "" && partition != "":
		return fmt.Sprintf("%s/%s/%s", app, svc, partition)
	case app != "" && svc != "":
		return fmt.Sprintf("%s/%s", app, svc)
	case app != "":
		return app
	default:
		return ""
	}
}
