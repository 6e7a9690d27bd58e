package codec

import "github.com/wisbric/watchdog/internal/watchmodel"

// EncodeMetricCheck renders a MetricCheck to the durable binary format.
func EncodeMetricCheck(m watchmodel.MetricCheck) []byte {
	var w writer
	for _, n := range m.MetricNames {
		w.putString(tagMCMetricName, n)
	}
	w.putString(tagMCApplication, m.Application)
	w.putString(tagMCService, m.Service)
	w.putString(tagMCPartition, m.Partition)
	return w.bytes()
}

// DecodeMetricCheck parses the durable binary format back into a
// MetricCheck.
func DecodeMetricCheck(data []byte) (watchmodel.MetricCheck, error) {
	r, err := parse(data)
	if err != nil {
		return watchmodel.MetricCheck{}, err
	}
	m := watchmodel.MetricCheck{
		Application: r.string(tagMCApplication),
		Service:     r.string(tagMCService),
		Partition:   r.string(tagMCPartition),
	}
	for _, n := range r.repeated(tagMCMetricName) {
		m.MetricNames = append(m.MetricNames, string(n))
	}
	return m, nil
}
