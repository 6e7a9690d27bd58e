package codec

import "github.com/wisbric/watchdog/internal/watchmodel"

// EncodeScheduledItem renders a ScheduledItem to the durable binary format.
func EncodeScheduledItem(s watchmodel.ScheduledItem) []byte {
	var w writer
	w.putInt64(tagSchedExecutionTicks, int64(s.ExecutionTicks))
	w.putString(tagSchedKey, s.Key)
	return w.bytes()
}

// DecodeScheduledItem parses the durable binary format back into a
// ScheduledItem.
func DecodeScheduledItem(data []byte) (watchmodel.ScheduledItem, error) {
	r, err := parse(data)
	if err != nil {
		return watchmodel.ScheduledItem{}, err
	}
	return watchmodel.ScheduledItem{
		ExecutionTicks: watchmodel.Tick(r.int64(tagSchedExecutionTicks)),
		Key:            r.string(tagSchedKey),
	}, nil
}
