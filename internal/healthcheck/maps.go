package healthcheck

import (
	"github.com/google/uuid"

	"github.com/wisbric/watchdog/internal/codec"
	"github.com/wisbric/watchdog/internal/storekv"
	"github.com/wisbric/watchdog/internal/watchmodel"
)

func hcCodec() storekv.Codec[watchmodel.HealthCheck] {
	return storekv.Codec[watchmodel.HealthCheck]{
		Encode: codec.EncodeHealthCheck,
		Decode: codec.DecodeHealthCheck,
	}
}

func schedCodec() storekv.Codec[watchmodel.ScheduledItem] {
	return storekv.Codec[watchmodel.ScheduledItem]{
		Encode: codec.EncodeScheduledItem,
		Decode: codec.DecodeScheduledItem,
	}
}

func hcCodecMap(tx *storekv.Tx) (*storekv.Map[watchmodel.HealthCheck], error) {
	return storekv.GetOrCreateMap(tx, hcMapName, hcCodec())
}

func schedCodecMap(tx *storekv.Tx) (*storekv.Map[watchmodel.ScheduledItem], error) {
	return storekv.GetOrCreateMap(tx, schedMapName, schedCodec())
}

// insertScheduledItem finds a free sched slot for key starting at
// executionTicks, nudging the tick forward one unit at a time on collision
// (spec.md §4.2: at most one ScheduledItem per key, but two different keys
// can legitimately land on the same instant). Gives up after
// scheduleCollisionRetries attempts.
func insertScheduledItem(schedMap *storekv.Map[watchmodel.ScheduledItem], executionTicks watchmodel.Tick, key string) error {
	ticks := executionTicks
	for attempt := 0; attempt < scheduleCollisionRetries; attempt++ {
		added, err := schedMap.TryAdd(storekv.Int64Key(int64(ticks)), watchmodel.ScheduledItem{
			ExecutionTicks: ticks,
			Key:            key,
		})
		if err != nil {
			return err
		}
		if added {
			return nil
		}
		ticks++
	}
	return storekv.ErrTransient(errScheduleCollision(key))
}

func errScheduleCollision(key string) error {
	return &collisionError{key: key}
}

type collisionError struct{ key string }

func (e *collisionError) Error() string {
	return "healthcheck: exhausted schedule collision retries for " + e.key
}

// hcFilterPrefix adapts watchmodel.FilterPrefix's bare "<app>/<svc>/..."
// layout to the hc map's keys, which are derived from a URI path and so
// always start with "/" (see watchmodel.HealthCheck.Key).
func hcFilterPrefix(app, svc, partition string) string {
	p := watchmodel.FilterPrefix(app, svc, partition)
	if p == "" {
		return ""
	}
	return "/" + p
}

func nilableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
