package watchmodel

import "time"

// Tick is a 64-bit wall-clock timestamp in 100-nanosecond units since the
// year-1 epoch, matching the precision the host platform uses internally so
// schedule ordering survives a round trip through the durable store without
// truncation. The zero Tick is the epoch origin. There is no Tick value for
// "not scheduled": a check with no pending execution simply has no entry in
// the schedule map. HealthCheck.LastAttempt, however, stays at the zero Tick
// until the check's first probe, so there zero doubles as "never attempted".
type Tick int64

const ticksPerSecond = 10_000_000

// epoch is the Go zero time (year 1, UTC), matching Tick's origin.
var epoch = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// Now returns the current wall-clock time as a Tick.
func Now() Tick {
	return FromTime(time.Now().UTC())
}

// FromTime converts a time.Time to a Tick.
// The span since year 1 exceeds what a time.Duration can hold, so the
// conversion goes through Unix seconds rather than t.Sub(epoch).
func FromTime(t time.Time) Tick {
	return Tick((t.Unix()-epoch.Unix())*ticksPerSecond + int64(t.Nanosecond())/100)
}

// Time converts a Tick back to a time.Time.
func (t Tick) Time() time.Time {
	return time.Unix(epoch.Unix()+int64(t)/ticksPerSecond, (int64(t)%ticksPerSecond)*100).UTC()
}

// Add advances a Tick by a duration.
func (t Tick) Add(d time.Duration) Tick {
	return t + Tick(d.Nanoseconds()/100)
}

// DurationToTicks converts a time.Duration to a tick count, for use as a
// relative offset (e.g. Frequency) rather than an absolute timestamp.
func DurationToTicks(d time.Duration) int64 {
	return int64(d / 100)
}

// TicksToDuration is the inverse of DurationToTicks.
func TicksToDuration(ticks int64) time.Duration {
	return time.Duration(ticks) * 100
}
