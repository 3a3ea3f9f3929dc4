//go:build avdecode

package avdecode

import "time"

// durationFromTicks converts a stream-timebase tick count (timeBase ticks
// per second) into a time.Duration.
func durationFromTicks(ticks int64, timeBase int64) time.Duration {
	if timeBase <= 0 {
		timeBase = 1
	}
	return time.Duration(ticks) * time.Second / time.Duration(timeBase)
}

// ticksFromDuration is durationFromTicks's inverse, used when seeking.
func ticksFromDuration(d time.Duration, timeBase int64) int64 {
	if timeBase <= 0 {
		timeBase = 1
	}
	return int64(d * time.Duration(timeBase) / time.Second)
}
