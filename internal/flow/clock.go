package flow

import "time"

// Clock supplies the timestamps used to measure step and flow durations.
//
// Production code uses SystemClock. Tests inject a deterministic clock so
// that durations, and therefore reporter output, are reproducible.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock. Durations are computed with Sub on
// values from time.Now, so they use the monotonic reading.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}
