package surface

import "time"

// DefaultGestureRateHz bounds how often drag moves are applied. Pointer
// events arrive faster than this; intermediate samples are dropped but
// the most recent one is always retained and applied.
const DefaultGestureRateHz = 60

// Throttle admits at most one apply per interval. It is driven by
// explicit timestamps so gesture logic stays deterministic under test.
type Throttle struct {
	interval time.Duration
	last     time.Time
}

// NewThrottle builds a throttle admitting hz applies per second. Zero
// or negative rates fall back to DefaultGestureRateHz.
func NewThrottle(hz int) *Throttle {
	if hz <= 0 {
		hz = DefaultGestureRateHz
	}
	return &Throttle{interval: time.Second / time.Duration(hz)}
}

// Ready reports whether an apply is admitted at now, and records the
// admission. The first call is always admitted.
func (t *Throttle) Ready(now time.Time) bool {
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
