package app

import "time"

// throttle admits at most one write per interval.
type throttle struct {
	interval time.Duration
	now      func() time.Time
	last     time.Time
}

func newThrottle(interval time.Duration, now func() time.Time) *throttle {
	return &throttle{interval: interval, now: now}
}

// allow reports whether a write may happen now and, if so, records it.
func (t *throttle) allow() bool {
	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// mark records a write that bypassed allow.
func (t *throttle) mark() {
	t.last = t.now()
}
