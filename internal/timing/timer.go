package timing

import "time"

// timer is one scheduled callback registration. Identity (id, repeats) is
// immutable; target and interval are the mutable schedule.
type timer struct {
	id       TimerID
	interval time.Duration
	target   time.Time // zero value means already fired, inert, pending removal
	repeats  bool
}

// checkExpiry reports whether the timer came due at now, advancing the
// schedule as a side effect: a repeating timer is pushed to now+interval, a
// one-shot timer has its target cleared.
//
// Callers must invoke this at most once per tick per timer; a second call in
// the same tick double-advances a repeating schedule.
func (t *timer) checkExpiry(now time.Time) bool {
	if t.target.IsZero() {
		return false
	}
	if now.Before(t.target) {
		return false
	}
	if t.repeats {
		t.target = now.Add(t.interval)
	} else {
		t.target = time.Time{}
	}
	return true
}
