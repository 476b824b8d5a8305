package timing

import "time"

type TimerInfo struct {
	ID       TimerID
	Target   time.Time
	Interval time.Duration
	Repeats  bool
}

type Snapshot struct {
	Subscribed  bool
	Invalidated bool
	Timers      []TimerInfo
}

// Snapshot reports the scheduler's state, marshaled through the lane so it
// observes a consistent point between ticks. After Invalidate it returns an
// empty snapshot with Invalidated set.
func (s *Service) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	ok := s.do(func() {
		snap := Snapshot{Subscribed: s.subscribed, Invalidated: s.torn}
		for _, t := range s.reg.snapshot() {
			snap.Timers = append(snap.Timers, TimerInfo{
				ID:       t.id,
				Target:   t.target,
				Interval: t.interval,
				Repeats:  t.repeats,
			})
		}
		reply <- snap
	})
	if !ok {
		return Snapshot{Invalidated: true}
	}
	select {
	case snap := <-reply:
		return snap
	case <-s.done:
		return Snapshot{Invalidated: true}
	}
}
