package timing

import (
	"time"

	logx "framesched/pkg/logx"
)

// CreateTimer schedules a timer that comes due duration from now.
//
// overhead corrects for the time the caller already spent getting here (e.g.
// marshaling across a bridge): the target becomes now + (duration - overhead).
// A negative overhead means the caller's clock skewed; it is logged and used
// as supplied rather than clamped, so the anomaly stays observable downstream.
//
// A zero-duration non-repeating timer never touches the registry: its id is
// handed to the sink's immediate-fire path right here.
//
// Creating a timer under a live id silently replaces its schedule (last write
// wins).
func (s *Service) CreateTimer(id TimerID, duration, overhead time.Duration, repeats bool) {
	if s.invalid.Load() {
		s.log.Debug("create ignored; scheduler invalidated", logx.String("timer", string(id)))
		return
	}
	if id == "" {
		s.log.Warn("create ignored: empty timer id")
		return
	}
	if duration == 0 && !repeats {
		s.sink.FireImmediately(id)
		return
	}
	if overhead < 0 && s.anomalies.Allow() {
		s.log.Warn("negative scheduling overhead; using as supplied",
			logx.String("timer", string(id)),
			logx.Duration("overhead", overhead),
		)
	}
	s.do(func() {
		if s.torn {
			return
		}
		interval := duration
		if duration < s.cfg.MinTimerDuration {
			// Fine-grained timer: fire on essentially every tick once due.
			interval = 0
		}
		s.reg.insert(&timer{
			id:       id,
			interval: interval,
			target:   s.clock.Now().Add(duration - overhead),
			repeats:  repeats,
		})
		s.startTicking()
	})
}

// DeleteTimer removes id from the registry; if that empties it, the scheduler
// unsubscribes from ticks. Deleting an absent id is a no-op, so calling this
// twice is equivalent to calling it once.
func (s *Service) DeleteTimer(id TimerID) {
	if s.invalid.Load() {
		s.log.Debug("delete ignored; scheduler invalidated", logx.String("timer", string(id)))
		return
	}
	if id == "" {
		s.log.Warn("delete ignored: empty timer id")
		return
	}
	s.do(func() {
		if s.torn {
			return
		}
		s.reg.remove(id)
		if s.reg.empty() {
			s.stopTicking()
		}
	})
}
