package timing

import logx "framesched/pkg/logx"

// startTicking subscribes to the tick source. No-op while already subscribed,
// after Invalidate, or while the registry is empty — there is nothing worth
// burning tick cycles on.
func (s *Service) startTicking() {
	if s.torn || s.subscribed || s.reg.empty() {
		return
	}
	s.ticks.Subscribe(s)
	s.subscribed = true
	s.log.Debug("subscribed to ticks", logx.Int("timers", s.reg.len()))
}

// stopTicking unsubscribes unconditionally. Idempotent.
func (s *Service) stopTicking() {
	if !s.subscribed {
		return
	}
	s.ticks.Unsubscribe(s)
	s.subscribed = false
	s.log.Debug("unsubscribed from ticks")
}
