package timing

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"framesched/internal/lifecycle"
	logx "framesched/pkg/logx"
)

// Service is the scheduler. One goroutine (the lane) owns all mutable state;
// every public entry point marshals onto it.
type Service struct {
	log   logx.Logger
	cfg   Config
	clock Clock
	ticks TickSource
	sink  CallbackSink

	anomalies *rate.Limiter

	ops       chan func()
	done      chan struct{}
	closeOnce sync.Once
	started   atomic.Bool
	invalid   atomic.Bool

	// Lane-owned state. Only run() touches these.
	reg           *registry
	subscribed    bool
	torn          bool
	removeSuspend func()
	removeResume  func()
}

func New(cfg Config, clock Clock, ticks TickSource, sink CallbackSink, log logx.Logger) *Service {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = SystemClock{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:       log,
		cfg:       cfg,
		clock:     clock,
		ticks:     ticks,
		sink:      sink,
		anomalies: rate.NewLimiter(rate.Limit(cfg.AnomalyWarnPerSec), cfg.AnomalyWarnPerSec),
		ops:       make(chan func(), cfg.QueueSize),
		done:      make(chan struct{}),
		reg:       newRegistry(),
	}
}

// Start launches the scheduler lane. Must be called once before timers are
// created. Cancelling ctx tears the scheduler down permanently, same as
// Invalidate.
func (s *Service) Start(ctx context.Context) {
	if s.started.Swap(true) {
		return
	}
	go s.run(ctx)
}

func (s *Service) run(ctx context.Context) {
	s.log.Debug("scheduler lane started",
		logx.Int("queue", cap(s.ops)),
		logx.Duration("min_timer_duration", s.cfg.MinTimerDuration),
	)
	for {
		select {
		case op := <-s.ops:
			s.safely(op)
		case <-s.done:
			return
		case <-ctx.Done():
			s.invalid.Store(true)
			s.teardown()
			s.closeOnce.Do(func() { close(s.done) })
			return
		}
	}
}

// safely shields the lane from panics escaping the consumer sink.
func (s *Service) safely(op func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic on scheduler lane",
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())),
			)
		}
	}()
	op()
}

// do marshals op onto the lane. Reports false if the lane is gone.
func (s *Service) do(op func()) bool {
	select {
	case s.ops <- op:
		return true
	case <-s.done:
		return false
	}
}

// OnTick implements TickListener. The evaluation itself runs on the lane; if
// the lane is backlogged the tick is dropped and timers due on it fire on the
// next one.
func (s *Service) OnTick(now time.Time) {
	if s.invalid.Load() {
		return
	}
	select {
	case s.ops <- func() { s.evaluateTick(now) }:
	default:
		s.log.Debug("tick dropped; lane backlogged", logx.Time("now", now))
	}
}

// evaluateTick is one complete, synchronous pass: snapshot, expire, evict,
// emit at most one batch.
func (s *Service) evaluateTick(now time.Time) {
	if s.torn {
		return
	}
	snap := s.reg.snapshot()
	var fired []TimerID
	for _, t := range snap {
		if t.checkExpiry(now) {
			fired = append(fired, t.id)
		}
		if t.target.IsZero() {
			// One-shot that just fired (or otherwise inert): evict within the
			// same tick's bookkeeping pass.
			s.reg.remove(t.id)
		}
	}
	if len(fired) > 0 {
		s.sink.CallTimers(fired)
	}
	if s.reg.empty() {
		s.stopTicking()
	}
}

// BindLifecycle registers suspend/resume reactions with the hub. The
// registrations live exactly as long as the scheduler: Invalidate removes
// them.
func (s *Service) BindLifecycle(hub *lifecycle.Hub) {
	if hub == nil || s.invalid.Load() {
		return
	}
	s.do(func() {
		if s.torn || s.removeSuspend != nil {
			return
		}
		s.removeSuspend = hub.OnSuspend(func() {
			s.do(func() {
				s.log.Info("suspend signal; pausing ticks", logx.Int("timers", s.reg.len()))
				s.stopTicking()
			})
		})
		s.removeResume = hub.OnResume(func() {
			s.do(func() {
				s.log.Info("resume signal", logx.Int("timers", s.reg.len()))
				s.startTicking()
			})
		})
	})
}

// Invalidate permanently tears the scheduler down: unsubscribes from ticks,
// drops all timers, detaches lifecycle handlers, and turns every subsequent
// operation into a no-op. Idempotent.
func (s *Service) Invalidate() {
	if s.invalid.Swap(true) {
		return
	}
	if !s.started.Load() {
		// Lane never ran; nothing to unwind.
		s.closeOnce.Do(func() { close(s.done) })
		return
	}
	// The teardown op closes the lane itself, so everything marshaled before
	// this point still executes first.
	select {
	case s.ops <- func() {
		s.teardown()
		s.closeOnce.Do(func() { close(s.done) })
	}:
	case <-s.done:
	}
}

func (s *Service) teardown() {
	if s.torn {
		return
	}
	s.torn = true
	s.stopTicking()
	if s.removeSuspend != nil {
		s.removeSuspend()
		s.removeSuspend = nil
	}
	if s.removeResume != nil {
		s.removeResume()
		s.removeResume = nil
	}
	dropped := s.reg.len()
	s.reg = newRegistry()
	s.log.Info("scheduler invalidated", logx.Int("dropped_timers", dropped))
}
