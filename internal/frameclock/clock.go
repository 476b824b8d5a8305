// Package frameclock provides the external tick source the scheduler
// subscribes to: a fixed-interval frame clock in the spirit of a display
// refresh callback.
//
// The clock is economical: its ticker only runs while at least one listener
// is subscribed, and it parks otherwise.
package frameclock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"framesched/internal/timing"
	logx "framesched/pkg/logx"
)

// Listener receives ticks while subscribed. OnTick must not block; slow
// consumers should marshal the tick onto their own lane.
type Listener = timing.TickListener

type Clock struct {
	log      logx.Logger
	interval time.Duration

	mu   sync.Mutex
	subs []Listener

	wake    chan struct{}
	stop    chan struct{}
	stopped sync.Once
	started atomic.Bool

	ticks atomic.Uint64
}

func New(interval time.Duration, log logx.Logger) *Clock {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Clock{
		log:      log,
		interval: interval,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
}

func (c *Clock) Interval() time.Duration { return c.interval }

// Ticks returns the number of ticks emitted so far.
func (c *Clock) Ticks() uint64 { return c.ticks.Load() }

// Subscribe registers l. Duplicate subscriptions are ignored.
func (c *Clock) Subscribe(l Listener) {
	if l == nil {
		return
	}
	c.mu.Lock()
	for _, s := range c.subs {
		if s == l {
			c.mu.Unlock()
			return
		}
	}
	c.subs = append(c.subs, l)
	n := len(c.subs)
	c.mu.Unlock()

	c.log.Debug("listener subscribed", logx.Int("listeners", n))
	// Nudge the loop out of its idle park.
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Unsubscribe removes l; no-op if absent.
func (c *Clock) Unsubscribe(l Listener) {
	if l == nil {
		return
	}
	c.mu.Lock()
	for i, s := range c.subs {
		if s == l {
			last := len(c.subs) - 1
			c.subs[i] = c.subs[last]
			c.subs[last] = nil
			c.subs = c.subs[:last]
			break
		}
	}
	n := len(c.subs)
	c.mu.Unlock()
	c.log.Debug("listener unsubscribed", logx.Int("listeners", n))
}

func (c *Clock) snapshot() []Listener {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subs) == 0 {
		return nil
	}
	out := make([]Listener, len(c.subs))
	copy(out, c.subs)
	return out
}

// Start launches the tick loop. Safe to call once; ctx cancellation or Stop()
// ends it.
func (c *Clock) Start(ctx context.Context) {
	if c.started.Swap(true) {
		return
	}
	go c.run(ctx)
}

func (c *Clock) Stop() {
	c.stopped.Do(func() { close(c.stop) })
}

func (c *Clock) run(ctx context.Context) {
	c.log.Info("frame clock started", logx.Duration("interval", c.interval))
	for {
		// Park while nobody is listening.
		for len(c.snapshot()) == 0 {
			select {
			case <-c.wake:
			case <-c.stop:
				return
			case <-ctx.Done():
				return
			}
		}

		ticker := time.NewTicker(c.interval)
	emit:
		for {
			select {
			case now := <-ticker.C:
				subs := c.snapshot()
				if len(subs) == 0 {
					break emit
				}
				c.ticks.Add(1)
				for _, l := range subs {
					l.OnTick(now)
				}
			case <-c.stop:
				ticker.Stop()
				return
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
		ticker.Stop()
	}
}
