package timing

import (
	"time"
)

// TimerID is an opaque, caller-supplied timer identifier. Ids must be unique
// among live timers; the empty string is reserved (rejected as invalid).
type TimerID string

// Clock supplies the scheduler's notion of "now". Injected so tests can pin it.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// TickListener is what a TickSource drives: one OnTick per external tick
// while subscribed.
type TickListener interface {
	OnTick(now time.Time)
}

// TickSource is the external frame clock. Subscribe/Unsubscribe must be safe
// to call from the scheduler lane.
type TickSource interface {
	Subscribe(TickListener)
	Unsubscribe(TickListener)
}

// CallbackSink consumes fired timers.
type CallbackSink interface {
	// CallTimers delivers the ids that came due within one tick, in registry
	// insertion order. Invoked at most once per tick.
	CallTimers(ids []TimerID)

	// FireImmediately handles the degenerate zero-duration one-shot path.
	// Invoked synchronously from CreateTimer, never from a tick.
	FireImmediately(id TimerID)
}

// Config controls the scheduler.
//
// Defaults (when fields are omitted/zero):
//   - MinTimerDuration: 18ms
//   - QueueSize: 64
//   - AnomalyWarnPerSec: 1
type Config struct {
	// MinTimerDuration is the floor below which a repeating timer's interval
	// collapses to zero, i.e. it fires on essentially every tick. The first
	// fire still honors the computed target time.
	MinTimerDuration time.Duration

	// QueueSize bounds the serialized operation lane.
	QueueSize int

	// AnomalyWarnPerSec caps clock-anomaly warnings per second.
	AnomalyWarnPerSec int
}

func (c Config) withDefaults() Config {
	if c.MinTimerDuration <= 0 {
		c.MinTimerDuration = 18 * time.Millisecond
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.AnomalyWarnPerSec <= 0 {
		c.AnomalyWarnPerSec = 1
	}
	return c
}
