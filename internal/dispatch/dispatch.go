// Package dispatch implements the consumer side of the scheduler contract:
// the batched-callback sink and the immediate-fire path. Fired ids are
// forwarded to a buffered consumer channel and, optionally, recorded in the
// history store.
package dispatch

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"framesched/internal/history"
	"framesched/internal/timing"
	logx "framesched/pkg/logx"
)

// Batch is one delivery to the consumer: the ids that came due within a
// single tick (in registry insertion order), or a single immediately-fired id.
type Batch struct {
	At        time.Time
	IDs       []timing.TimerID
	Immediate bool
}

// Config controls the dispatcher.
//
// Defaults (when fields are omitted/zero):
//   - Buffer: 64
//   - DropWarnPerSec: 1
type Config struct {
	Buffer         int
	DropWarnPerSec int
}

type Dispatcher struct {
	log   logx.Logger
	clock timing.Clock
	store history.Store // may be nil

	out      chan Batch
	dropWarn *rate.Limiter
	dropped  atomic.Uint64

	histCh   chan history.Entry
	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(cfg Config, clock timing.Clock, store history.Store, log logx.Logger) *Dispatcher {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.DropWarnPerSec <= 0 {
		cfg.DropWarnPerSec = 1
	}
	if clock == nil {
		clock = timing.SystemClock{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		log:      log,
		clock:    clock,
		store:    store,
		out:      make(chan Batch, cfg.Buffer),
		dropWarn: rate.NewLimiter(rate.Limit(cfg.DropWarnPerSec), cfg.DropWarnPerSec),
		histCh:   make(chan history.Entry, 256),
		stopCh:   make(chan struct{}),
	}
}

// Events is the consumer channel. The scheduler lane never blocks on it: a
// full buffer drops the batch (counted and rate-limit warned).
func (d *Dispatcher) Events() <-chan Batch { return d.out }

// Dropped returns the number of batches lost to a slow consumer.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Start launches the history writer worker. Without it (or without a store)
// history entries are dropped silently.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.store == nil || d.started.Swap(true) {
		return
	}
	go d.historyWorker(ctx)
}

func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
}

// CallTimers implements timing.CallbackSink. It runs on the scheduler lane
// and must not block.
func (d *Dispatcher) CallTimers(ids []timing.TimerID) {
	d.deliver(Batch{At: d.clock.Now(), IDs: ids})
	d.record(history.Entry{
		Kind:      history.KindBatch,
		BatchSize: len(ids),
		IDs:       joinIDs(ids),
	})
}

// FireImmediately implements timing.CallbackSink's degenerate path.
func (d *Dispatcher) FireImmediately(id timing.TimerID) {
	d.deliver(Batch{At: d.clock.Now(), IDs: []timing.TimerID{id}, Immediate: true})
	d.record(history.Entry{Kind: history.KindImmediate, TimerID: string(id)})
}

// Record appends an arbitrary scheduler event (create/delete/suspend/resume)
// to the history trail.
func (d *Dispatcher) Record(kind history.Kind, timerID timing.TimerID) {
	d.record(history.Entry{Kind: kind, TimerID: string(timerID)})
}

func (d *Dispatcher) deliver(b Batch) {
	select {
	case d.out <- b:
	default:
		n := d.dropped.Add(1)
		if d.dropWarn.Allow() {
			d.log.Warn("batch dropped (consumer slow)",
				logx.Int("batch_size", len(b.IDs)),
				logx.Int64("dropped_total", int64(n)),
			)
		}
	}
}

func (d *Dispatcher) record(e history.Entry) {
	if d.store == nil {
		return
	}
	e.At = d.clock.Now()
	// Never block the scheduler lane on storage.
	select {
	case d.histCh <- e:
	default:
	}
}

func (d *Dispatcher) historyWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case e := <-d.histCh:
			wctx, cancel := context.WithTimeout(context.Background(), time.Second)
			if err := d.store.Append(wctx, e); err != nil {
				d.log.Debug("history append failed", logx.Err(err))
			}
			cancel()
		}
	}
}

func joinIDs(ids []timing.TimerID) string {
	if len(ids) == 0 {
		return ""
	}
	ss := make([]string, len(ids))
	for i, id := range ids {
		ss[i] = string(id)
	}
	return strings.Join(ss, ",")
}
