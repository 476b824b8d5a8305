// Package lifecycle delivers host lifecycle signals (suspend/resume) to
// interested components.
//
// Signals are classified into two categories. Handlers register per category
// with an explicit removal handle, so a component's registration lifetime is
// tied to its own teardown rather than to an ambient notification center.
package lifecycle

import (
	"sync"

	logx "framesched/pkg/logx"
)

// Signal is a discrete host lifecycle event.
type Signal int

const (
	// Suspend-class signals.
	SignalBackground Signal = iota
	SignalResignActive
	SignalTerminate

	// Resume-class signals.
	SignalForeground
	SignalBecameActive
)

func (s Signal) String() string {
	switch s {
	case SignalBackground:
		return "background"
	case SignalResignActive:
		return "resign_active"
	case SignalTerminate:
		return "terminate"
	case SignalForeground:
		return "foreground"
	case SignalBecameActive:
		return "became_active"
	default:
		return "unknown"
	}
}

// Class is the coarse grouping consumers actually react to.
type Class int

const (
	ClassSuspend Class = iota
	ClassResume
)

func (s Signal) Class() Class {
	switch s {
	case SignalForeground, SignalBecameActive:
		return ClassResume
	default:
		return ClassSuspend
	}
}

type handler struct {
	id uint64
	fn func()
}

// Hub fans lifecycle signals out to registered handlers.
//
// Delivery is synchronous and in registration order. Handlers must not block;
// anything expensive should be marshaled onto the component's own lane.
type Hub struct {
	log logx.Logger

	mu      sync.Mutex
	seq     uint64
	suspend []handler
	resume  []handler
}

func NewHub(log logx.Logger) *Hub {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Hub{log: log}
}

// OnSuspend registers fn for suspend-class signals and returns its removal
// handle. The handle is idempotent.
func (h *Hub) OnSuspend(fn func()) (remove func()) {
	return h.register(&h.suspend, fn)
}

// OnResume registers fn for resume-class signals and returns its removal
// handle. The handle is idempotent.
func (h *Hub) OnResume(fn func()) (remove func()) {
	return h.register(&h.resume, fn)
}

func (h *Hub) register(list *[]handler, fn func()) func() {
	h.mu.Lock()
	h.seq++
	id := h.seq
	*list = append(*list, handler{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, hd := range *list {
				if hd.id == id {
					*list = append((*list)[:i], (*list)[i+1:]...)
					return
				}
			}
		})
	}
}

// Deliver classifies sig and invokes the matching handlers.
//
// Handlers are snapshotted first so a handler may remove itself (or register
// others) during delivery without corrupting the walk.
func (h *Hub) Deliver(sig Signal) {
	h.mu.Lock()
	var src []handler
	if sig.Class() == ClassResume {
		src = h.resume
	} else {
		src = h.suspend
	}
	snap := make([]handler, len(src))
	copy(snap, src)
	h.mu.Unlock()

	h.log.Debug("lifecycle signal", logx.String("signal", sig.String()), logx.Int("handlers", len(snap)))
	for _, hd := range snap {
		if hd.fn != nil {
			hd.fn()
		}
	}
}
