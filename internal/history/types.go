package history

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("history disabled")

// Config configures the history store.
//
// Driver values:
//   - "file": dependency-free file backend (append-only JSON Lines)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", history is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

type Kind string

const (
	KindCreated   Kind = "created"
	KindDeleted   Kind = "deleted"
	KindBatch     Kind = "batch"
	KindImmediate Kind = "immediate"
	KindSuspend   Kind = "suspend"
	KindResume    Kind = "resume"
)

// Entry records one scheduler event. Keep it compact and schema-stable.
type Entry struct {
	At        time.Time `json:"at"`
	Kind      Kind      `json:"kind"`
	TimerID   string    `json:"timer_id,omitempty"`
	BatchSize int       `json:"batch_size,omitempty"`
	IDs       string    `json:"ids,omitempty"` // comma-joined batch ids
}
