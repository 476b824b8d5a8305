package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	logx "framesched/pkg/logx"
)

// Window is one maintenance window: at Suspend the hub delivers a
// suspend-class signal, at Resume a resume-class one. Both are cron specs.
type Window struct {
	Name    string
	Suspend string
	Resume  string
}

// Windows turns cron schedules into lifecycle signals, e.g. to keep the
// scheduler quiet during host maintenance. It only drives the Hub; whether
// anything actually pauses is up to the hub's subscribers.
type Windows struct {
	log logx.Logger
	hub *Hub

	mu      sync.Mutex
	parser  cron.Parser
	c       *cron.Cron
	names   []string
	started bool
}

func NewWindows(hub *Hub, log logx.Logger) *Windows {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Windows{
		log: log,
		hub: hub,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		c:      cron.New(),
	}
}

// Add validates and registers one window. Both specs must parse; on error
// nothing is registered.
func (w *Windows) Add(win Window) error {
	name := strings.TrimSpace(win.Name)
	if name == "" {
		name = fmt.Sprintf("window-%d", len(w.names)+1)
	}

	susSched, err := w.parser.Parse(win.Suspend)
	if err != nil {
		return fmt.Errorf("window %s: suspend spec %q: %w", name, win.Suspend, err)
	}
	resSched, err := w.parser.Parse(win.Resume)
	if err != nil {
		return fmt.Errorf("window %s: resume spec %q: %w", name, win.Resume, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.c == nil {
		return errors.New("windows already stopped")
	}

	localName := name
	w.c.Schedule(susSched, cron.FuncJob(func() {
		w.log.Info("maintenance window opens", logx.String("window", localName))
		w.hub.Deliver(SignalBackground)
	}))
	w.c.Schedule(resSched, cron.FuncJob(func() {
		w.log.Info("maintenance window closes", logx.String("window", localName))
		w.hub.Deliver(SignalForeground)
	}))
	w.names = append(w.names, name)

	w.log.Debug("maintenance window registered",
		logx.String("window", name),
		logx.String("suspend", win.Suspend),
		logx.String("resume", win.Resume),
	)
	return nil
}

func (w *Windows) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.c == nil || w.started {
		return
	}
	w.started = true
	w.c.Start()
	if len(w.names) > 0 {
		w.log.Info("maintenance windows active", logx.Int("windows", len(w.names)))
	}
}

// Stop halts the cron engine. Jobs already in flight finish.
func (w *Windows) Stop() {
	w.mu.Lock()
	c := w.c
	w.c = nil
	w.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
