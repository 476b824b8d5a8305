package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/google/uuid"

	"framesched/internal/config"
	"framesched/internal/dispatch"
	"framesched/internal/frameclock"
	"framesched/internal/history"
	"framesched/internal/lifecycle"
	"framesched/internal/timing"
	logx "framesched/pkg/logx"
)

func main() {
	var (
		cfgPath string
		demo    bool
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml/json")
	flag.BoolVar(&demo, "demo", false, "register a few sample timers and log their fires")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		if os.IsNotExist(err) {
			// No config file: run with defaults (console logging, 16ms clock).
			cfg = &config.Config{Logging: config.LoggingConfig{Console: true}}
			mgr.Commit(cfg)
		} else {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	defer logSvc.Close()

	mgr.SetLogger(log)
	mgr.SetValidator(func(_ context.Context, c *config.Config) error { return c.Validate() })

	store, err := history.Open(historyConfig(cfg), log)
	if err != nil {
		log.Error("history store unavailable", logx.Err(err))
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
	}

	hub := lifecycle.NewHub(log)

	windows := lifecycle.NewWindows(hub, log)
	for _, w := range cfg.Lifecycle.Windows {
		if err := windows.Add(lifecycle.Window{Name: w.Name, Suspend: w.Suspend, Resume: w.Resume}); err != nil {
			log.Error("bad maintenance window", logx.Err(err))
			os.Exit(1)
		}
	}
	windows.Start()
	defer windows.Stop()

	interval, _ := cfg.FrameClock.ResolveInterval()
	clock := frameclock.New(interval, log.With(logx.String("component", "frameclock")))
	clock.Start(ctx)
	defer clock.Stop()

	disp := dispatch.New(dispatch.Config{}, timing.SystemClock{}, store, log.With(logx.String("component", "dispatch")))
	disp.Start(ctx)
	defer disp.Stop()

	minDur, _ := cfg.Timing.ResolveMinTimerDuration()
	sched := timing.New(timing.Config{
		MinTimerDuration:  minDur,
		QueueSize:         cfg.Timing.QueueSize,
		AnomalyWarnPerSec: cfg.Timing.AnomalyWarnPerSec,
	}, timing.SystemClock{}, clock, disp, log.With(logx.String("component", "timing")))
	sched.Start(ctx)
	sched.BindLifecycle(hub)

	// Audit trail for lifecycle transitions.
	hub.OnSuspend(func() { disp.Record(history.KindSuspend, "") })
	hub.OnResume(func() { disp.Record(history.KindResume, "") })

	// Config hot reload: only the logging section is live-appliable.
	go func() { _ = mgr.Watch(ctx) }()
	updates := mgr.Subscribe(2)
	defer mgr.Unsubscribe(updates)
	go func() {
		for c := range updates {
			logSvc.Apply(logx.Config{
				Level:   c.Logging.Level,
				Console: c.Logging.Console,
				File:    logx.FileConfig{Enabled: c.Logging.File.Enabled, Path: c.Logging.File.Path},
			})
			log.Info("logging config applied")
		}
	}()

	// Operator-driven suspend/resume.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for s := range sigCh {
			switch s {
			case syscall.SIGUSR1:
				hub.Deliver(lifecycle.SignalBackground)
			case syscall.SIGUSR2:
				hub.Deliver(lifecycle.SignalForeground)
			}
		}
	}()

	if demo {
		go runDemo(ctx, sched, disp, log)
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	log.Info("framesched ready",
		logx.Duration("frame_interval", interval),
		logx.Bool("history", store != nil),
		logx.Int("windows", len(cfg.Lifecycle.Windows)),
	)

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	sched.Invalidate()
	log.Info("framesched stopped")
}

func historyConfig(cfg *config.Config) history.Config {
	if cfg.History == nil {
		return history.Config{}
	}
	busy, _ := config.ParseDurationField("history.busy_timeout", cfg.History.BusyTimeout)
	return history.Config{
		Driver:      cfg.History.Driver,
		Path:        cfg.History.Path,
		BusyTimeout: busy,
	}
}

// runDemo registers a handful of timers and logs every batch the consumer
// channel sees.
func runDemo(ctx context.Context, sched *timing.Service, disp *dispatch.Dispatcher, log logx.Logger) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case b := <-disp.Events():
				ids := make([]string, len(b.IDs))
				for i, id := range b.IDs {
					ids[i] = string(id)
				}
				log.Info("timers fired",
					logx.Any("ids", ids),
					logx.Bool("immediate", b.Immediate),
					logx.Time("at", b.At),
				)
			}
		}
	}()

	oneShot := timing.TimerID(uuid.NewString())
	repeating := timing.TimerID(uuid.NewString())
	instant := timing.TimerID(uuid.NewString())

	sched.CreateTimer(oneShot, time.Second, 0, false)
	disp.Record(history.KindCreated, oneShot)

	sched.CreateTimer(repeating, 500*time.Millisecond, 0, true)
	disp.Record(history.KindCreated, repeating)

	// Degenerate zero-duration one-shot: fires via the immediate path.
	sched.CreateTimer(instant, 0, 0, false)

	// Retire the repeating timer after a while so the daemon goes idle.
	select {
	case <-ctx.Done():
		return
	case <-time.After(10 * time.Second):
	}
	sched.DeleteTimer(repeating)
	disp.Record(history.KindDeleted, repeating)
}
