package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Logging LoggingConfig `json:"logging"`

	// FrameClock configures the demo tick source. The scheduler core itself
	// never owns a clock; it only reacts to ticks it is handed.
	FrameClock FrameClockConfig `json:"frame_clock"`

	Timing TimingConfig `json:"timing"`

	// Lifecycle configures optional cron-driven maintenance windows that
	// force the scheduler inactive (suspend) and allow it back (resume).
	Lifecycle LifecycleConfig `json:"lifecycle,omitempty"`

	// History is the optional fire/lifecycle audit trail.
	// If omitted or driver is ""/"none", history is disabled.
	History *HistoryConfig `json:"history,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level,omitempty"`
	Console bool       `json:"console"`
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// FrameClockConfig controls the demo frame clock.
//
// Interval is a Go duration string (e.g. "16ms" for ~60Hz).
type FrameClockConfig struct {
	Interval string `json:"interval,omitempty"`
}

const defaultFrameInterval = 16 * time.Millisecond

func (c FrameClockConfig) ResolveInterval() (time.Duration, error) {
	return ParseDurationOrDefault("frame_clock.interval", c.Interval, defaultFrameInterval)
}

// TimingConfig controls the scheduler core.
//
// All durations are Go duration strings (e.g. "500us", "18ms").
//
// Defaults (when fields are omitted/zero):
//   - min_timer_duration: "18ms"
//   - queue_size: 64
//   - anomaly_warn_per_sec: 1
type TimingConfig struct {
	// MinTimerDuration is the floor below which a repeating timer's interval
	// collapses to zero (fire on essentially every tick).
	MinTimerDuration string `json:"min_timer_duration,omitempty"`

	// QueueSize bounds the scheduler's serialized operation lane.
	QueueSize int `json:"queue_size,omitempty"`

	// AnomalyWarnPerSec caps clock-anomaly warnings per second.
	AnomalyWarnPerSec int `json:"anomaly_warn_per_sec,omitempty"`
}

const defaultMinTimerDuration = 18 * time.Millisecond

func (c TimingConfig) ResolveMinTimerDuration() (time.Duration, error) {
	return ParseDurationOrDefault("timing.min_timer_duration", c.MinTimerDuration, defaultMinTimerDuration)
}

type LifecycleConfig struct {
	Windows []WindowConfig `json:"windows,omitempty"`
}

// WindowConfig is one maintenance window: Suspend and Resume are cron specs
// (5-field, 6-field with seconds, or descriptors like "@daily").
type WindowConfig struct {
	Name    string `json:"name,omitempty"`
	Suspend string `json:"suspend"`
	Resume  string `json:"resume"`
}

type HistoryConfig struct {
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path,omitempty"`

	// BusyTimeout is a Go duration string (sqlite only).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// Validate performs cheap structural checks. Cron specs are validated where
// they are registered (lifecycle windows), not here.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if _, err := c.FrameClock.ResolveInterval(); err != nil {
		return err
	}
	if _, err := c.Timing.ResolveMinTimerDuration(); err != nil {
		return err
	}
	if c.Timing.QueueSize < 0 {
		return fmt.Errorf("timing.queue_size: must be >= 0")
	}
	for i, w := range c.Lifecycle.Windows {
		if strings.TrimSpace(w.Suspend) == "" || strings.TrimSpace(w.Resume) == "" {
			return fmt.Errorf("lifecycle.windows[%d]: suspend and resume are both required", i)
		}
	}
	if c.History != nil {
		if _, err := ParseDurationField("history.busy_timeout", c.History.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}
