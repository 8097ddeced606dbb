// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New returns a Config populated with defaults.
//   - Load layers a YAML file and GOAL_* environment variables on top.
//   - Validate reports problems wrapped in ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/goalsensor/internal/domain/event"
	"github.com/okian/goalsensor/internal/domain/match"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Teams lists the tracked teams; one monitor runs per team.
	Teams []string `koanf:"teams"`

	// StartDisabled starts every monitor disabled until enabled over HTTP.
	StartDisabled bool `koanf:"start_disabled"`

	// ScoreURL is the score server endpoint. "demo://" plays a scripted match.
	ScoreURL string `koanf:"score_url"`

	// RequestMethod and RequestBody shape the request sent to the score server.
	RequestMethod string `koanf:"request_method"`
	RequestBody   string `koanf:"request_body"`

	// RequireSignalField treats a response without hasSignal as a missing field.
	RequireSignalField bool `koanf:"require_signal_field"`

	// MaxFrameAgeSeconds reports older frames as no signal; 0 disables the check.
	MaxFrameAgeSeconds float64 `koanf:"max_frame_age_seconds"`

	// TickIntervalMS is the scheduler tick period.
	TickIntervalMS int `koanf:"tick_interval_ms"`

	// State machine timings.
	IdleScanIntervalSeconds float64 `koanf:"idle_scan_interval_seconds"`
	TimeUntilIdleSeconds    float64 `koanf:"time_until_idle_seconds"`
	ScoreResetSeconds       float64 `koanf:"score_reset_seconds"`
	MaxBackoffSeconds       int     `koanf:"max_backoff_seconds"`
	RequestTimeoutSeconds   float64 `koanf:"request_timeout_seconds"`

	// NotifyURL enables the webhook notifier when set.
	NotifyURL string `koanf:"notify_url"`

	// NotifyOn lists the event kinds forwarded to the webhook.
	NotifyOn []string `koanf:"notify_on"`

	// NotifyQueueSize bounds pending notifications; overflow is dropped.
	NotifyQueueSize int `koanf:"notify_queue_size"`

	// NotifyWorkers sets the number of delivery goroutines.
	NotifyWorkers int `koanf:"notify_workers"`

	// NotifyTimeoutSeconds bounds a single webhook call.
	NotifyTimeoutSeconds float64 `koanf:"notify_timeout_seconds"`
}

// New creates a Config with defaults.
func New() *Config {
	defaults := match.DefaultSettings()
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		RequestMethod:           "GET",
		TickIntervalMS:          1000,
		IdleScanIntervalSeconds: defaults.IdleScanInterval.Seconds(),
		TimeUntilIdleSeconds:    defaults.TimeUntilIdle.Seconds(),
		ScoreResetSeconds:       defaults.ScoreReset.Seconds(),
		MaxBackoffSeconds:       defaults.MaxBackoffSeconds,
		RequestTimeoutSeconds:   defaults.RequestTimeout.Seconds(),
		NotifyOn:                []string{string(event.KindGoal)},
		NotifyQueueSize:         64,
		NotifyWorkers:           1,
		NotifyTimeoutSeconds:    5,
	}
}

// Settings returns the state machine timings.
func (c *Config) Settings() match.Settings {
	return match.Settings{
		IdleScanInterval:  seconds(c.IdleScanIntervalSeconds),
		TimeUntilIdle:     seconds(c.TimeUntilIdleSeconds),
		ScoreReset:        seconds(c.ScoreResetSeconds),
		MaxBackoffSeconds: c.MaxBackoffSeconds,
		RequestTimeout:    seconds(c.RequestTimeoutSeconds),
	}
}

// TickInterval returns the scheduler tick period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// MaxFrameAge returns the frame age limit, zero when disabled.
func (c *Config) MaxFrameAge() time.Duration {
	return seconds(c.MaxFrameAgeSeconds)
}

// NotifyTimeout returns the webhook call timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return seconds(c.NotifyTimeoutSeconds)
}

// NotifyKinds returns NotifyOn as event kinds.
func (c *Config) NotifyKinds() []event.Kind {
	kinds := make([]event.Kind, 0, len(c.NotifyOn))
	for _, k := range c.NotifyOn {
		kinds = append(kinds, event.Kind(k))
	}
	return kinds
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case len(c.Teams) == 0:
		return fmt.Errorf("%w: at least one team is required", ErrInvalidConfig)
	case c.ScoreURL == "":
		return fmt.Errorf("%w: score_url must not be empty", ErrInvalidConfig)
	case c.TickIntervalMS <= 0:
		return fmt.Errorf("%w: tick_interval_ms must be positive", ErrInvalidConfig)
	case c.MaxFrameAgeSeconds < 0:
		return fmt.Errorf("%w: max_frame_age_seconds must not be negative", ErrInvalidConfig)
	}
	for _, team := range c.Teams {
		if strings.TrimSpace(team) == "" {
			return fmt.Errorf("%w: team names must not be empty", ErrInvalidConfig)
		}
	}
	for _, kind := range c.NotifyKinds() {
		if !kind.Valid() {
			return fmt.Errorf("%w: unknown notify_on kind %q", ErrInvalidConfig, kind)
		}
	}
	if err := c.Settings().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// normalize lowercases teams and event kinds and drops duplicates.
func (c *Config) normalize() {
	c.Teams = uniqueLower(c.Teams, match.NormalizeTeam)
	c.NotifyOn = uniqueLower(c.NotifyOn, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

func uniqueLower(in []string, norm func(string) string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = norm(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
