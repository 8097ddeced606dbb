package match

import (
	"fmt"
	"time"
)

// Default timing configuration constants.
const (
	DefaultIdleScanInterval  = 10 * time.Second
	DefaultTimeUntilIdle     = 15 * time.Second
	DefaultScoreReset        = 30 * time.Minute
	DefaultMaxBackoffSeconds = 128
	DefaultRequestTimeout    = 500 * time.Millisecond
)

// Settings holds the timers driving the state machine.
type Settings struct {
	// IdleScanInterval is the minimum gap between polls while idle or without signal.
	IdleScanInterval time.Duration
	// TimeUntilIdle is how long an active match may go unseen before returning to idle.
	TimeUntilIdle time.Duration
	// ScoreReset is how long a remembered score survives while idle.
	ScoreReset time.Duration
	// MaxBackoffSeconds caps the failure backoff delay.
	MaxBackoffSeconds int
	// RequestTimeout bounds a single fetch.
	RequestTimeout time.Duration
}

// DefaultSettings returns the stock timings.
func DefaultSettings() Settings {
	return Settings{
		IdleScanInterval:  DefaultIdleScanInterval,
		TimeUntilIdle:     DefaultTimeUntilIdle,
		ScoreReset:        DefaultScoreReset,
		MaxBackoffSeconds: DefaultMaxBackoffSeconds,
		RequestTimeout:    DefaultRequestTimeout,
	}
}

// Validate checks that every timer is usable.
func (s Settings) Validate() error {
	switch {
	case s.IdleScanInterval < 0:
		return fmt.Errorf("%w: idle scan interval must not be negative", ErrInvalidSettings)
	case s.TimeUntilIdle <= 0:
		return fmt.Errorf("%w: time until idle must be positive", ErrInvalidSettings)
	case s.ScoreReset <= 0:
		return fmt.Errorf("%w: score reset must be positive", ErrInvalidSettings)
	case s.MaxBackoffSeconds < 1:
		return fmt.Errorf("%w: max backoff must be at least 1 second", ErrInvalidSettings)
	case s.RequestTimeout <= 0:
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidSettings)
	}
	return nil
}
