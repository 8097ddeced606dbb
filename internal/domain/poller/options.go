package poller

import (
	"time"

	"github.com/okian/goalsensor/internal/domain/event"
	"github.com/okian/goalsensor/internal/domain/match"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithSettings sets the state machine timings.
func WithSettings(cfg match.Settings) Option {
	return func(s *Scheduler) {
		s.cfg = cfg
	}
}

// WithSink sets where diagnostics events go.
func WithSink(sink event.Sink) Option {
	return func(s *Scheduler) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithClock sets the time source used by Run.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxRawBytes caps how much of the last raw payload is retained.
func WithMaxRawBytes(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxRaw = n
		}
	}
}

// WithDisabled starts the scheduler in the disabled state.
func WithDisabled() Option {
	return func(s *Scheduler) {
		s.state = match.Disable(s.state)
	}
}
