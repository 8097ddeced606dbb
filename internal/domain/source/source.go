// Package source defines the contract for obtaining score snapshots.
//
// A Source never returns an error and must not panic: every problem is folded
// into a match.Outcome carrying a failure kind.
package source

import (
	"context"
	"sync"
	"time"

	"github.com/okian/goalsensor/internal/domain/match"
)

// Source fetches one score snapshot.
type Source interface {
	// Fetch performs a single request bounded by timeout.
	Fetch(ctx context.Context, timeout time.Duration) match.Outcome
}

// Func adapts an ordinary function to the Source interface.
type Func func(ctx context.Context, timeout time.Duration) match.Outcome

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, timeout time.Duration) match.Outcome {
	return f(ctx, timeout)
}

// Scripted replays a fixed list of outcomes, one per Fetch.
// Once the script is exhausted the last outcome repeats, or NoSignal when the
// script is empty.
type Scripted struct {
	mu       sync.Mutex
	outcomes []match.Outcome
	next     int
	calls    int
	delay    time.Duration
	loop     bool
}

// ScriptOption configures a Scripted source.
type ScriptOption func(*Scripted)

// WithDelay makes every fetch take d before answering. A fetch whose timeout is
// shorter than d, or whose context ends first, reports a timeout.
func WithDelay(d time.Duration) ScriptOption {
	return func(s *Scripted) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithLoop restarts the script from the beginning once it runs out.
func WithLoop() ScriptOption {
	return func(s *Scripted) {
		s.loop = true
	}
}

// NewScripted creates a scripted source replaying outcomes in order.
func NewScripted(outcomes []match.Outcome, opts ...ScriptOption) *Scripted {
	s := &Scripted{outcomes: append([]match.Outcome(nil), outcomes...)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push appends outcomes to the end of the script.
func (s *Scripted) Push(outcomes ...match.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcomes...)
}

// Calls returns how many times Fetch was invoked.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Fetch returns the next scripted outcome.
func (s *Scripted) Fetch(ctx context.Context, timeout time.Duration) match.Outcome {
	s.mu.Lock()
	s.calls++
	o := s.advance()
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		var deadline <-chan time.Time
		if timeout > 0 {
			limit := time.NewTimer(timeout)
			defer limit.Stop()
			deadline = limit.C
		}
		select {
		case <-timer.C:
		case <-deadline:
			return match.Failed(match.FailureTimeout)
		case <-ctx.Done():
			return match.Failed(match.FailureTimeout)
		}
	}
	return o
}

func (s *Scripted) advance() match.Outcome {
	if len(s.outcomes) == 0 {
		return match.NoSignal()
	}
	if s.next >= len(s.outcomes) {
		if !s.loop {
			return copyOutcome(s.outcomes[len(s.outcomes)-1])
		}
		s.next = 0
	}
	o := s.outcomes[s.next]
	s.next++
	return copyOutcome(o)
}

func copyOutcome(o match.Outcome) match.Outcome {
	o.Score = o.Score.Clone()
	return o
}
