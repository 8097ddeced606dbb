// Package poller drives the match state machine from a periodic tick.
//
// A Scheduler owns the State of one tracked team. Each tick it applies clock
// transitions, asks whether a poll is due, fetches from the Source under a
// bounded timeout, and folds the outcome back into the state. The lock is not
// held during the fetch; Enable and Disable bump an epoch so a result that
// straddles them is dropped.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/goalsensor/internal/domain/event"
	"github.com/okian/goalsensor/internal/domain/match"
	"github.com/okian/goalsensor/internal/domain/source"
)

// Default scheduler configuration constants.
const (
	DefaultTickInterval = time.Second
	defaultMaxRawBytes  = 4096
)

// Sentinel errors.
var (
	ErrNoSource = errors.New("poller requires a score source")
	ErrNoTeam   = errors.New("poller requires a team")
)

// Tick reports what a single OnTick call did.
type Tick struct {
	Polled    bool
	Skipped   bool
	Discarded bool
	Outcome   match.Outcome
	Status    match.Status
}

// Scheduler polls one source on behalf of one team.
type Scheduler struct {
	src    source.Source
	cfg    match.Settings
	sink   event.Sink
	now    func() time.Time
	maxRaw int

	mu       sync.Mutex
	state    match.State
	epoch    uint64
	inFlight bool

	lastOutcome   *match.OutcomeKind
	lastFailure   *match.FailureKind
	lastFailureAt time.Time
	lastLatency   time.Duration
	lastRaw       []byte
	skippedTicks  uint64
}

// New creates a scheduler for team reading from src.
func New(team string, src source.Source, opts ...Option) (*Scheduler, error) {
	if src == nil {
		return nil, ErrNoSource
	}
	team = match.NormalizeTeam(team)
	if team == "" {
		return nil, ErrNoTeam
	}

	s := &Scheduler{
		src:    src,
		cfg:    match.DefaultSettings(),
		sink:   event.Nop(),
		now:    time.Now,
		maxRaw: defaultMaxRawBytes,
		state:  match.NewState(team),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scheduler for %q: %w", team, err)
	}
	return s, nil
}

// Team returns the tracked team.
func (s *Scheduler) Team() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Team
}

// State returns a copy of the current state.
func (s *Scheduler) State() match.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnTick runs one evaluation at now. It blocks for at most the configured
// request timeout.
func (s *Scheduler) OnTick(ctx context.Context, now time.Time) Tick {
	s.mu.Lock()
	if s.inFlight {
		s.skippedTicks++
		ev := event.FromState(event.KindTickSkipped, s.state, s.state, now)
		s.mu.Unlock()
		s.sink.Record(ctx, ev)
		return Tick{Skipped: true, Status: ev.To}
	}

	prev := s.state
	next, hold := match.Advance(prev, now, s.cfg)
	s.state = next
	events := clockEvents(prev, next, now)
	if hold || !match.Due(next, now, s.cfg) {
		s.mu.Unlock()
		s.emit(ctx, events)
		return Tick{Status: next.Status}
	}

	s.state.RequestCount++
	s.inFlight = true
	epoch := s.epoch
	s.mu.Unlock()
	s.emit(ctx, events)

	start := time.Now()
	outcome := s.fetch(ctx)
	latency := time.Since(start)

	s.mu.Lock()
	s.inFlight = false
	if s.epoch != epoch || ctx.Err() != nil {
		status := s.state.Status
		s.mu.Unlock()
		return Tick{Polled: true, Discarded: true, Outcome: outcome, Status: status}
	}
	before := s.state
	after := match.Transition(before, outcome, now, s.cfg)
	s.state = after
	s.remember(outcome, now, latency)
	events = pollEvents(before, after, outcome, now, latency)
	s.mu.Unlock()

	s.emit(ctx, events)
	return Tick{Polled: true, Outcome: outcome, Status: after.Status}
}

// fetch calls the source and enforces the request timeout even when the
// source ignores its context.
func (s *Scheduler) fetch(ctx context.Context) match.Outcome {
	timeout := s.cfg.RequestTimeout
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan match.Outcome, 1)
	go func() {
		done <- s.src.Fetch(fetchCtx, timeout)
	}()

	select {
	case o := <-done:
		return o
	case <-fetchCtx.Done():
		return match.Failed(match.FailureTimeout)
	}
}

func (s *Scheduler) remember(o match.Outcome, now time.Time, latency time.Duration) {
	kind := o.Kind
	s.lastOutcome = &kind
	s.lastLatency = latency
	if o.Kind == match.OutcomeFailure {
		failure := o.Failure
		s.lastFailure = &failure
		s.lastFailureAt = now
	}
	if o.Raw != nil {
		raw := o.Raw
		if len(raw) > s.maxRaw {
			raw = raw[:s.maxRaw]
		}
		s.lastRaw = append(s.lastRaw[:0], raw...)
	}
}

// Enable returns the scheduler to the idle baseline. It is idempotent and
// invalidates any fetch in flight.
func (s *Scheduler) Enable(ctx context.Context) Diagnostics {
	return s.control(ctx, event.KindEnabled, match.Enable)
}

// Disable stops polling. It is idempotent and invalidates any fetch in flight.
func (s *Scheduler) Disable(ctx context.Context) Diagnostics {
	return s.control(ctx, event.KindDisabled, match.Disable)
}

func (s *Scheduler) control(ctx context.Context, kind event.Kind, apply func(match.State) match.State) Diagnostics {
	s.mu.Lock()
	prev := s.state
	s.state = apply(prev)
	s.epoch++
	ev := event.FromState(kind, prev, s.state, s.now())
	diag := s.diagnosticsLocked()
	s.mu.Unlock()

	s.sink.Record(ctx, ev)
	return diag
}

// Run ticks every interval until ctx ends. The first tick happens immediately.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.OnTick(ctx, s.now())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.OnTick(ctx, s.now())
		}
	}
}

func (s *Scheduler) emit(ctx context.Context, events []event.Event) {
	for _, ev := range events {
		s.sink.Record(ctx, ev)
	}
}

func clockEvents(prev, next match.State, now time.Time) []event.Event {
	var events []event.Event
	if prev.HasScore && !next.HasScore {
		events = append(events, event.FromState(event.KindScoreCleared, prev, next, now))
	}
	if prev.Status != next.Status {
		events = append(events, event.FromState(event.KindStatusChanged, prev, next, now))
	}
	return events
}

func pollEvents(before, after match.State, o match.Outcome, now time.Time, latency time.Duration) []event.Event {
	poll := event.FromState(event.KindPoll, before, after, now)
	poll.Outcome = o.Kind
	poll.Latency = latency
	if o.Kind == match.OutcomeFailure {
		failure := o.Failure
		poll.Failure = &failure
	}
	events := []event.Event{poll}

	if before.Status != after.Status {
		events = append(events, event.FromState(event.KindStatusChanged, before, after, now))
	}
	switch after.Status {
	case match.StatusGoal:
		events = append(events, event.FromState(event.KindGoal, before, after, now))
	case match.StatusBackOff:
		events = append(events, event.FromState(event.KindBackoff, before, after, now))
	}
	return events
}
