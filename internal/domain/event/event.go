// Package event defines the diagnostics events emitted by a poll scheduler.
package event

import (
	"context"
	"time"

	"github.com/okian/goalsensor/internal/domain/match"
)

// Kind identifies what happened.
type Kind string

// Event kinds.
const (
	KindPoll          Kind = "poll"
	KindStatusChanged Kind = "status_changed"
	KindGoal          Kind = "goal"
	KindBackoff       Kind = "backoff"
	KindScoreCleared  Kind = "score_cleared"
	KindEnabled       Kind = "enabled"
	KindDisabled      Kind = "disabled"
	KindTickSkipped   Kind = "tick_skipped"
)

// AllKinds lists every event kind.
func AllKinds() []Kind {
	return []Kind{KindPoll, KindStatusChanged, KindGoal, KindBackoff, KindScoreCleared, KindEnabled, KindDisabled, KindTickSkipped}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range AllKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Event describes one observable step of a scheduler.
type Event struct {
	ID   string    `json:"id,omitempty"`
	Kind Kind      `json:"kind"`
	Team string    `json:"team"`
	At   time.Time `json:"at"`

	From match.Status `json:"from"`
	To   match.Status `json:"to"`

	Score    int  `json:"score"`
	HasScore bool `json:"has_score"`

	// Set for KindPoll.
	Outcome match.OutcomeKind  `json:"outcome"`
	Failure *match.FailureKind `json:"failure,omitempty"`
	Latency time.Duration      `json:"latency_ns,omitempty"`

	BackoffSeconds int       `json:"backoff_seconds"`
	ResumeAt       time.Time `json:"resume_at"`
	RequestCount   uint64    `json:"request_count"`
}

// FromState fills the state-derived fields of an event.
func FromState(kind Kind, from match.State, to match.State, at time.Time) Event {
	return Event{
		Kind:           kind,
		Team:           to.Team,
		At:             at,
		From:           from.Status,
		To:             to.Status,
		Score:          to.Score,
		HasScore:       to.HasScore,
		BackoffSeconds: to.Backoff.Seconds,
		ResumeAt:       to.Backoff.ResumeAt,
		RequestCount:   to.RequestCount,
	}
}

// Sink receives events. Implementations must be safe for concurrent use and
// must not block for long: they are called from the tick path.
type Sink interface {
	Record(ctx context.Context, e Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, e Event)

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, e Event) { f(ctx, e) }

type nop struct{}

func (nop) Record(context.Context, Event) {}

// Nop returns a sink that drops everything.
func Nop() Sink { return nop{} }

// Multi fans an event out to several sinks in order.
type Multi []Sink

// Record forwards e to every non-nil sink.
func (m Multi) Record(ctx context.Context, e Event) {
	for _, s := range m {
		if s != nil {
			s.Record(ctx, e)
		}
	}
}
