// Package match implements the match status state machine.
//
// Everything here is pure: functions take a State value plus the current time
// and return the next State. No clocks, goroutines, or I/O live in this package.
package match

import (
	"fmt"
	"strings"
)

// Status is the coarse match status exposed to consumers.
type Status int

// Match statuses.
const (
	StatusDisabled Status = iota
	StatusIdle
	StatusNoSignal
	StatusActive
	StatusBackOff
	StatusGoal
)

var statusNames = map[Status]string{
	StatusDisabled: "disabled",
	StatusIdle:     "idle",
	StatusNoSignal: "no_signal",
	StatusActive:   "active",
	StatusBackOff:  "back_off",
	StatusGoal:     "goal",
}

// String returns the lowercase name used in logs, metrics, and JSON.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseStatus converts a status name back to a Status.
func ParseStatus(name string) (Status, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for status, n := range statusNames {
		if n == name {
			return status, nil
		}
	}
	return StatusDisabled, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
}

// AllStatuses lists every status in declaration order.
func AllStatuses() []Status {
	return []Status{StatusDisabled, StatusIdle, StatusNoSignal, StatusActive, StatusBackOff, StatusGoal}
}

// FailureKind classifies why a fetch did not produce a usable response.
// All kinds are treated the same by the backoff policy.
type FailureKind int

// Failure kinds.
const (
	FailureTimeout FailureKind = iota
	FailureConnection
	FailureMalformedResponse
	FailureMissingField
)

// String returns the snake_case name of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureConnection:
		return "connection_error"
	case FailureMalformedResponse:
		return "malformed_response"
	case FailureMissingField:
		return "missing_field"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind int

// Outcome kinds.
const (
	OutcomeSignal OutcomeKind = iota
	OutcomeNoSignal
	OutcomeFailure
)

// String returns the snake_case name of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSignal:
		return "signal"
	case OutcomeNoSignal:
		return "no_signal"
	case OutcomeFailure:
		return "failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Score maps a lowercase team identifier to its score.
type Score map[string]int

// Clone returns an independent copy of the score.
func (s Score) Clone() Score {
	if s == nil {
		return nil
	}
	out := make(Score, len(s))
	for team, goals := range s {
		out[team] = goals
	}
	return out
}

// Outcome is the result of one fetch against a score source.
// Exactly one variant holds, selected by Kind.
type Outcome struct {
	Kind    OutcomeKind
	Score   Score       // set for OutcomeSignal
	Failure FailureKind // set for OutcomeFailure

	// Raw is the payload as received, kept for diagnostics only.
	Raw []byte
}

// Signal builds a signal outcome carrying a copy of score with normalized team keys.
func Signal(score Score) Outcome {
	normalized := make(Score, len(score))
	for team, goals := range score {
		normalized[NormalizeTeam(team)] = goals
	}
	return Outcome{Kind: OutcomeSignal, Score: normalized}
}

// NoSignal builds an outcome for a reachable source that has no scoreboard to report.
func NoSignal() Outcome {
	return Outcome{Kind: OutcomeNoSignal}
}

// Failed builds a failure outcome of the given kind.
func Failed(kind FailureKind) Outcome {
	return Outcome{Kind: OutcomeFailure, Failure: kind}
}

// WithRaw returns a copy of o carrying raw as its diagnostic payload.
func (o Outcome) WithRaw(raw []byte) Outcome {
	o.Raw = raw
	return o
}

// Successful reports whether the outcome counts as a successful contact for backoff.
func (o Outcome) Successful() bool {
	return o.Kind != OutcomeFailure
}

// String renders the outcome for logs.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSignal:
		return fmt.Sprintf("signal%v", map[string]int(o.Score))
	case OutcomeFailure:
		return "failure(" + o.Failure.String() + ")"
	default:
		return o.Kind.String()
	}
}
