package poller

import (
	"time"

	"github.com/okian/goalsensor/internal/domain/match"
)

// Diagnostics is a read-only snapshot of a scheduler.
type Diagnostics struct {
	Team           string             `json:"team"`
	Status         match.Status       `json:"status"`
	Score          *int               `json:"score"`
	BackoffSeconds int                `json:"backoff_seconds"`
	ResumeAt       *time.Time         `json:"resume_at,omitempty"`
	RequestCount   uint64             `json:"request_count"`
	LastUpdate     *time.Time         `json:"last_update,omitempty"`
	LastScoreSeen  *time.Time         `json:"last_score_seen,omitempty"`
	LastOutcome    *match.OutcomeKind `json:"last_outcome,omitempty"`
	LastFailure    *match.FailureKind `json:"last_failure,omitempty"`
	LastFailureAt  *time.Time         `json:"last_failure_at,omitempty"`
	LastLatencyMs  float64            `json:"last_latency_ms"`
	LastRaw        string             `json:"last_raw,omitempty"`
	InFlight       bool               `json:"in_flight"`
	SkippedTicks   uint64             `json:"skipped_ticks"`
}

// Diagnostics returns a snapshot of the scheduler.
func (s *Scheduler) Diagnostics() Diagnostics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diagnosticsLocked()
}

func (s *Scheduler) diagnosticsLocked() Diagnostics {
	st := s.state
	d := Diagnostics{
		Team:           st.Team,
		Status:         st.Status,
		BackoffSeconds: st.Backoff.Seconds,
		RequestCount:   st.RequestCount,
		LastUpdate:     timePtr(st.LastUpdate),
		LastScoreSeen:  timePtr(st.LastScoreSeen),
		LastFailureAt:  timePtr(s.lastFailureAt),
		LastLatencyMs:  float64(s.lastLatency) / float64(time.Millisecond),
		LastRaw:        string(s.lastRaw),
		InFlight:       s.inFlight,
		SkippedTicks:   s.skippedTicks,
	}
	if score, ok := st.CurrentScore(); ok {
		d.Score = &score
	}
	if st.Status == match.StatusBackOff {
		d.ResumeAt = timePtr(st.Backoff.ResumeAt)
	}
	if s.lastOutcome != nil {
		kind := *s.lastOutcome
		d.LastOutcome = &kind
	}
	if s.lastFailure != nil {
		failure := *s.lastFailure
		d.LastFailure = &failure
	}
	return d
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
