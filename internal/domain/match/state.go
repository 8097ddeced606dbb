package match

import (
	"strings"
	"time"
)

// State is the mutable record for one tracked team.
type State struct {
	Status Status `json:"status"`
	Team   string `json:"team"`

	// Score is only meaningful when HasScore is set.
	Score    int  `json:"score"`
	HasScore bool `json:"has_score"`

	LastUpdate    time.Time `json:"last_update"`
	LastScoreSeen time.Time `json:"last_score_seen"`

	Backoff Backoff `json:"backoff"`

	// RequestCount counts attempted fetches and survives Enable.
	RequestCount uint64 `json:"request_count"`
}

// NormalizeTeam lowercases and trims a team identifier.
func NormalizeTeam(team string) string {
	return strings.ToLower(strings.TrimSpace(team))
}

// NewState returns the idle baseline for team.
func NewState(team string) State {
	return State{
		Status:  StatusIdle,
		Team:    NormalizeTeam(team),
		Backoff: NewBackoff(),
	}
}

// Enable returns the idle baseline, keeping only the request count.
func Enable(s State) State {
	next := NewState(s.Team)
	next.RequestCount = s.RequestCount
	return next
}

// Disable forces the disabled status. Other fields are left for diagnostics;
// Enable resets them.
func Disable(s State) State {
	s.Status = StatusDisabled
	return s
}

// CurrentScore returns the remembered score and whether one is present.
func (s State) CurrentScore() (int, bool) {
	return s.Score, s.HasScore
}

func (s *State) clearScore() {
	s.Score = 0
	s.HasScore = false
}

func (s *State) setScore(score int) {
	s.Score = score
	s.HasScore = true
}
