package match

import "time"

// Advance applies the transitions driven purely by the clock. It runs once per
// tick before any fetch is considered. When hold is true the tick is spent and
// no poll may happen on it.
//
//   - Goal always falls back to Active: the goal pulse lasts one evaluation.
//   - BackOff stays put until the resume deadline, then drops to Idle with
//     LastUpdate cleared so the next Due check polls right away.
//   - Active drops to Idle once the team has not been seen for TimeUntilIdle.
//   - Idle forgets a remembered score after ScoreReset without sightings.
func Advance(s State, now time.Time, cfg Settings) (next State, hold bool) {
	switch s.Status {
	case StatusDisabled:
		return s, true
	case StatusGoal:
		s.Status = StatusActive
		return s, true
	case StatusBackOff:
		if !s.Backoff.DueToResume(now) {
			return s, true
		}
		s.Status = StatusIdle
		s.LastUpdate = time.Time{}
	case StatusActive:
		if now.Sub(s.LastScoreSeen) >= cfg.TimeUntilIdle {
			s.Status = StatusIdle
			return s, true
		}
	}

	if s.Status == StatusIdle && s.HasScore && now.Sub(s.LastScoreSeen) >= cfg.ScoreReset {
		s.clearScore()
	}
	return s, false
}

// Due reports whether a poll should be attempted now.
func Due(s State, now time.Time, cfg Settings) bool {
	switch s.Status {
	case StatusDisabled, StatusGoal:
		return false
	case StatusBackOff:
		return s.Backoff.DueToResume(now)
	case StatusIdle, StatusNoSignal:
		if s.LastUpdate.IsZero() {
			return true
		}
		return now.Sub(s.LastUpdate) > cfg.IdleScanInterval
	default:
		return true
	}
}

// Transition folds the outcome of a completed poll into the state.
//
// A disabled state ignores the outcome entirely. Failures enter BackOff and
// never touch the score. Any non-failure resets the backoff. A signal that
// carries the tracked team moves the machine to Active, or to Goal when the
// team's score strictly increased while already Active. Lower or repeated
// scores while Active keep the remembered score. Outside Active a score below
// the remembered one is ignored and does not count as a sighting.
func Transition(s State, o Outcome, now time.Time, cfg Settings) State {
	if s.Status == StatusDisabled {
		return s
	}
	s.LastUpdate = now

	switch o.Kind {
	case OutcomeFailure:
		s.Backoff.OnFailure(now, cfg.MaxBackoffSeconds)
		s.Status = StatusBackOff
		return s
	case OutcomeNoSignal:
		s.Backoff.OnSuccess()
		switch s.Status {
		case StatusActive, StatusGoal:
			s.Status = StatusActive
		default:
			s.Status = StatusNoSignal
		}
		return s
	}

	s.Backoff.OnSuccess()
	score, ok := o.Score[s.Team]
	if !ok || score < 0 {
		switch s.Status {
		case StatusGoal:
			s.Status = StatusActive
		case StatusBackOff:
			s.Status = StatusIdle
		}
		return s
	}

	switch s.Status {
	case StatusActive, StatusGoal:
		s.LastScoreSeen = now
		switch {
		case !s.HasScore:
			s.setScore(score)
			s.Status = StatusActive
		case score > s.Score:
			s.setScore(score)
			s.Status = StatusGoal
		default:
			s.Status = StatusActive
		}
	default:
		// A remembered score only gives way to a lower one once the stale
		// clear in Advance has dropped it.
		if s.HasScore && score < s.Score {
			if s.Status == StatusBackOff {
				s.Status = StatusIdle
			}
			return s
		}
		s.LastScoreSeen = now
		s.setScore(score)
		s.Status = StatusActive
	}
	return s
}
