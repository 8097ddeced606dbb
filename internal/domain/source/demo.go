package source

import "github.com/okian/goalsensor/internal/domain/match"

// DemoScript walks through a short match for the given teams: a quiet period
// without a scoreboard, kick-off, a goal for the first team, a flaky stretch,
// a goal for the second team, then the broadcast ends.
func DemoScript(teams ...string) []match.Outcome {
	home, away := "home", "away"
	if len(teams) > 0 {
		home = match.NormalizeTeam(teams[0])
	}
	if len(teams) > 1 {
		away = match.NormalizeTeam(teams[1])
	}
	frame := func(h, a int) match.Outcome {
		return match.Signal(match.Score{home: h, away: a})
	}

	var script []match.Outcome
	script = append(script, repeat(match.NoSignal(), 3)...)
	script = append(script, repeat(frame(0, 0), 8)...)
	script = append(script, repeat(frame(1, 0), 6)...)
	script = append(script,
		match.Failed(match.FailureTimeout),
		match.Failed(match.FailureConnection),
		match.Failed(match.FailureMalformedResponse),
	)
	script = append(script, repeat(frame(1, 0), 4)...)
	script = append(script, repeat(frame(1, 1), 6)...)
	script = append(script, repeat(match.NoSignal(), 20)...)
	return script
}

// NewDemo returns a looping scripted source playing DemoScript.
func NewDemo(teams ...string) *Scripted {
	return NewScripted(DemoScript(teams...), WithLoop())
}

func repeat(o match.Outcome, n int) []match.Outcome {
	out := make([]match.Outcome, n)
	for i := range out {
		out[i] = o
	}
	return out
}
