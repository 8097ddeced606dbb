package main

import (
	"context"
	"fmt"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/okian/goalsensor/internal/domain/match"
	"github.com/okian/goalsensor/internal/domain/source"
)

// report is the result of a single probe.
type report struct {
	URL       string         `json:"url,omitempty"`
	Outcome   string         `json:"outcome"`
	Failure   string         `json:"failure,omitempty"`
	Score     map[string]int `json:"score,omitempty"`
	Team      string         `json:"team,omitempty"`
	TeamScore *int           `json:"team_score,omitempty"`
	Status    string         `json:"status,omitempty"`
	LatencyMs float64        `json:"latency_ms"`
	Raw       string         `json:"raw,omitempty"`
}

// probe fetches once from src. With a team it also folds the outcome into a
// fresh idle state to show the status a new monitor would report.
func probe(ctx context.Context, src source.Source, team string, timeout time.Duration, now func() time.Time) report {
	start := now()
	o := src.Fetch(ctx, timeout)
	finished := now()

	r := report{
		Outcome:   o.Kind.String(),
		LatencyMs: float64(finished.Sub(start)) / float64(time.Millisecond),
		Raw:       string(o.Raw),
	}
	switch o.Kind {
	case match.OutcomeSignal:
		r.Score = map[string]int(o.Score)
	case match.OutcomeFailure:
		r.Failure = o.Failure.String()
	}

	if team = match.NormalizeTeam(team); team != "" {
		r.Team = team
		if goals, ok := o.Score[team]; ok && o.Kind == match.OutcomeSignal {
			r.TeamScore = &goals
		}
		st := match.NewState(team)
		st.RequestCount++
		r.Status = match.Transition(st, o, finished, match.DefaultSettings()).Status.String()
	}
	return r
}

func writeReport(w io.Writer, r report, asJSON bool) error {
	if asJSON {
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	lines := []string{fmt.Sprintf("outcome:  %s", r.Outcome)}
	if r.Failure != "" {
		lines = append(lines, fmt.Sprintf("failure:  %s", r.Failure))
	}
	if r.Score != nil {
		lines = append(lines, fmt.Sprintf("score:    %v", r.Score))
	}
	if r.Team != "" {
		teamScore := "absent"
		if r.TeamScore != nil {
			teamScore = fmt.Sprint(*r.TeamScore)
		}
		lines = append(lines,
			fmt.Sprintf("team:     %s (%s)", r.Team, teamScore),
			fmt.Sprintf("status:   %s", r.Status),
		)
	}
	lines = append(lines, fmt.Sprintf("latency:  %.1fms", r.LatencyMs))
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
