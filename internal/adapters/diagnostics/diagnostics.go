// Package diagnostics turns scheduler events into log lines and Prometheus metrics.
package diagnostics

import (
	"context"

	"github.com/okian/goalsensor/internal/domain/event"
	"github.com/okian/goalsensor/internal/domain/match"
	"github.com/okian/goalsensor/pkg/logger"
	"github.com/okian/goalsensor/pkg/metrics"
)

// LogSink logs events. Polls and skipped ticks are debug level; goals and
// control commands are info; back-offs are warnings.
type LogSink struct {
	logger logger.Logger
}

// NewLogSink creates a LogSink writing to l.
func NewLogSink(l logger.Logger) *LogSink {
	return &LogSink{logger: l}
}

// Record implements event.Sink.
func (s *LogSink) Record(ctx context.Context, e event.Event) { //nolint:gocritic // hugeParam: event.Sink signature
	fields := []logger.Field{
		logger.String("team", e.Team),
		logger.String("from", e.From.String()),
		logger.String("to", e.To.String()),
		logger.Uint64("requests", e.RequestCount),
	}
	if e.HasScore {
		fields = append(fields, logger.Int("score", e.Score))
	}

	switch e.Kind {
	case event.KindPoll:
		fields = append(fields,
			logger.String("outcome", e.Outcome.String()),
			logger.Duration("latency", e.Latency),
		)
		if e.Failure != nil {
			fields = append(fields, logger.String("failure", e.Failure.String()))
		}
		s.logger.Debug(ctx, "poll", fields...)
	case event.KindGoal:
		s.logger.Info(ctx, "goal", fields...)
	case event.KindBackoff:
		fields = append(fields,
			logger.Int("backoff_seconds", e.BackoffSeconds),
			logger.Time("resume_at", e.ResumeAt),
		)
		s.logger.Warn(ctx, "backing off", fields...)
	case event.KindStatusChanged:
		s.logger.Info(ctx, "status changed", fields...)
	case event.KindScoreCleared:
		s.logger.Info(ctx, "stale score cleared", fields...)
	case event.KindEnabled, event.KindDisabled:
		s.logger.Info(ctx, "monitor "+string(e.Kind), fields...)
	case event.KindTickSkipped:
		s.logger.Debug(ctx, "tick skipped, fetch still in flight", fields...)
	default:
		s.logger.Debug(ctx, string(e.Kind), fields...)
	}
}

// MetricsSink mirrors events into Prometheus metrics.
type MetricsSink struct {
	statuses []string
}

// NewMetricsSink creates a MetricsSink.
func NewMetricsSink() *MetricsSink {
	all := match.AllStatuses()
	names := make([]string, len(all))
	for i, status := range all {
		names[i] = status.String()
	}
	return &MetricsSink{statuses: names}
}

// Observe publishes the gauges for a state without an event, for example at startup.
func (s *MetricsSink) Observe(st match.State) {
	metrics.UpdateStatus(st.Team, st.Status.String(), s.statuses)
	metrics.UpdateBackoffSeconds(st.Team, st.Backoff.Seconds)
	metrics.UpdateScore(st.Team, st.Score, st.HasScore)
}

// Record implements event.Sink.
func (s *MetricsSink) Record(_ context.Context, e event.Event) { //nolint:gocritic // hugeParam: event.Sink signature
	switch e.Kind {
	case event.KindPoll:
		metrics.RecordPoll(e.Team, e.Outcome.String(), float64(e.Latency.Milliseconds()))
		if e.Failure != nil {
			metrics.RecordPollFailure(e.Team, e.Failure.String())
		}
	case event.KindGoal:
		metrics.RecordGoal(e.Team)
	case event.KindScoreCleared:
		metrics.RecordScoreCleared(e.Team)
	case event.KindTickSkipped:
		metrics.RecordSkippedTick(e.Team)
	case event.KindEnabled:
		metrics.RecordControlCommand(e.Team, "enable")
	case event.KindDisabled:
		metrics.RecordControlCommand(e.Team, "disable")
	}

	metrics.UpdateStatus(e.Team, e.To.String(), s.statuses)
	metrics.UpdateBackoffSeconds(e.Team, e.BackoffSeconds)
	metrics.UpdateScore(e.Team, e.Score, e.HasScore)
}
