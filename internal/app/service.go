// Package service assembles the per-team schedulers, their event sinks and
// the webhook notifier, and exposes the operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/goalsensor/internal/adapters/diagnostics"
	"github.com/okian/goalsensor/internal/adapters/notify"
	"github.com/okian/goalsensor/internal/adapters/scoreapi"
	"github.com/okian/goalsensor/internal/config"
	"github.com/okian/goalsensor/internal/domain/event"
	"github.com/okian/goalsensor/internal/domain/match"
	"github.com/okian/goalsensor/internal/domain/poller"
	"github.com/okian/goalsensor/internal/domain/source"
	"github.com/okian/goalsensor/pkg/logger"
	"github.com/okian/goalsensor/pkg/metrics"
)

// DemoScoreURL selects the built-in scripted match instead of a score server.
const DemoScoreURL = "demo://"

var (
	// ErrUnknownTeam is returned for operations on a team that is not tracked.
	ErrUnknownTeam = errors.New("unknown team")
	// ErrStopped is returned by Start once the service has been stopped.
	ErrStopped = errors.New("service stopped")
)

// SourceFactory builds the score source for one team.
type SourceFactory func(team string) (source.Source, error)

// Service runs one scheduler per tracked team.
type Service struct {
	mu sync.RWMutex

	cfg        *config.Config
	schedulers map[string]*poller.Scheduler
	teams      []string
	notifier   *notify.Notifier
	metrics    *diagnostics.MetricsSink

	newSource SourceFactory
	clock     func() time.Time
	extra     []event.Sink

	started   bool
	stopped   bool
	startedAt time.Time
	cancel    context.CancelFunc
	group     *errgroup.Group

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSourceFactory replaces the config-driven score source.
func WithSourceFactory(f SourceFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.newSource = f
		}
	}
}

// WithClock sets the time source handed to every scheduler.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithSink adds a sink that receives every scheduler event.
func WithSink(sink event.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.extra = append(s.extra, sink)
		}
	}
}

// New builds the service from cfg. Schedulers are created but not started.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:        cfg,
		schedulers: make(map[string]*poller.Scheduler, len(cfg.Teams)),
		metrics:    diagnostics.NewMetricsSink(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.newSource == nil {
		s.newSource = s.configuredSource
	}

	sinks := event.Multi{diagnostics.NewLogSink(s.logger.Named("poller")), s.metrics}
	if cfg.NotifyURL != "" {
		hook, err := notify.NewWebhook(cfg.NotifyURL)
		if err != nil {
			return nil, err
		}
		s.notifier = notify.New(hook,
			notify.WithKinds(cfg.NotifyKinds()...),
			notify.WithQueueSize(cfg.NotifyQueueSize),
			notify.WithWorkers(cfg.NotifyWorkers),
			notify.WithDeliveryTimeout(cfg.NotifyTimeout()),
			notify.WithLogger(s.logger.Named("notify")),
		)
		sinks = append(sinks, s.notifier)
	}
	sinks = append(sinks, s.extra...)

	for _, team := range cfg.Teams {
		if _, dup := s.schedulers[match.NormalizeTeam(team)]; dup {
			continue
		}
		src, err := s.newSource(team)
		if err != nil {
			return nil, fmt.Errorf("source for %q: %w", team, err)
		}
		popts := []poller.Option{
			poller.WithSettings(cfg.Settings()),
			poller.WithSink(sinks),
			poller.WithClock(s.clock),
		}
		if cfg.StartDisabled {
			popts = append(popts, poller.WithDisabled())
		}
		sched, err := poller.New(team, src, popts...)
		if err != nil {
			return nil, err
		}
		s.schedulers[sched.Team()] = sched
		s.teams = append(s.teams, sched.Team())
	}
	sort.Strings(s.teams)
	return s, nil
}

func (s *Service) configuredSource(string) (source.Source, error) {
	if s.cfg.ScoreURL == DemoScoreURL {
		return source.NewDemo(s.cfg.Teams...), nil
	}
	return scoreapi.New(s.cfg.ScoreURL,
		scoreapi.WithMethod(s.cfg.RequestMethod),
		scoreapi.WithBody(s.cfg.RequestBody),
		scoreapi.WithRequireSignalField(s.cfg.RequireSignalField),
		scoreapi.WithMaxFrameAge(s.cfg.MaxFrameAge()),
		scoreapi.WithClock(s.clock),
	)
}

// Start launches the notifier and one ticking goroutine per scheduler.
// A stopped service has drained its notifier and cannot be started again.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}

	s.logger.Info(ctx, "starting goal sensor...")

	detached := context.WithoutCancel(ctx)
	if s.notifier != nil {
		s.notifier.Start(detached)
	}

	runCtx, cancel := context.WithCancel(detached)
	group, runCtx := errgroup.WithContext(runCtx)
	interval := s.cfg.TickInterval()
	for _, team := range s.teams {
		sched := s.schedulers[team]
		s.metrics.Observe(sched.State())
		group.Go(func() error {
			return sched.Run(runCtx, interval)
		})
	}
	metrics.UpdateMonitorCount(len(s.teams))

	s.cancel = cancel
	s.group = group
	s.started = true
	s.startedAt = s.clock()
	s.logger.Info(ctx, "goal sensor started",
		logger.Int("teams", len(s.teams)),
		logger.Duration("tick", interval),
		logger.Bool("notify", s.notifier != nil),
	)
	return nil
}

// Stop halts the schedulers and drains pending notifications.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping goal sensor...")

	s.cancel()
	err := s.group.Wait()
	if s.notifier != nil {
		if nerr := s.notifier.Shutdown(ctx); nerr != nil {
			err = errors.Join(err, nerr)
		}
	}

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "goal sensor stopped")
	return err
}

func (s *Service) scheduler(team string) (*poller.Scheduler, error) {
	sched, ok := s.schedulers[match.NormalizeTeam(team)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTeam, team)
	}
	return sched, nil
}

// Enable resumes monitoring for team.
func (s *Service) Enable(ctx context.Context, team string) (poller.Diagnostics, error) {
	sched, err := s.scheduler(team)
	if err != nil {
		return poller.Diagnostics{}, err
	}
	return sched.Enable(ctx), nil
}

// Disable stops monitoring for team.
func (s *Service) Disable(ctx context.Context, team string) (poller.Diagnostics, error) {
	sched, err := s.scheduler(team)
	if err != nil {
		return poller.Diagnostics{}, err
	}
	return sched.Disable(ctx), nil
}

// Status returns the diagnostics for team.
func (s *Service) Status(team string) (poller.Diagnostics, error) {
	sched, err := s.scheduler(team)
	if err != nil {
		return poller.Diagnostics{}, err
	}
	return sched.Diagnostics(), nil
}

// Snapshot returns diagnostics for every team, ordered by team name.
func (s *Service) Snapshot() []poller.Diagnostics {
	out := make([]poller.Diagnostics, 0, len(s.teams))
	for _, team := range s.teams {
		out = append(out, s.schedulers[team].Diagnostics())
	}
	return out
}

// Teams returns the tracked teams in sorted order.
func (s *Service) Teams() []string {
	return append([]string(nil), s.teams...)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(match.AllStatuses()))
	for _, status := range match.AllStatuses() {
		counts[status.String()] = 0
	}
	var requests, skipped uint64
	for _, d := range s.Snapshot() {
		counts[d.Status.String()]++
		requests += d.RequestCount
		skipped += d.SkippedTicks
	}

	stats := map[string]interface{}{
		"started":      s.started,
		"teams":        len(s.teams),
		"statuses":     counts,
		"requests":     requests,
		"skippedTicks": skipped,
		"tickMs":       s.cfg.TickInterval().Milliseconds(),
		"demo":         s.cfg.ScoreURL == DemoScoreURL,
	}
	if s.started {
		stats["uptimeSeconds"] = s.clock().Sub(s.startedAt).Seconds()
	}
	if s.notifier != nil {
		stats["notifier"] = s.notifier.Stats()
	}

	metrics.UpdateMonitorCount(len(s.teams))
	return stats
}
