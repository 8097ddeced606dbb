package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/okian/goalsensor/internal/domain/match"
)

const shutdownTimeout = 5 * time.Second

// frame is the wire shape the score client decodes.
type frame struct {
	HasSignal bool           `json:"hasSignal"`
	Score     map[string]int `json:"score,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// simulator serves a scripted match. Each outcome of the script is shown for
// one interval, and the script loops.
type simulator struct {
	script   []match.Outcome
	interval time.Duration
	stall    time.Duration
	now      func() time.Time
	start    time.Time
}

type simOption func(*simulator)

func withStall(d time.Duration) simOption {
	return func(s *simulator) {
		if d > 0 {
			s.stall = d
		}
	}
}

func withSimClock(now func() time.Time) simOption {
	return func(s *simulator) {
		if now != nil {
			s.now = now
		}
	}
}

func newSimulator(script []match.Outcome, interval time.Duration, opts ...simOption) *simulator {
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	if len(script) == 0 {
		script = []match.Outcome{match.NoSignal()}
	}
	s := &simulator{
		script:   script,
		interval: interval,
		stall:    defaultStallDelay,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.start = s.now()
	return s
}

// current returns the outcome on show at now.
func (s *simulator) current(now time.Time) match.Outcome {
	elapsed := now.Sub(s.start)
	if elapsed < 0 {
		elapsed = 0
	}
	return s.script[int(elapsed/s.interval)%len(s.script)]
}

func (s *simulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	o := s.current(now)

	switch o.Kind {
	case match.OutcomeSignal:
		writeFrame(w, frame{HasSignal: true, Score: o.Score, Timestamp: now.UnixMilli()})
	case match.OutcomeNoSignal:
		writeFrame(w, frame{HasSignal: false, Timestamp: now.UnixMilli()})
	case match.OutcomeFailure:
		switch o.Failure {
		case match.FailureTimeout:
			select {
			case <-r.Context().Done():
			case <-time.After(s.stall):
			}
			w.WriteHeader(http.StatusGatewayTimeout)
		case match.FailureMalformedResponse:
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"hasSignal": tru`)
		case match.FailureMissingField:
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"hasSignal": true}`)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}
}

func writeFrame(w http.ResponseWriter, f frame) {
	w.Header().Set("Content-Type", "application/json")
	_ = jsoniter.NewEncoder(w).Encode(f)
}

// ListenAndServe serves the simulator on addr until ctx ends.
func (s *simulator) ListenAndServe(ctx context.Context, addr string, out io.Writer) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: shutdownTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	_, _ = fmt.Fprintf(out, "serving %d frames every %s on %s\n", len(s.script), s.interval, addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
