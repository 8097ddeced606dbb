package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/goalsensor/internal/adapters/scoreapi"
	"github.com/okian/goalsensor/internal/domain/match"
	"github.com/okian/goalsensor/internal/domain/source"
)

var kickoff = time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

// fakeClock reports kickoff plus a number of whole seconds.
type fakeClock struct{ seconds atomic.Int64 }

func (c *fakeClock) now() time.Time { return kickoff.Add(time.Duration(c.seconds.Load()) * time.Second) }

func testScript() []match.Outcome {
	return []match.Outcome{
		match.NoSignal(),
		match.Signal(match.Score{"home": 1, "away": 0}),
		match.Failed(match.FailureConnection),
		match.Failed(match.FailureMalformedResponse),
		match.Failed(match.FailureMissingField),
		match.Failed(match.FailureTimeout),
	}
}

func TestSimulatorFrames(t *testing.T) {
	Convey("Given a simulator on a fake clock", t, func() {
		clock := &fakeClock{}
		sim := newSimulator(testScript(), time.Second, withSimClock(clock.now))

		Convey("Then each outcome is shown for one interval and the script loops", func() {
			So(sim.current(kickoff).Kind, ShouldEqual, match.OutcomeNoSignal)
			So(sim.current(kickoff.Add(999*time.Millisecond)).Kind, ShouldEqual, match.OutcomeNoSignal)
			So(sim.current(kickoff.Add(time.Second)).Kind, ShouldEqual, match.OutcomeSignal)
			So(sim.current(kickoff.Add(6*time.Second)).Kind, ShouldEqual, match.OutcomeNoSignal)
			So(sim.current(kickoff.Add(-time.Second)).Kind, ShouldEqual, match.OutcomeNoSignal)
		})

		Convey("Then an empty script serves no signal", func() {
			empty := newSimulator(nil, 0)
			So(empty.current(time.Now()).Kind, ShouldEqual, match.OutcomeNoSignal)
			So(empty.interval, ShouldEqual, defaultFrameInterval)
		})
	})
}

func TestProbeAgainstSimulator(t *testing.T) {
	Convey("Given the score client polling a simulator", t, func() {
		clock := &fakeClock{}
		sim := newSimulator(testScript(), time.Second, withSimClock(clock.now), withStall(time.Second))
		srv := httptest.NewServer(sim)
		defer srv.Close()

		client, err := scoreapi.New(srv.URL)
		So(err, ShouldBeNil)
		ctx := context.Background()
		at := func(second int64) report {
			clock.seconds.Store(second)
			return probe(ctx, client, "Home", 200*time.Millisecond, time.Now)
		}

		Convey("Then every frame is classified as the script says", func() {
			r := at(0)
			So(r.Outcome, ShouldEqual, "no_signal")
			So(r.Status, ShouldEqual, "no_signal")
			So(r.TeamScore, ShouldBeNil)

			r = at(1)
			So(r.Outcome, ShouldEqual, "signal")
			So(r.Team, ShouldEqual, "home")
			So(*r.TeamScore, ShouldEqual, 1)
			So(r.Status, ShouldEqual, "active")

			r = at(2)
			So(r.Failure, ShouldEqual, "connection_error")
			So(r.Status, ShouldEqual, "back_off")

			So(at(3).Failure, ShouldEqual, "malformed_response")
			So(at(4).Failure, ShouldEqual, "missing_field")
			So(at(5).Failure, ShouldEqual, "timeout")
		})
	})
}

func TestWriteReport(t *testing.T) {
	Convey("Given a probe report", t, func() {
		goals := 2
		r := report{Outcome: "signal", Score: map[string]int{"home": 2}, Team: "home", TeamScore: &goals, Status: "active", LatencyMs: 12.5}
		var buf bytes.Buffer

		Convey("When printed as text", func() {
			So(writeReport(&buf, r, false), ShouldBeNil)

			Convey("Then the key lines are present", func() {
				So(buf.String(), ShouldContainSubstring, "outcome:  signal")
				So(buf.String(), ShouldContainSubstring, "team:     home (2)")
				So(buf.String(), ShouldContainSubstring, "status:   active")
				So(buf.String(), ShouldContainSubstring, "latency:  12.5ms")
			})
		})

		Convey("When printed as JSON", func() {
			So(writeReport(&buf, r, true), ShouldBeNil)

			Convey("Then it decodes back", func() {
				var decoded report
				So(jsoniter.Unmarshal(buf.Bytes(), &decoded), ShouldBeNil)
				So(decoded.Status, ShouldEqual, "active")
				So(*decoded.TeamScore, ShouldEqual, 2)
			})
		})
	})
}

func TestFetchCommand(t *testing.T) {
	Convey("Given the goalprobe app", t, func() {
		_ = os.Unsetenv("GOAL_SCORE_URL")
		sim := newSimulator([]match.Outcome{match.Signal(match.Score{"home": 3, "away": 1})}, time.Minute)
		srv := httptest.NewServer(sim)
		defer srv.Close()
		var out bytes.Buffer
		app := newApp(&out)

		Convey("When fetching with --json", func() {
			err := app.Run([]string{"goalprobe", "fetch", "--url", srv.URL, "--team", "away", "--json"})

			Convey("Then the JSON report describes the poll", func() {
				So(err, ShouldBeNil)
				var r report
				So(jsoniter.Unmarshal(out.Bytes(), &r), ShouldBeNil)
				So(r.URL, ShouldEqual, srv.URL)
				So(r.Outcome, ShouldEqual, "signal")
				So(*r.TeamScore, ShouldEqual, 1)
				So(r.Status, ShouldEqual, "active")
			})
		})

		Convey("When the url is missing", func() {
			err := app.Run([]string{"goalprobe", "fetch"})

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the url is not http", func() {
			err := app.Run([]string{"goalprobe", "fetch", "--url", "ftp://score.local"})

			Convey("Then the client rejects it", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestDemoScriptIsServable(t *testing.T) {
	Convey("Given the demo script", t, func() {
		script := source.DemoScript("home", "away")

		Convey("Then every outcome maps to a response", func() {
			clock := &fakeClock{}
			sim := newSimulator(script, time.Second, withSimClock(clock.now), withStall(10*time.Millisecond))
			for i := range script {
				clock.seconds.Store(int64(i))
				rec := httptest.NewRecorder()
				sim.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
				So(rec.Code, ShouldBeGreaterThanOrEqualTo, 200)
			}
		})
	})
}
