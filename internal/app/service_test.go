package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/goalsensor/internal/app"
	"github.com/okian/goalsensor/internal/config"
	"github.com/okian/goalsensor/internal/domain/match"
	"github.com/okian/goalsensor/internal/domain/source"
	"github.com/okian/goalsensor/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func demoConfig(teams ...string) *config.Config {
	cfg := config.New()
	cfg.Teams = teams
	cfg.ScoreURL = service.DemoScoreURL
	return cfg
}

func TestService_New(t *testing.T) {
	Convey("Given service construction", t, func() {
		Convey("When the config has no teams", func() {
			_, err := service.New(config.New())

			Convey("Then it is rejected", func() {
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})

		Convey("When the score url is not http", func() {
			cfg := demoConfig("foo")
			cfg.ScoreURL = "ftp://score.local"
			_, err := service.New(cfg)

			Convey("Then the source cannot be built", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the config is valid", func() {
			svc, err := service.New(demoConfig("foo", "bar"))

			Convey("Then one idle monitor exists per team", func() {
				So(err, ShouldBeNil)
				So(svc.Teams(), ShouldResemble, []string{"bar", "foo"})
				for _, d := range svc.Snapshot() {
					So(d.Status, ShouldEqual, match.StatusIdle)
					So(d.RequestCount, ShouldEqual, uint64(0))
				}
			})
		})

		Convey("When the same team is listed in different cases", func() {
			built := 0
			svc, err := service.New(demoConfig("foo", "FOO", " bar "),
				service.WithSourceFactory(func(string) (source.Source, error) {
					built++
					return source.NewScripted([]match.Outcome{match.NoSignal()}), nil
				}))

			Convey("Then one monitor is built per distinct team", func() {
				So(err, ShouldBeNil)
				So(built, ShouldEqual, 2)
				So(svc.Teams(), ShouldResemble, []string{"bar", "foo"})
				So(len(svc.Snapshot()), ShouldEqual, 2)
			})
		})

		Convey("When a team name is blank", func() {
			_, err := service.New(demoConfig("foo", "  "))

			Convey("Then it is rejected", func() {
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})

		Convey("When monitors start disabled", func() {
			cfg := demoConfig("foo")
			cfg.StartDisabled = true
			svc, err := service.New(cfg)
			So(err, ShouldBeNil)

			Convey("Then the status is disabled", func() {
				d, err := svc.Status("foo")
				So(err, ShouldBeNil)
				So(d.Status, ShouldEqual, match.StatusDisabled)
			})
		})
	})
}

func TestService_Control(t *testing.T) {
	Convey("Given a service that is not started", t, func() {
		svc, err := service.New(demoConfig("foo"))
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("When disabling a tracked team", func() {
			d, err := svc.Disable(ctx, " FOO ")

			Convey("Then the monitor is disabled", func() {
				So(err, ShouldBeNil)
				So(d.Status, ShouldEqual, match.StatusDisabled)
			})

			Convey("And enabling it returns it to idle", func() {
				d, err := svc.Enable(ctx, "foo")
				So(err, ShouldBeNil)
				So(d.Status, ShouldEqual, match.StatusIdle)
			})
		})

		Convey("When addressing an unknown team", func() {
			_, statusErr := svc.Status("baz")
			_, enableErr := svc.Enable(ctx, "baz")
			_, disableErr := svc.Disable(ctx, "baz")

			Convey("Then every operation reports ErrUnknownTeam", func() {
				So(errors.Is(statusErr, service.ErrUnknownTeam), ShouldBeTrue)
				So(errors.Is(enableErr, service.ErrUnknownTeam), ShouldBeTrue)
				So(errors.Is(disableErr, service.ErrUnknownTeam), ShouldBeTrue)
			})
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service with a scripted source", t, func() {
		src := source.NewScripted([]match.Outcome{match.NoSignal()})
		cfg := demoConfig("foo")
		cfg.TickIntervalMS = 10
		svc, err := service.New(cfg, service.WithSourceFactory(func(string) (source.Source, error) {
			return src, nil
		}))
		So(err, ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			time.Sleep(50 * time.Millisecond)

			Convey("Then it is marked as started and polls once on entry", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["teams"], ShouldEqual, 1)
				So(src.Calls(), ShouldEqual, 1)

				d, err := svc.Status("foo")
				So(err, ShouldBeNil)
				So(d.Status, ShouldEqual, match.StatusNoSignal)
			})

			Convey("And stopping it marks it as stopped", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})

			Convey("And a stopped service refuses to start again", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(errors.Is(svc.Start(ctx), service.ErrStopped), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}
