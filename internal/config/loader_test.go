package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/goalsensor/internal/config"
	"github.com/okian/goalsensor/internal/domain/event"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then validation asks for teams", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading with environment variables", func() {
			_ = os.Setenv("GOAL_TEAMS", "Foo, bar,foo")
			_ = os.Setenv("GOAL_SCORE_URL", "http://score.local/score")
			_ = os.Setenv("GOAL_ADDR", ":8080")
			_ = os.Setenv("GOAL_REQUEST_TIMEOUT_SECONDS", "0.25")
			_ = os.Setenv("GOAL_MAX_BACKOFF_SECONDS", "64")
			_ = os.Setenv("GOAL_NOTIFY_ON", "goal,status_changed")
			_ = os.Setenv("GOAL_REQUIRE_SIGNAL_FIELD", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Teams, convey.ShouldResemble, []string{"foo", "bar"})
				convey.So(cfg.ScoreURL, convey.ShouldEqual, "http://score.local/score")
				convey.So(cfg.RequireSignalField, convey.ShouldBeTrue)
				convey.So(cfg.NotifyKinds(), convey.ShouldResemble, []event.Kind{event.KindGoal, event.KindStatusChanged})

				settings := cfg.Settings()
				convey.So(settings.RequestTimeout, convey.ShouldEqual, 250*time.Millisecond)
				convey.So(settings.MaxBackoffSeconds, convey.ShouldEqual, 64)
				convey.So(settings.IdleScanInterval, convey.ShouldEqual, 10*time.Second)
			})
		})

		convey.Convey("When loading with a YAML file and env overrides", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
teams: [foo]
score_url: "http://file.local/score"
time_until_idle_seconds: 20
notify_url: "http://hooks.local/goal"
`)
			_ = os.Setenv("GOAL_CONFIG", tmpFile)
			_ = os.Setenv("GOAL_ADDR", ":8081")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins over the file and the file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8081")
				convey.So(cfg.Teams, convey.ShouldResemble, []string{"foo"})
				convey.So(cfg.ScoreURL, convey.ShouldEqual, "http://file.local/score")
				convey.So(cfg.Settings().TimeUntilIdle, convey.ShouldEqual, 20*time.Second)
				convey.So(cfg.NotifyURL, convey.ShouldEqual, "http://hooks.local/goal")
				convey.So(cfg.TickInterval(), convey.ShouldEqual, time.Second)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			_ = os.Setenv("GOAL_CONFIG", createTempConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the YAML file does not exist", func() {
			_ = os.Setenv("GOAL_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a timer is invalid", func() {
			_ = os.Setenv("GOAL_TEAMS", "foo")
			_ = os.Setenv("GOAL_SCORE_URL", "http://score.local/score")
			_ = os.Setenv("GOAL_TIME_UNTIL_IDLE_SECONDS", "0")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When notify_on names an unknown kind", func() {
			_ = os.Setenv("GOAL_TEAMS", "foo")
			_ = os.Setenv("GOAL_SCORE_URL", "http://score.local/score")
			_ = os.Setenv("GOAL_NOTIFY_ON", "goal,halftime")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "halftime")
			})
		})
	})
}

func TestLoadDotEnv(t *testing.T) {
	convey.Convey("Given a .env file", t, func() {
		clearConfigEnvVars()
		defer clearConfigEnvVars()
		dir := t.TempDir()
		path := filepath.Join(dir, ".env")
		convey.So(os.WriteFile(path, []byte("GOAL_TEAMS=foo\nGOAL_SCORE_URL=http://dotenv.local/score\n"), 0o600), convey.ShouldBeNil)

		convey.Convey("When it is loaded before the config", func() {
			convey.So(config.LoadDotEnv(path, filepath.Join(dir, "absent.env")), convey.ShouldBeNil)
			cfg, err := config.Load(context.Background())

			convey.Convey("Then its variables feed the config", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ScoreURL, convey.ShouldEqual, "http://dotenv.local/score")
			})
		})

		convey.Convey("When a variable is already set", func() {
			_ = os.Setenv("GOAL_SCORE_URL", "http://env.local/score")
			convey.So(config.LoadDotEnv(path), convey.ShouldBeNil)

			convey.Convey("Then the environment wins", func() {
				convey.So(os.Getenv("GOAL_SCORE_URL"), convey.ShouldEqual, "http://env.local/score")
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, config.EnvPrefix) {
			_ = os.Unsetenv(name)
		}
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "goalsensor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
