// Command goalprobe talks to score servers from the terminal. "fetch" performs
// a single poll and shows how a monitor would classify it; "serve" plays the
// demo match as a score server for trying the sensor end to end.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/goalsensor/internal/adapters/scoreapi"
	"github.com/okian/goalsensor/internal/domain/match"
	"github.com/okian/goalsensor/internal/domain/source"
)

// Default flag values.
const (
	defaultServeAddr     = ":9090"
	defaultFrameInterval = 2 * time.Second
	defaultStallDelay    = 2 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString("goalprobe: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "goalprobe",
		Usage:  "poll a score server once, or simulate one",
		Writer: out,
		Commands: []*cli.Command{
			fetchCommand(),
			serveCommand(),
		},
	}
}

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "perform one poll and print the classified outcome",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "score server URL", Required: true, EnvVars: []string{"GOAL_SCORE_URL"}},
			&cli.StringFlag{Name: "team", Usage: "tracked team; also prints the status a fresh monitor would reach"},
			&cli.StringFlag{Name: "method", Value: "GET", Usage: "HTTP method"},
			&cli.StringFlag{Name: "body", Usage: "request body"},
			&cli.DurationFlag{Name: "timeout", Value: match.DefaultRequestTimeout, Usage: "request timeout"},
			&cli.DurationFlag{Name: "max-frame-age", Usage: "treat older frames as no signal (0 disables)"},
			&cli.BoolFlag{Name: "require-signal", Usage: "treat a missing hasSignal field as a failure"},
			&cli.BoolFlag{Name: "json", Usage: "print the report as JSON"},
		},
		Action: func(c *cli.Context) error {
			client, err := scoreapi.New(c.String("url"),
				scoreapi.WithMethod(c.String("method")),
				scoreapi.WithBody(c.String("body")),
				scoreapi.WithRequireSignalField(c.Bool("require-signal")),
				scoreapi.WithMaxFrameAge(c.Duration("max-frame-age")),
			)
			if err != nil {
				return err
			}
			r := probe(c.Context, client, c.String("team"), c.Duration("timeout"), time.Now)
			r.URL = c.String("url")
			return writeReport(c.App.Writer, r, c.Bool("json"))
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the demo match as a score server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: defaultServeAddr, Usage: "listen address"},
			&cli.StringSliceFlag{Name: "teams", Value: cli.NewStringSlice("home", "away"), Usage: "the two teams playing"},
			&cli.DurationFlag{Name: "interval", Value: defaultFrameInterval, Usage: "how long each frame of the script is shown"},
			&cli.DurationFlag{Name: "stall", Value: defaultStallDelay, Usage: "how long a simulated timeout holds the request"},
		},
		Action: func(c *cli.Context) error {
			sim := newSimulator(source.DemoScript(c.StringSlice("teams")...), c.Duration("interval"),
				withStall(c.Duration("stall")))
			return sim.ListenAndServe(c.Context, c.String("addr"), c.App.Writer)
		},
	}
}
