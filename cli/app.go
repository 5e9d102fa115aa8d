// Package cli contains the stepdriver command line app.
package cli

import (
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"

	"github.com/clayextruder/stepdriver/components/board"
	"github.com/clayextruder/stepdriver/components/board/register"
	"github.com/clayextruder/stepdriver/logging"
	"github.com/clayextruder/stepdriver/utils/timebase"
)

// Flags.
const (
	generalFlagConfig    = "config"
	generalFlagDebug     = "debug"
	generalFlagDebugAxis = "debug-axis"

	axisFlagName     = "axis"
	moveFlagSteps    = "steps"
	moveFlagSpeed    = "speed"
	spinFlagDuration = "duration"
	runFlagDuration  = "duration"
	runFlagNoWatch   = "no-watch"
)

// deps are the parts of the app that touch hardware or time.
type deps struct {
	openBoard func(board.Config, logging.Logger) (board.Board, error)
	timebase  timebase.Timebase
	clock     clock.Clock
	// logger replaces the logger normally built from the app's error writer.
	logger logging.Logger
}

func defaultDeps() deps {
	return deps{
		openBoard: register.NewBoard,
		timebase:  timebase.New(nil),
		clock:     clock.New(),
	}
}

// NewApp returns the stepdriver app. Tables go to out and logs to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return newApp(out, errOut, defaultDeps())
}

func newApp(out, errOut io.Writer, d deps) *cli.App {
	sa := &stepdriverApp{deps: d}
	return &cli.App{
		Name:            "stepdriver",
		Usage:           "drive stepper motors through step/direction driver chips",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    generalFlagConfig,
				Aliases: []string{"c"},
				Usage:   "load machine configuration from `FILE`; a fake board with one axis is used otherwise",
			},
			&cli.BoolFlag{
				Name:    generalFlagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringSliceFlag{
				Name:  generalFlagDebugAxis,
				Usage: "enable debug logging for the named axes only",
			},
		},
		Before: sa.before,
		Commands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "print the configured axes",
				Action: sa.InfoAction,
			},
			{
				Name:      "move",
				Usage:     "move an axis by a number of steps and wait for it to finish",
				UsageText: "stepdriver move --axis x --steps 400 --speed -120",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  axisFlagName,
						Usage: "axis to move; defaults to the first configured axis",
					},
					&cli.Uint64Flag{
						Name:     moveFlagSteps,
						Required: true,
						Usage:    "number of steps",
					},
					&cli.Int64Flag{
						Name:     moveFlagSpeed,
						Required: true,
						Usage:    "speed in steps per minute; the sign picks the direction",
					},
				},
				Action: sa.MoveAction,
			},
			{
				Name:  "spin",
				Usage: "run an axis continuously for a while, then stop it",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  axisFlagName,
						Usage: "axis to spin; defaults to the first configured axis",
					},
					&cli.Int64Flag{
						Name:     moveFlagSpeed,
						Required: true,
						Usage:    "speed in steps per minute; the sign picks the direction",
					},
					&cli.DurationFlag{
						Name:  spinFlagDuration,
						Value: time.Second,
						Usage: "how long to spin",
					},
				},
				Action: sa.SpinAction,
			},
			{
				Name:  "run",
				Usage: "run the control loop for every axis, applying the configured moves",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  runFlagDuration,
						Usage: "stop after this long; runs until interrupted if unset",
					},
					&cli.BoolFlag{
						Name:  runFlagNoWatch,
						Usage: "do not re-apply moves when the config file changes",
					},
				},
				Action: sa.RunAction,
			},
		},
	}
}
