package cli

import (
	"context"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/clayextruder/stepdriver/components/board"
	"github.com/clayextruder/stepdriver/components/motor/steptimer"
	"github.com/clayextruder/stepdriver/config"
	"github.com/clayextruder/stepdriver/control"
	"github.com/clayextruder/stepdriver/logging"
	"github.com/clayextruder/stepdriver/utils"
)

// machine is an opened board with a set-up step timer for every configured axis.
type machine struct {
	board  board.Board
	timers []*steptimer.StepTimer
	names  []string
	logger logging.Logger
}

func axisLoggerName(axis string) string {
	return "stepdriver.axis." + axis
}

func (sa *stepdriverApp) newMachine(c *cli.Context) (*machine, error) {
	ctx := c.Context
	b, err := sa.deps.openBoard(sa.cfg.Board, sa.logger)
	if err != nil {
		return nil, err
	}

	m := &machine{board: b, logger: sa.logger}
	for _, axisCfg := range sa.cfg.Axes {
		axisLogger := sa.logger.Sublogger(axisCfg.Name)
		logging.RegisterLogger(axisLoggerName(axisCfg.Name), axisLogger)

		st, err := steptimer.NewFromBoard(b, axisCfg, sa.deps.timebase, axisLogger)
		if err != nil {
			return nil, multierr.Combine(err, b.Close(ctx))
		}
		if err := st.Setup(ctx); err != nil {
			return nil, multierr.Combine(err, b.Close(ctx))
		}
		m.timers = append(m.timers, st)
		m.names = append(m.names, axisCfg.Name)
	}

	for _, name := range c.StringSlice(generalFlagDebugAxis) {
		if err := logging.UpdateLoggerLevel(axisLoggerName(name), logging.DEBUG); err != nil {
			return nil, multierr.Combine(utils.NewAxisNotFoundError(name, m.names), b.Close(ctx))
		}
	}
	return m, nil
}

// timer returns the named axis, or the first axis when name is empty.
func (m *machine) timer(name string) (*steptimer.StepTimer, error) {
	if name == "" {
		return m.timers[0], nil
	}
	st, ok := lo.Find(m.timers, func(st *steptimer.StepTimer) bool { return st.Name() == name })
	if !ok {
		return nil, utils.NewAxisNotFoundError(name, m.names)
	}
	return st, nil
}

func (m *machine) tickers() []control.Ticker {
	return lo.Map(m.timers, func(st *steptimer.StepTimer, _ int) control.Ticker { return st })
}

// applyMoves configures the move section of every axis in cfg. Axes that were not opened are
// skipped, since changing the set of axes needs a restart.
func (m *machine) applyMoves(ctx context.Context, cfg *config.Config) error {
	var errs error
	for _, axisCfg := range cfg.Axes {
		if axisCfg.Move == nil {
			continue
		}
		st, err := m.timer(axisCfg.Name)
		if err != nil {
			m.logger.Warnw("ignoring move for axis that is not running", "axis", axisCfg.Name)
			continue
		}
		req := steptimer.MoveRequest{Steps: axisCfg.Move.Steps, Speed: steptimer.Speed(axisCfg.Move.Speed)}
		m.logger.Infow("applying move", "axis", axisCfg.Name, "steps", req.Steps, "speed", axisCfg.Move.Speed,
			"mode", steptimer.ResolveMode(req.Steps, axisCfg.Move.Speed).String())
		errs = multierr.Combine(errs, st.Configure(ctx, req))
	}
	return errs
}

// stopAll brings every axis to a stop. It must not be called while a loop is ticking them.
func (m *machine) stopAll(ctx context.Context) error {
	var errs error
	for _, st := range m.timers {
		errs = multierr.Combine(errs, st.SetSpeed(ctx, 0))
	}
	return errs
}

func (m *machine) statuses() []steptimer.Status {
	return lo.Map(m.timers, func(st *steptimer.StepTimer, _ int) steptimer.Status { return st.Status() })
}

func (m *machine) Close(ctx context.Context) error {
	return m.board.Close(ctx)
}
