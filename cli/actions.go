package cli

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/clayextruder/stepdriver/components/motor/steptimer"
	"github.com/clayextruder/stepdriver/config"
	"github.com/clayextruder/stepdriver/control"
	"github.com/clayextruder/stepdriver/logging"
	"github.com/clayextruder/stepdriver/utils"
)

type stepdriverApp struct {
	deps   deps
	logger logging.Logger
	cfg    *config.Config
}

func (sa *stepdriverApp) before(c *cli.Context) error {
	logger := sa.deps.logger
	if logger == nil {
		logger = logging.NewBlankLogger("stepdriver")
		logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
		logger.SetLevel(logging.INFO)
	}

	cfg := config.Default()
	if path := c.String(generalFlagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path, logger); err != nil {
			return errors.Wrapf(err, "cannot load config %q", path)
		}
	} else if err := cfg.Ensure(); err != nil {
		return err
	}

	if c.Bool(generalFlagDebug) || cfg.Debug {
		logger.SetLevel(logging.DEBUG)
	}
	sa.logger = logger
	sa.cfg = cfg
	return nil
}

// InfoAction is the corresponding action for 'info'. It does not open the board.
func (sa *stepdriverApp) InfoAction(c *cli.Context) error {
	fmt.Fprintln(c.App.Writer, infoTable(sa.cfg))
	return nil
}

// MoveAction is the corresponding action for 'move'.
func (sa *stepdriverApp) MoveAction(c *cli.Context) (err error) {
	steps := c.Uint64(moveFlagSteps)
	if steps == 0 || steps > math.MaxUint32 {
		return errors.Errorf("--%s must be between 1 and %d, use spin for continuous motion", moveFlagSteps, uint32(math.MaxUint32))
	}
	speed := c.Int64(moveFlagSpeed)

	m, err := sa.newMachine(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, m.Close(context.Background()))
	}()

	st, err := m.timer(c.String(axisFlagName))
	if err != nil {
		return err
	}

	stopSlowLogging := utils.SlowLogger(c.Context, "waiting for move to finish", "axis", st.Name(), sa.logger)
	err = st.Move(c.Context, steptimer.MoveRequest{Steps: uint32(steps), Speed: steptimer.Speed(speed), Wait: true})
	stopSlowLogging()
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, statusTable(m.statuses()))
	return nil
}

// SpinAction is the corresponding action for 'spin'.
func (sa *stepdriverApp) SpinAction(c *cli.Context) (err error) {
	speed := c.Int64(moveFlagSpeed)
	if speed == 0 {
		return errors.Errorf("--%s must not be 0", moveFlagSpeed)
	}

	m, err := sa.newMachine(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, m.Close(context.Background()))
	}()

	st, err := m.timer(c.String(axisFlagName))
	if err != nil {
		return err
	}

	loop, err := control.NewLoop(sa.deps.clock, sa.cfg.LoopPeriod, sa.logger.Sublogger("loop"), st)
	if err != nil {
		return err
	}
	if err := loop.Start(c.Context); err != nil {
		return err
	}
	defer loop.Stop()

	if err := loop.Do(c.Context, func(ctx context.Context) error {
		return st.Configure(ctx, steptimer.MoveRequest{Speed: steptimer.Speed(speed)})
	}); err != nil {
		return err
	}
	sa.logger.Infow("spinning", "axis", st.Name(), "speed", speed, "duration", c.Duration(spinFlagDuration))

	select {
	case <-sa.deps.clock.After(c.Duration(spinFlagDuration)):
	case <-c.Context.Done():
	}
	loop.Stop()

	if err := st.SetSpeed(context.Background(), 0); err != nil {
		return err
	}
	stats := loop.Stats()
	sa.logger.Infow("spin finished", "axis", st.Name(), "cycles", stats.Cycles, "tick_errors", stats.TickErrors)
	fmt.Fprintln(c.App.Writer, statusTable(m.statuses()))
	return nil
}

// RunAction is the corresponding action for 'run'.
func (sa *stepdriverApp) RunAction(c *cli.Context) (err error) {
	m, err := sa.newMachine(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, m.Close(context.Background()))
	}()

	ctx := c.Context
	if d := c.Duration(runFlagDuration); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = sa.deps.clock.WithTimeout(ctx, d)
		defer cancel()
	}

	loop, err := control.NewLoop(sa.deps.clock, sa.cfg.LoopPeriod, sa.logger.Sublogger("loop"), m.tickers()...)
	if err != nil {
		return err
	}
	if err := loop.Start(ctx); err != nil {
		return err
	}
	defer loop.Stop()

	cfg := sa.cfg
	if err := loop.Do(ctx, func(ctx context.Context) error { return m.applyMoves(ctx, cfg) }); err != nil {
		return err
	}

	var updates <-chan *config.Config
	if cfg.ConfigFilePath != "" && !c.Bool(runFlagNoWatch) {
		watcher, watchErr := config.NewWatcher(cfg.ConfigFilePath, sa.logger.Sublogger("config"))
		if watchErr != nil {
			return watchErr
		}
		defer func() {
			err = multierr.Combine(err, watcher.Close())
		}()
		updates = watcher.Config()
	}
	sa.logger.Infow("running", "axes", m.names, "period", cfg.LoopPeriod)

	for {
		select {
		case <-ctx.Done():
			loop.Stop()
			stopErr := m.stopAll(context.Background())
			fmt.Fprintln(c.App.Writer, statusTable(m.statuses()))
			return stopErr
		case newCfg := <-updates:
			if err := loop.Do(ctx, func(ctx context.Context) error { return m.applyMoves(ctx, newCfg) }); err != nil {
				sa.logger.Errorw("failed to apply reloaded config", "error", err)
				continue
			}
			sa.logger.Infow("config reloaded", "path", newCfg.ConfigFilePath)
		}
	}
}
