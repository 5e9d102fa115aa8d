package steptimer

import (
	"context"

	"github.com/pkg/errors"
)

// SetSpeed sets the signed speed in steps per minute.
//
// A zero speed stops the axis: continuous mode ends, any remaining steps are dropped and the
// indicator is lit steady. The direction line is left alone.
//
// A nonzero speed recomputes the pulse interval and selects the direction from its sign. Only
// pin write errors are returned.
func (st *StepTimer) SetSpeed(ctx context.Context, speed int64) error {
	if !st.setUp {
		return ErrNotSetUp
	}

	st.speed = speed
	if speed == 0 {
		st.mode = ModeIdle
		st.stepsRemaining = 0
		st.interval = 0
		st.logger.Debugw("axis stopped", "axis", st.name, "position", st.position)
		return st.setIndicator(ctx, true)
	}

	interval, err := PulseInterval(st.stepsPerRevolution, speed)
	if err != nil {
		return err
	}
	st.interval = interval
	if interval == 0 {
		st.logger.Warnw("speed too high, pulse interval truncates to zero and Tick will not step",
			"axis", st.name, "speed", speed)
	} else {
		st.logger.Debugw("speed set", "axis", st.name, "speed", speed, "interval_us", interval)
	}

	st.direction = Forward
	if speed < 0 {
		st.direction = Reverse
	}
	return st.setDirection(ctx, st.directionLevel(st.direction))
}

// directionLevel maps a direction to the electrical level of the direction line. Forward is low
// unless the axis is inverted.
func (st *StepTimer) directionLevel(d Direction) bool {
	if d == Forward {
		return st.directionInverted
	}
	return !st.directionInverted
}

// setDirection writes the direction line only if its level changes. It must never be called
// while a pulse is in flight.
func (st *StepTimer) setDirection(ctx context.Context, high bool) error {
	if st.dirHigh == high {
		return nil
	}
	if err := st.pins.Direction.Set(ctx, high, nil); err != nil {
		return errors.Wrapf(err, "failed to set direction of axis %q", st.name)
	}
	st.dirHigh = high
	st.stats.DirectionWrites++
	return nil
}

func (st *StepTimer) setIndicator(ctx context.Context, high bool) error {
	if st.pins.Indicator == nil || st.indicatorHigh == high {
		return nil
	}
	if err := st.pins.Indicator.Set(ctx, high, nil); err != nil {
		return errors.Wrapf(err, "failed to set indicator of axis %q", st.name)
	}
	st.indicatorHigh = high
	return nil
}
