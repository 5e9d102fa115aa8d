package steptimer

import (
	"context"

	"github.com/pkg/errors"

	"github.com/clayextruder/stepdriver/utils/timebase"
)

// Tick is the non-blocking poll. It emits at most one pulse, and only when a move is pending,
// the interval is nonzero and at least one interval has passed since the last scheduled pulse.
//
// The reference time advances by exactly one interval per pulse rather than to now. That keeps
// the long-run rate exact when the caller polls late. It also means a Tick that finds several
// intervals overdue still emits a single pulse; the rest are dropped, not caught up.
//
// Tick returns the reference time of the last pulse.
func (st *StepTimer) Tick(ctx context.Context) (uint32, error) {
	if !st.setUp {
		return st.lastPulse, ErrNotSetUp
	}
	if !st.pending() || st.interval == 0 {
		return st.lastPulse, nil
	}

	elapsed := timebase.Elapsed(st.tb.NowMicros(), st.lastPulse)
	if elapsed < st.interval {
		return st.lastPulse, nil
	}
	if elapsed-st.interval >= st.interval {
		st.stats.Overdue++
	}

	err := st.advance(ctx)
	return st.lastPulse, err
}

// Step is the blocking single step. If nothing is pending it returns 0 at once. Otherwise it
// spins until the next pulse is due, emits it and returns the steps still remaining, so 0
// means the move is complete. In continuous mode the returned count stays 0 while pulses go on.
func (st *StepTimer) Step(ctx context.Context) (uint32, error) {
	if !st.setUp {
		return 0, ErrNotSetUp
	}
	if !st.pending() {
		return 0, nil
	}
	if st.speed == 0 {
		return st.stepsRemaining, ErrZeroSpeed
	}

	for {
		elapsed := timebase.Elapsed(st.tb.NowMicros(), st.lastPulse)
		if elapsed >= st.interval {
			break
		}
		st.tb.SpinMicros(st.interval - elapsed)
	}

	if err := st.advance(ctx); err != nil {
		return st.stepsRemaining, err
	}
	return st.stepsRemaining, nil
}

// advance emits one pulse and does the bookkeeping that goes with it.
func (st *StepTimer) advance(ctx context.Context) error {
	if err := st.emitPulse(ctx); err != nil {
		return err
	}

	if st.direction == Forward {
		st.position++
		if st.position == st.stepsPerRevolution {
			st.position = 0
		}
	} else {
		if st.position == 0 {
			st.position = st.stepsPerRevolution
		}
		st.position--
	}

	if st.stepsRemaining > 0 {
		st.stepsRemaining--
	}
	if st.mode == ModeFinite && st.stepsRemaining == 0 {
		st.mode = ModeIdle
	}

	st.lastPulse += st.interval
	st.stats.Pulses++
	return nil
}

// emitPulse drives the step line high then low, holding each level for PulseHoldMicros.
func (st *StepTimer) emitPulse(ctx context.Context) error {
	if err := st.pins.Step.Set(ctx, true, nil); err != nil {
		return errors.Wrapf(err, "failed to raise step line of axis %q", st.name)
	}
	st.tb.SpinMicros(PulseHoldMicros)
	if err := st.pins.Step.Set(ctx, false, nil); err != nil {
		return errors.Wrapf(err, "failed to lower step line of axis %q", st.name)
	}
	st.tb.SpinMicros(PulseHoldMicros)

	return st.blink(ctx)
}

// blink drives the activity indicator so it flashes at a rate proportional to the step rate.
// It has no effect on motion.
func (st *StepTimer) blink(ctx context.Context) error {
	if st.pins.Indicator == nil {
		return nil
	}

	now := st.tb.NowMicros()
	elapsed := uint64(timebase.Elapsed(now, st.heartbeat))
	interval := uint64(st.interval)
	if elapsed <= interval*IndicatorOffIntervals {
		return nil
	}
	if err := st.setIndicator(ctx, false); err != nil {
		return err
	}
	if elapsed > interval*IndicatorOnIntervals {
		st.heartbeat = now
		return st.setIndicator(ctx, true)
	}
	return nil
}
