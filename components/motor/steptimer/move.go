package steptimer

import (
	"context"
)

// MoveRequest configures a move. Distance and direction are separate fields: Steps is always a
// count, and the sign of Speed alone picks the direction.
type MoveRequest struct {
	// Steps is how many pulses to emit. Zero together with a nonzero Speed requests a
	// continuous move.
	Steps uint32
	// Speed in steps per minute. Nil keeps the current speed and mode and only replaces the
	// remaining step count.
	Speed *int64
	// Wait makes Move block until the move completes.
	Wait bool
}

// Speed returns a pointer to s, for filling MoveRequest.Speed.
func Speed(s int64) *int64 {
	return &s
}

// ResolveMode returns the mode a move with the given step count and speed runs in.
func ResolveMode(steps uint32, speed int64) Mode {
	switch {
	case speed == 0:
		return ModeIdle
	case steps == 0:
		return ModeContinuous
	default:
		return ModeFinite
	}
}

// Configure applies req without blocking.
//
// With a nonzero speed the speed is set, the step count replaced, and the pulse reference time
// reset to now so the first pulse comes one full interval later. With a zero speed nothing is
// scheduled: the remaining steps are dropped and continuous mode ends, but the speed is kept.
func (st *StepTimer) Configure(ctx context.Context, req MoveRequest) error {
	if !st.setUp {
		return ErrNotSetUp
	}

	if req.Speed == nil {
		st.stepsRemaining = req.Steps
		st.lastPulse = st.tb.NowMicros()
		switch {
		case st.mode == ModeIdle && req.Steps > 0:
			st.mode = ModeFinite
		case st.mode == ModeFinite && req.Steps == 0:
			st.mode = ModeIdle
		}
		st.logger.Debugw("move steps replaced", "axis", st.name, "steps", req.Steps, "mode", st.mode.String())
		return nil
	}

	speed := *req.Speed
	if speed == 0 {
		st.stepsRemaining = 0
		st.mode = ModeIdle
		st.logger.Debugw("zero speed move ignored", "axis", st.name)
		return nil
	}

	if err := st.SetSpeed(ctx, speed); err != nil {
		return err
	}
	st.stepsRemaining = req.Steps
	st.lastPulse = st.tb.NowMicros()
	st.mode = ResolveMode(req.Steps, speed)
	st.logger.Debugw("move configured", "axis", st.name, "steps", req.Steps, "speed", speed, "mode", st.mode.String())
	return nil
}

// Move configures req and, if req.Wait is set, runs it to completion.
func (st *StepTimer) Move(ctx context.Context, req MoveRequest) error {
	if err := st.Configure(ctx, req); err != nil {
		return err
	}
	if !req.Wait {
		return nil
	}
	return st.RunToCompletion(ctx)
}

// RunToCompletion calls Step until no steps remain, sleeping BlockingPollDelayMillis between
// steps. It monopolizes the caller for the whole move and cannot be cancelled once entered; ctx
// is only handed to the pin writes. A continuous move never completes, so it returns
// ErrContinuousMove instead of starting.
func (st *StepTimer) RunToCompletion(ctx context.Context) error {
	if st.mode == ModeContinuous {
		return ErrContinuousMove
	}
	for {
		remaining, err := st.Step(ctx)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return nil
		}
		st.tb.SleepMillis(BlockingPollDelayMillis)
	}
}
