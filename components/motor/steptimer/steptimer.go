// Package steptimer implements the timing controller for one stepper axis driven through a
// step/direction driver chip.
//
// A StepTimer turns a signed speed in steps per minute and a step count into pulses on the step
// line. Tick is the non-blocking poll meant to be called from a shared control loop. Step and
// RunToCompletion are blocking variants that spin until the next pulse is due.
//
// A StepTimer is not safe for concurrent use. Use control.Loop to share one between goroutines.
package steptimer

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/clayextruder/stepdriver/components/board"
	"github.com/clayextruder/stepdriver/logging"
	"github.com/clayextruder/stepdriver/utils/timebase"
)

const (
	microsPerMinute = 60_000_000

	// PulseHoldMicros is how long the step line is held high, and then low, for every pulse. It
	// is a lower bound taken from the minimum step pulse width of A4988 and DRV8825 class drivers
	// (1.9us) with a wide margin for slow GPIO paths.
	PulseHoldMicros = 50

	// IndicatorOffIntervals is how many pulse intervals after the last blink the activity
	// indicator goes dark.
	IndicatorOffIntervals = 800
	// IndicatorOnIntervals is how many pulse intervals after the last blink the activity
	// indicator lights again and the blink period restarts.
	IndicatorOnIntervals = 1000

	// BlockingPollDelayMillis is the cooperative sleep RunToCompletion takes between steps.
	BlockingPollDelayMillis = 1
)

var (
	// ErrZeroSpeed is returned when a pulse interval is requested for a stopped axis.
	ErrZeroSpeed = errors.New("pulse interval is undefined at zero speed")
	// ErrInvalidGeometry is returned when steps per revolution is not positive.
	ErrInvalidGeometry = errors.New("steps per revolution must be positive")
	// ErrNotSetUp is returned by operations that touch hardware before Setup succeeded.
	ErrNotSetUp = errors.New("step timer hardware is not set up")
	// ErrContinuousMove is returned when waiting on a move that never completes.
	ErrContinuousMove = errors.New("cannot wait for a continuous move to complete")
)

// Mode says what the axis is currently doing.
type Mode int

const (
	// ModeIdle means no pulses are scheduled.
	ModeIdle Mode = iota
	// ModeFinite means pulses are emitted until the remaining step count reaches zero.
	ModeFinite
	// ModeContinuous means pulses are emitted until the speed is set to zero.
	ModeContinuous
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeFinite:
		return "finite"
	case ModeContinuous:
		return "continuous"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Direction is the rotational direction selected by the sign of the speed.
type Direction int

const (
	// Forward is selected by a positive speed; the position counter increases.
	Forward Direction = iota
	// Reverse is selected by a negative speed; the position counter decreases.
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// PulseInterval returns the microseconds between pulses for the given geometry and speed:
// 60,000,000 / stepsPerRevolution / |speed|, truncating at each division.
//
// This is the only place the interval is computed. Zero speed has no interval and returns
// ErrZeroSpeed. A speed so large that the interval truncates to 0 is not an error.
func PulseInterval(stepsPerRevolution uint32, speed int64) (uint32, error) {
	if stepsPerRevolution == 0 {
		return 0, ErrInvalidGeometry
	}
	if speed == 0 {
		return 0, ErrZeroSpeed
	}
	return uint32(microsPerMinute / uint64(stepsPerRevolution) / magnitude(speed)), nil
}

// magnitude is |v| without overflowing on math.MinInt64.
func magnitude(v int64) uint64 {
	if v < 0 {
		return uint64(-(v + 1)) + 1
	}
	return uint64(v)
}

// Pins are the output lines of one axis. Indicator is optional.
type Pins struct {
	Step      board.GPIOPin
	Direction board.GPIOPin
	Indicator board.GPIOPin
}

// Stats are running counters kept for diagnostics.
type Stats struct {
	// Pulses is the number of step pulses emitted.
	Pulses uint64
	// DirectionWrites is the number of writes to the direction line.
	DirectionWrites uint64
	// Overdue counts Ticks that found more than one whole interval had passed. The extra
	// intervals are not caught up.
	Overdue uint64
}

// Status is a snapshot of a StepTimer's state.
type Status struct {
	Name               string
	StepsPerRevolution uint32
	Speed              int64
	// IntervalMicros is 0 while the speed is 0.
	IntervalMicros  uint32
	StepsRemaining  uint32
	Mode            Mode
	Position        uint32
	Direction       Direction
	DirectionHigh   bool
	LastPulseMicros uint32
	Stats           Stats
}

// A StepTimer is the state machine of one axis.
type StepTimer struct {
	// config
	name               string
	stepsPerRevolution uint32
	directionInverted  bool
	pins               Pins
	tb                 timebase.Timebase
	logger             logging.Logger

	// state
	setUp          bool
	speed          int64
	interval       uint32
	stepsRemaining uint32
	mode           Mode
	position       uint32
	direction      Direction
	dirHigh        bool
	indicatorHigh  bool
	lastPulse      uint32
	heartbeat      uint32
	stats          Stats
}

// New returns a StepTimer for the axis described by cfg. It does not touch the pins; call
// Setup before driving the axis.
func New(cfg Config, pins Pins, tb timebase.Timebase, logger logging.Logger) (*StepTimer, error) {
	if cfg.StepsPerRevolution <= 0 || int64(cfg.StepsPerRevolution) > math.MaxUint32 {
		return nil, errors.Wrapf(ErrInvalidGeometry, "axis %q has %d", cfg.Name, cfg.StepsPerRevolution)
	}
	if pins.Step == nil || pins.Direction == nil {
		return nil, errors.Errorf("axis %q needs both a step and a direction pin", cfg.Name)
	}
	if tb == nil {
		return nil, errors.New("expected a timebase")
	}

	return &StepTimer{
		name:               cfg.Name,
		stepsPerRevolution: uint32(cfg.StepsPerRevolution),
		directionInverted:  cfg.DirectionInverted,
		pins:               pins,
		tb:                 tb,
		logger:             logger,
	}, nil
}

// NewFromBoard looks up the axis pins on b and returns a StepTimer for them.
func NewFromBoard(b board.Board, cfg Config, tb timebase.Timebase, logger logging.Logger) (*StepTimer, error) {
	if b == nil {
		return nil, errors.New("expected a board")
	}

	var pins Pins
	var err error
	if pins.Step, err = b.GPIOPinByName(cfg.Pins.Step); err != nil {
		return nil, errors.Wrapf(err, "step pin of axis %q", cfg.Name)
	}
	if pins.Direction, err = b.GPIOPinByName(cfg.Pins.Direction); err != nil {
		return nil, errors.Wrapf(err, "direction pin of axis %q", cfg.Name)
	}
	// only set the indicator pin if it exists
	if cfg.Pins.Indicator != "" {
		if pins.Indicator, err = b.GPIOPinByName(cfg.Pins.Indicator); err != nil {
			return nil, errors.Wrapf(err, "indicator pin of axis %q", cfg.Name)
		}
	}

	return New(cfg, pins, tb, logger)
}

// Setup puts the pins into a known state: the step line low, the direction cache seeded from
// the direction line and the indicator off. It is the only initialization that touches
// hardware and may be called again to recover after a pin error.
func (st *StepTimer) Setup(ctx context.Context) error {
	if err := st.pins.Step.Set(ctx, false, nil); err != nil {
		return errors.Wrapf(err, "failed to drive step line of axis %q low", st.name)
	}
	dirHigh, err := st.pins.Direction.Get(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to read direction line of axis %q", st.name)
	}
	st.dirHigh = dirHigh
	if st.pins.Indicator != nil {
		if err := st.pins.Indicator.Set(ctx, false, nil); err != nil {
			return errors.Wrapf(err, "failed to reset indicator of axis %q", st.name)
		}
		st.indicatorHigh = false
	}

	now := st.tb.NowMicros()
	st.lastPulse = now
	st.heartbeat = now
	st.setUp = true
	st.logger.Debugw("axis set up", "axis", st.name, "steps_per_revolution", st.stepsPerRevolution,
		"direction_inverted", st.directionInverted, "direction_high", dirHigh)
	return nil
}

// Name returns the axis name.
func (st *StepTimer) Name() string {
	return st.name
}

// Status returns a snapshot of the timer state.
func (st *StepTimer) Status() Status {
	return Status{
		Name:               st.name,
		StepsPerRevolution: st.stepsPerRevolution,
		Speed:              st.speed,
		IntervalMicros:     st.interval,
		StepsRemaining:     st.stepsRemaining,
		Mode:               st.mode,
		Position:           st.position,
		Direction:          st.direction,
		DirectionHigh:      st.dirHigh,
		LastPulseMicros:    st.lastPulse,
		Stats:              st.stats,
	}
}

// IsMoving reports whether any pulses are still scheduled.
func (st *StepTimer) IsMoving() bool {
	return st.pending()
}

// ResetPosition sets the position counter to index, wrapped into one revolution.
func (st *StepTimer) ResetPosition(index uint32) {
	st.position = index % st.stepsPerRevolution
}

func (st *StepTimer) pending() bool {
	return st.mode == ModeContinuous || (st.mode == ModeFinite && st.stepsRemaining > 0)
}
