// Package timebase provides the microsecond clock, busy-wait and cooperative sleep that step
// timing is measured against.
package timebase

import (
	"time"

	"github.com/benbjohnson/clock"
)

// A Timebase is a monotonic microsecond counter plus the two ways of letting time pass.
//
// NowMicros wraps at the range of uint32 (about 71.6 minutes). Callers must only compare
// timestamps by unsigned subtraction, which tolerates a single wrap between the two readings.
type Timebase interface {
	// NowMicros returns the current counter value.
	NowMicros() uint32

	// SpinMicros busy-waits for at least n microseconds without yielding.
	SpinMicros(n uint32)

	// SleepMillis cooperatively sleeps for n milliseconds.
	SleepMillis(n uint32)
}

// Elapsed returns the microseconds between since and now, correct across one counter wrap.
func Elapsed(now, since uint32) uint32 {
	return now - since
}

type clockTimebase struct {
	clk   clock.Clock
	epoch time.Time
}

// New returns a Timebase whose counter starts at zero when New is called.
func New(clk clock.Clock) Timebase {
	if clk == nil {
		clk = clock.New()
	}
	return &clockTimebase{clk: clk, epoch: clk.Now()}
}

func (tb *clockTimebase) NowMicros() uint32 {
	return uint32(tb.clk.Since(tb.epoch).Microseconds())
}

// SpinMicros measures against the clock itself, not the truncated counter.
func (tb *clockTimebase) SpinMicros(n uint32) {
	d := time.Duration(n) * time.Microsecond
	start := tb.clk.Now()
	for tb.clk.Since(start) < d {
	}
}

func (tb *clockTimebase) SleepMillis(n uint32) {
	tb.clk.Sleep(time.Duration(n) * time.Millisecond)
}
