package timebase

import (
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
)

func TestElapsedAcrossWrap(t *testing.T) {
	test.That(t, Elapsed(100, 40), test.ShouldEqual, uint32(60))
	test.That(t, Elapsed(10, math.MaxUint32-9), test.ShouldEqual, uint32(20))
	test.That(t, Elapsed(7, 7), test.ShouldEqual, uint32(0))
}

func TestClockTimebase(t *testing.T) {
	mock := clock.NewMock()
	tb := New(mock)
	test.That(t, tb.NowMicros(), test.ShouldEqual, uint32(0))

	mock.Add(1500 * time.Microsecond)
	test.That(t, tb.NowMicros(), test.ShouldEqual, uint32(1500))

	mock.Add(2 * time.Second)
	test.That(t, tb.NowMicros(), test.ShouldEqual, uint32(2_001_500))
}

func TestRealSpin(t *testing.T) {
	tb := New(nil)
	for i := 0; i < 100; i++ {
		start := time.Now()
		tb.SpinMicros(50)
		test.That(t, time.Since(start), test.ShouldBeGreaterThanOrEqualTo, 50*time.Microsecond)
	}
}

// steppingClock moves forward by step on every reading.
type steppingClock struct {
	clock.Clock
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func (c *steppingClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func TestSpinWaitsFullDuration(t *testing.T) {
	clk := &steppingClock{now: time.Unix(0, 0), step: 300 * time.Nanosecond}
	tb := New(clk)

	// leave the counter mid-microsecond so a truncated start reading would be early
	clk.now = clk.now.Add(1300 * time.Nanosecond)
	for _, n := range []uint32{1, 50, 200} {
		before := clk.now
		tb.SpinMicros(n)
		test.That(t, clk.now.Sub(before), test.ShouldBeGreaterThanOrEqualTo, time.Duration(n)*time.Microsecond)
	}

	before := clk.now
	tb.SpinMicros(0)
	test.That(t, clk.now.Sub(before), test.ShouldBeLessThan, time.Microsecond)
}

func TestMock(t *testing.T) {
	m := NewMock(math.MaxUint32 - 99)
	test.That(t, m.NowMicros(), test.ShouldEqual, uint32(math.MaxUint32-99))

	m.SpinMicros(50)
	m.SpinMicros(100)
	test.That(t, m.NowMicros(), test.ShouldEqual, uint32(50))
	test.That(t, m.SpunMicros(), test.ShouldEqual, uint64(150))

	m.SleepMillis(2)
	test.That(t, m.NowMicros(), test.ShouldEqual, uint32(2050))
	test.That(t, m.SleptMillis(), test.ShouldEqual, uint64(2))

	m.AddMicros(5)
	test.That(t, m.NowMicros(), test.ShouldEqual, uint32(2055))
	test.That(t, m.SpunMicros(), test.ShouldEqual, uint64(150))
}
