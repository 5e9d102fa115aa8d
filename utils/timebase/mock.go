package timebase

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Mock is a Timebase driven by a clock.Mock. Spinning and sleeping advance the mock clock
// instead of blocking, so code under test sees time pass exactly as much as it asked for.
type Mock struct {
	*clock.Mock

	mu    sync.Mutex
	epoch time.Time
	start uint32
	spun  uint64
	slept uint64
}

// NewMock returns a Mock whose counter reads start. Use a start close to math.MaxUint32 to
// exercise counter wrap.
func NewMock(start uint32) *Mock {
	clk := clock.NewMock()
	return &Mock{Mock: clk, epoch: clk.Now(), start: start}
}

// NowMicros returns the counter value.
func (m *Mock) NowMicros() uint32 {
	return m.start + uint32(m.Mock.Since(m.epoch).Microseconds())
}

// SpinMicros advances the mock clock by n microseconds.
func (m *Mock) SpinMicros(n uint32) {
	m.mu.Lock()
	m.spun += uint64(n)
	m.mu.Unlock()
	m.Mock.Add(time.Duration(n) * time.Microsecond)
}

// SleepMillis advances the mock clock by n milliseconds.
func (m *Mock) SleepMillis(n uint32) {
	m.mu.Lock()
	m.slept += uint64(n)
	m.mu.Unlock()
	m.Mock.Add(time.Duration(n) * time.Millisecond)
}

// AddMicros advances the mock clock by n microseconds without recording a spin.
func (m *Mock) AddMicros(n uint32) {
	m.Mock.Add(time.Duration(n) * time.Microsecond)
}

// SpunMicros returns the total microseconds passed to SpinMicros.
func (m *Mock) SpunMicros() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spun
}

// SleptMillis returns the total milliseconds passed to SleepMillis.
func (m *Mock) SleptMillis() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slept
}
