// Package fake implements a fake board whose pins record every write.
package fake

import (
	"context"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/clayextruder/stepdriver/components/board"
	"github.com/clayextruder/stepdriver/logging"
)

// A Board hands out recording GPIOPins, creating them on first request.
type Board struct {
	// FailPins names pins whose Set calls fail, for exercising error paths.
	FailPins   map[string]error
	CloseCount int

	mu     sync.Mutex
	pins   map[string]*GPIOPin
	logger logging.Logger
}

// NewBoard returns a new fake board.
func NewBoard(logger logging.Logger) *Board {
	return &Board{
		pins:     map[string]*GPIOPin{},
		FailPins: map[string]error{},
		logger:   logger,
	}
}

// GPIOPinByName returns the GPIO pin by the given name, creating it if needed.
func (b *Board) GPIOPinByName(name string) (board.GPIOPin, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pins[name]
	if !ok {
		p = &GPIOPin{Name: name}
		b.pins[name] = p
	}
	if err, ok := b.FailPins[name]; ok {
		p.FailWith(err)
	}
	return p, nil
}

// Pin returns the pin handed out under name, or nil if GPIOPinByName was never called for it.
func (b *Board) Pin(name string) *GPIOPin {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pins[name]
}

// PinNames returns the names of every pin handed out so far, sorted.
func (b *Board) PinNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := lo.Keys(b.pins)
	slices.Sort(names)
	return names
}

// Close counts the call and logs the write totals of every pin.
func (b *Board) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CloseCount++
	if b.logger != nil {
		for name, pin := range b.pins {
			b.logger.Debugw("fake pin closed", "pin", name, "writes", pin.Writes(), "rising_edges", pin.RisingEdges())
		}
	}
	return nil
}

// A GPIOPin reads back the same set values and keeps a history of every write.
type GPIOPin struct {
	Name string

	mu       sync.Mutex
	high     bool
	history  []bool
	rising   int
	failWith error
}

// Set sets the pin to either low or high.
func (gp *GPIOPin) Set(ctx context.Context, high bool, extra map[string]interface{}) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if gp.failWith != nil {
		return gp.failWith
	}
	if high && !gp.high {
		gp.rising++
	}
	gp.high = high
	gp.history = append(gp.history, high)
	return nil
}

// Get gets the high/low state of the pin.
func (gp *GPIOPin) Get(ctx context.Context, extra map[string]interface{}) (bool, error) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	return gp.high, nil
}

// Writes returns how many times Set succeeded.
func (gp *GPIOPin) Writes() int {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	return len(gp.history)
}

// RisingEdges returns how many low to high transitions were written. On a step line this is
// the number of pulses.
func (gp *GPIOPin) RisingEdges() int {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	return gp.rising
}

// History returns a copy of every level written, oldest first.
func (gp *GPIOPin) History() []bool {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	return slices.Clone(gp.history)
}

// FailWith makes every later Set return err. A nil err clears the failure.
func (gp *GPIOPin) FailWith(err error) {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	gp.failWith = err
}

// Reset clears the write history but keeps the current level.
func (gp *GPIOPin) Reset() {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	gp.history = nil
	gp.rising = 0
}
