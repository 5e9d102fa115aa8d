// Package periph implements a board on top of periph.io's GPIO registry. Any pin name the
// registry knows (e.g. "GPIO17" on a Raspberry Pi) can be used.
package periph

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/clayextruder/stepdriver/components/board"
	"github.com/clayextruder/stepdriver/logging"
)

// Init loads the periph.io host drivers. It must succeed before NewBoard is called.
func Init() error {
	state, err := host.Init()
	if err != nil {
		return errors.Wrap(err, "failed to initialize periph host drivers")
	}
	if len(state.Loaded) == 0 {
		return errors.New("no periph host drivers loaded")
	}
	return nil
}

// Board resolves pins through gpioreg.
type Board struct {
	mu     sync.Mutex
	pins   map[string]*gpioPin
	lookup func(name string) gpio.PinIO
	logger logging.Logger
}

// NewBoard returns a board using the global periph.io pin registry.
func NewBoard(logger logging.Logger) *Board {
	return newBoard(gpioreg.ByName, logger)
}

func newBoard(lookup func(name string) gpio.PinIO, logger logging.Logger) *Board {
	return &Board{pins: map[string]*gpioPin{}, lookup: lookup, logger: logger}
}

// GPIOPinByName returns the named pin, driving it low as an output the first time it is requested.
func (b *Board) GPIOPinByName(name string) (board.GPIOPin, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.pins[name]; ok {
		return p, nil
	}

	pin := b.lookup(name)
	if pin == nil {
		return nil, board.NewPinNotFoundError(name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, errors.Wrapf(err, "failed to configure pin %s as output", name)
	}
	p := &gpioPin{pin: pin}
	b.pins[name] = p
	b.logger.Debugw("configured output pin", "pin", name, "number", pin.Number())
	return p, nil
}

// Close halts every pin that was handed out.
func (b *Board) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs error
	for name, p := range b.pins {
		if err := p.pin.Halt(); err != nil {
			errs = multierr.Combine(errs, errors.Wrapf(err, "failed to halt pin %s", name))
		}
	}
	b.pins = map[string]*gpioPin{}
	return errs
}

type gpioPin struct {
	pin gpio.PinIO
}

func (gp *gpioPin) Set(ctx context.Context, high bool, extra map[string]interface{}) error {
	l := gpio.Low
	if high {
		l = gpio.High
	}
	return gp.pin.Out(l)
}

func (gp *gpioPin) Get(ctx context.Context, extra map[string]interface{}) (bool, error) {
	return gp.pin.Read() == gpio.High, nil
}
