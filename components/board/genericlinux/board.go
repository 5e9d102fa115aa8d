// Package genericlinux is for Linux boards that expose their GPIO lines through the character
// device interface (/dev/gpiochipN), driven by way of mkch's gpio package.
package genericlinux

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/clayextruder/stepdriver/components/board"
	"github.com/clayextruder/stepdriver/logging"
)

// Board hands out lines of one gpiochip. Pin names are line offsets, e.g. "17".
type Board struct {
	devicePath string
	logger     logging.Logger

	mu    sync.Mutex
	gpios map[string]*gpioPin
}

// NewBoard returns a board for the character device at devicePath. No line is opened until it
// is requested.
func NewBoard(devicePath string, logger logging.Logger) (*Board, error) {
	if devicePath == "" {
		return nil, errors.New("expected a gpiochip device path")
	}
	return &Board{devicePath: devicePath, logger: logger, gpios: map[string]*gpioPin{}}, nil
}

// GPIOPinByName opens the line with the given offset as an output.
func (b *Board) GPIOPinByName(pinName string) (board.GPIOPin, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pin, ok := b.gpios[pinName]; ok {
		return pin, nil
	}

	offset, err := strconv.ParseUint(pinName, 10, 32)
	if err != nil {
		return nil, errors.Wrapf(board.NewPinNotFoundError(pinName), "pin name must be a line offset")
	}
	pin := &gpioPin{devicePath: b.devicePath, offset: uint32(offset)}
	if err := pin.open(); err != nil {
		return nil, errors.Wrapf(err, "failed to open line %d of %s", offset, b.devicePath)
	}
	b.gpios[pinName] = pin
	b.logger.Debugw("opened gpio line", "chip", b.devicePath, "offset", offset)
	return pin, nil
}

// Close releases every line.
func (b *Board) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs error
	for _, pin := range b.gpios {
		errs = multierr.Combine(errs, pin.Close())
	}
	b.gpios = map[string]*gpioPin{}
	return errs
}
