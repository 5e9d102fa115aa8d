// Package board defines the digital output capability a stepper axis is driven through.
package board

import (
	"context"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// A Board hands out output pins by name.
type Board interface {
	// GPIOPinByName returns the output pin with the given name, configuring it as an output the
	// first time it is requested.
	GPIOPinByName(name string) (GPIOPin, error)

	// Close releases every pin the board has handed out.
	Close(ctx context.Context) error
}

// Model names accepted in a board config.
const (
	ModelFake     = "fake"
	ModelPeriph   = "periph"
	ModelGPIOChip = "gpiochip"
)

// Config describes which board implementation to use.
type Config struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	// Chip is the character device used by the gpiochip model, e.g. /dev/gpiochip0.
	Chip string `json:"chip,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	switch conf.Model {
	case "", ModelFake, ModelPeriph:
	case ModelGPIOChip:
		if conf.Chip == "" {
			return goutils.NewConfigValidationFieldRequiredError(path, "chip")
		}
	default:
		return goutils.NewConfigValidationError(path, errors.Errorf("unknown board model %q", conf.Model))
	}
	return nil
}

// NewPinNotFoundError is returned when a board has no pin of the requested name.
func NewPinNotFoundError(name string) error {
	return errors.Errorf("cannot find GPIO for unknown pin: %s", name)
}
