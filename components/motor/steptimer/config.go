package steptimer

import (
	"math"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// PinConfig defines the mapping of where the driver chip is wired.
type PinConfig struct {
	Step      string `json:"step"`
	Direction string `json:"dir"`
	Indicator string `json:"indicator,omitempty"`
}

// MoveConfig is a move applied to the axis when a config is loaded.
type MoveConfig struct {
	Steps uint32 `json:"steps"`
	Speed int64  `json:"speed"`
}

// Config describes one axis.
type Config struct {
	Name               string      `json:"name"`
	Pins               PinConfig   `json:"pins"`
	StepsPerRevolution int         `json:"steps_per_revolution"`
	DirectionInverted  bool        `json:"direction_inverted,omitempty"`
	Move               *MoveConfig `json:"move,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Name == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if cfg.StepsPerRevolution == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "steps_per_revolution")
	}
	if cfg.StepsPerRevolution < 0 || int64(cfg.StepsPerRevolution) > math.MaxUint32 {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("steps_per_revolution must be between 1 and %d, got %d", uint32(math.MaxUint32), cfg.StepsPerRevolution))
	}
	if cfg.Pins.Step == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "pins.step")
	}
	if cfg.Pins.Direction == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "pins.dir")
	}
	if cfg.Pins.Step == cfg.Pins.Direction || cfg.Pins.Step == cfg.Pins.Indicator ||
		cfg.Pins.Direction == cfg.Pins.Indicator {
		return goutils.NewConfigValidationError(path, errors.New("step, dir and indicator pins must be distinct"))
	}
	return nil
}
