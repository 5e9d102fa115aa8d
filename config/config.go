// Package config defines the machine config file: which board to open and the axes wired to it.
package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	goutils "go.viam.com/utils"

	"github.com/clayextruder/stepdriver/components/board"
	"github.com/clayextruder/stepdriver/components/motor/steptimer"
	"github.com/clayextruder/stepdriver/utils"
)

// DefaultLoopPeriod is how often the control loop ticks when the config does not say.
const DefaultLoopPeriod = 200 * time.Microsecond

// A Config describes the board and every axis driven from it.
type Config struct {
	ConfigFilePath string `json:"-"`

	Board      board.Config       `json:"board"`
	Axes       []steptimer.Config `json:"axes"`
	LoopPeriod time.Duration      `json:"loop_period,omitempty"`
	Debug      bool               `json:"debug,omitempty"`

	// Unused holds top level keys the config did not recognize.
	Unused []string `json:"-"`
}

// Default returns the config used when no file is given: a fake board with a single
// 200 step per revolution axis.
func Default() *Config {
	return &Config{
		Board: board.Config{Name: "fake", Model: board.ModelFake},
		Axes: []steptimer.Config{
			{
				Name:               "x",
				Pins:               steptimer.PinConfig{Step: "step", Direction: "dir", Indicator: "led"},
				StepsPerRevolution: 200,
			},
		},
	}
}

// Ensure validates the config and fills in defaults.
func (c *Config) Ensure() error {
	if err := c.Board.Validate("board"); err != nil {
		return err
	}
	if len(c.Axes) == 0 {
		return goutils.NewConfigValidationFieldRequiredError("", "axes")
	}

	// a pin may only be driven by one axis
	pinOwners := map[string]string{}
	for idx := range c.Axes {
		path := fmt.Sprintf("axes.%d", idx)
		axis := &c.Axes[idx]
		if err := axis.Validate(path); err != nil {
			return err
		}
		for _, pin := range []string{axis.Pins.Step, axis.Pins.Direction, axis.Pins.Indicator} {
			if pin == "" {
				continue
			}
			if owner, ok := pinOwners[pin]; ok {
				return goutils.NewConfigValidationError(path,
					errors.Errorf("pin %q is already used by axis %q", pin, owner))
			}
			pinOwners[pin] = axis.Name
		}
	}

	if dups := lo.FindDuplicates(c.AxisNames()); len(dups) != 0 {
		return goutils.NewConfigValidationError("axes", errors.Errorf("duplicate axis names %q", dups))
	}

	if c.LoopPeriod < 0 {
		return goutils.NewConfigValidationError("loop_period", errors.Errorf("must not be negative, got %v", c.LoopPeriod))
	}
	if c.LoopPeriod == 0 {
		c.LoopPeriod = DefaultLoopPeriod
	}
	return nil
}

// AxisNames returns the names of the axes in config order.
func (c *Config) AxisNames() []string {
	return lo.Map(c.Axes, func(a steptimer.Config, _ int) string { return a.Name })
}

// Axis returns the config of the named axis.
func (c *Config) Axis(name string) (steptimer.Config, error) {
	axis, ok := lo.Find(c.Axes, func(a steptimer.Config) bool { return a.Name == name })
	if !ok {
		return steptimer.Config{}, utils.NewAxisNotFoundError(name, c.AxisNames())
	}
	return axis, nil
}
