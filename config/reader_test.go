package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/clayextruder/stepdriver/components/board"
	"github.com/clayextruder/stepdriver/components/motor/steptimer"
	"github.com/clayextruder/stepdriver/logging"
)

const extruderConfig = `{
	// a single extruder axis on the periph host
	board: {name: "pi", model: "periph"},
	axes: [
		{
			name: "extruder",
			pins: {step: "GPIO17", dir: "GPIO27", indicator: "GPIO22"},
			steps_per_revolution: 200,
			direction_inverted: true,
			move: {steps: 400, speed: -120},
		},
	],
	loop_period: "250us",
}`

func TestFromReaderValidate(t *testing.T) {
	logger := logging.NewTestLogger(t)

	_, err := FromReader("somepath", strings.NewReader(""), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to decode")

	_, err = FromReader("somepath", strings.NewReader(`{"axes": 1}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to convert")

	_, err = FromReader("somepath", strings.NewReader(`{}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"axes" is required`)

	_, err = FromReader("somepath", strings.NewReader(`{"axes": [{}]}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `axes.0`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"name" is required`)

	_, err = FromReader("somepath", strings.NewReader(`{"board": {"model": "arduino"}, "axes": []}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown board model "arduino"`)

	_, err = FromReader("somepath", strings.NewReader(`{"axes": [{"name": "x", "steps_per_revolution": -1, "pins": {"step": "a", "dir": "b"}}]}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "steps_per_revolution must be between")

	conf, err := FromReader("somepath", strings.NewReader(extruderConfig), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, &Config{
		ConfigFilePath: "somepath",
		Board:          board.Config{Name: "pi", Model: board.ModelPeriph},
		Axes: []steptimer.Config{
			{
				Name:               "extruder",
				Pins:               steptimer.PinConfig{Step: "GPIO17", Direction: "GPIO27", Indicator: "GPIO22"},
				StepsPerRevolution: 200,
				DirectionInverted:  true,
				Move:               &steptimer.MoveConfig{Steps: 400, Speed: -120},
			},
		},
		LoopPeriod: 250 * time.Microsecond,
	})
}

func TestFromReaderUnusedFields(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	conf, err := FromReader("somepath", strings.NewReader(`{
		axes: [{name: "x", pins: {step: "a", dir: "b"}, steps_per_revolution: 48, acceleration: 3}],
		frequency: 20,
	}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Unused, test.ShouldContain, "frequency")
	test.That(t, conf.Unused, test.ShouldContain, "axes[0].acceleration")
	test.That(t, logs.FilterMessage("config has unknown fields").Len(), test.ShouldEqual, 1)
	test.That(t, conf.LoopPeriod, test.ShouldEqual, DefaultLoopPeriod)
}

func TestReadSubstitutesEnvironment(t *testing.T) {
	logger := logging.NewTestLogger(t)
	t.Setenv("EXTRUDER_STEP_PIN", "GPIO5")
	t.Setenv("EXTRUDER_STEPS", "1600")

	path := filepath.Join(t.TempDir(), "stepdriver.json5")
	content := `{
		axes: [{name: "e", pins: {step: "${EXTRUDER_STEP_PIN}", dir: "GPIO6"}, steps_per_revolution: ${EXTRUDER_STEPS}}],
	}`
	test.That(t, os.WriteFile(path, []byte(content), 0o600), test.ShouldBeNil)

	conf, err := Read(path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, conf.Axes[0].Pins.Step, test.ShouldEqual, "GPIO5")
	test.That(t, conf.Axes[0].StepsPerRevolution, test.ShouldEqual, 1600)

	_, err = Read(filepath.Join(t.TempDir(), "missing.json5"), logger)
	test.That(t, err, test.ShouldNotBeNil)
}
