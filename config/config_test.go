package config

import (
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/clayextruder/stepdriver/components/motor/steptimer"
)

func TestDefault(t *testing.T) {
	conf := Default()
	test.That(t, conf.Ensure(), test.ShouldBeNil)
	test.That(t, conf.LoopPeriod, test.ShouldEqual, DefaultLoopPeriod)
	test.That(t, conf.AxisNames(), test.ShouldResemble, []string{"x"})
	test.That(t, conf.Axes[0].StepsPerRevolution, test.ShouldEqual, 200)
}

func TestEnsure(t *testing.T) {
	axis := func(name, step, dir string) steptimer.Config {
		return steptimer.Config{
			Name:               name,
			Pins:               steptimer.PinConfig{Step: step, Direction: dir},
			StepsPerRevolution: 200,
		}
	}

	conf := Default()
	conf.LoopPeriod = time.Millisecond
	test.That(t, conf.Ensure(), test.ShouldBeNil)
	test.That(t, conf.LoopPeriod, test.ShouldEqual, time.Millisecond)

	conf = Default()
	conf.LoopPeriod = -time.Millisecond
	err := conf.Ensure()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "loop_period")

	conf = Default()
	conf.Axes = append(conf.Axes, axis("y", "step", "dir2"))
	err = conf.Ensure()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `pin "step" is already used by axis "x"`)

	conf = Default()
	conf.Axes = append(conf.Axes, axis("x", "step2", "dir2"))
	err = conf.Ensure()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "duplicate axis names")

	conf = Default()
	conf.Axes = append(conf.Axes, axis("y", "step2", "dir2"))
	test.That(t, conf.Ensure(), test.ShouldBeNil)
	test.That(t, conf.AxisNames(), test.ShouldResemble, []string{"x", "y"})

	y, err := conf.Axis("y")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, y.Pins.Step, test.ShouldEqual, "step2")

	_, err = conf.Axis("z")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `axis "z" not found`)
}
