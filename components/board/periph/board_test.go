package periph

import (
	"context"
	"testing"

	"go.viam.com/test"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/clayextruder/stepdriver/logging"
)

func TestPeriphBoard(t *testing.T) {
	ctx := context.Background()
	step := &gpiotest.Pin{N: "GPIO17", Num: 17, L: gpio.High}
	pins := map[string]gpio.PinIO{"GPIO17": step}
	b := newBoard(func(name string) gpio.PinIO {
		p, ok := pins[name]
		if !ok {
			return nil
		}
		return p
	}, logging.NewTestLogger(t))

	_, err := b.GPIOPinByName("GPIO99")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "GPIO99")

	p, err := b.GPIOPinByName("GPIO17")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, step.L, test.ShouldEqual, gpio.Low)

	test.That(t, p.Set(ctx, true, nil), test.ShouldBeNil)
	test.That(t, step.L, test.ShouldEqual, gpio.High)
	high, err := p.Get(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, high, test.ShouldBeTrue)

	again, err := b.GPIOPinByName("GPIO17")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldEqual, p)

	test.That(t, b.Close(ctx), test.ShouldBeNil)
}
