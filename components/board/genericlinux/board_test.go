package genericlinux

import (
	"context"
	"testing"

	"go.viam.com/test"

	"github.com/clayextruder/stepdriver/logging"
)

func TestNewBoardRequiresDevice(t *testing.T) {
	_, err := NewBoard("", logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPinNamesAreOffsets(t *testing.T) {
	b, err := NewBoard("/dev/gpiochip-does-not-exist", logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	_, err = b.GPIOPinByName("GPIO17")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "line offset")

	// A numeric name is accepted but the missing device fails to open.
	_, err = b.GPIOPinByName("17")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, b.Close(context.Background()), test.ShouldBeNil)
}
