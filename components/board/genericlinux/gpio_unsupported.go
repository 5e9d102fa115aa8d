//go:build !linux

package genericlinux

import (
	"context"

	"github.com/pkg/errors"
)

var errUnsupported = errors.New("gpiochip boards are only supported on linux")

type gpioPin struct {
	devicePath string
	offset     uint32
}

func (pin *gpioPin) Set(ctx context.Context, isHigh bool, extra map[string]interface{}) error {
	return errUnsupported
}

func (pin *gpioPin) Get(ctx context.Context, extra map[string]interface{}) (bool, error) {
	return false, errUnsupported
}

func (pin *gpioPin) open() error {
	return errUnsupported
}

func (pin *gpioPin) Close() error {
	return nil
}
