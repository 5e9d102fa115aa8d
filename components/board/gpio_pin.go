package board

import "context"

// A GPIOPin represents an individual GPIO pin on a board. Pins handed out by a Board are
// already configured as outputs.
type GPIOPin interface {
	// Set sets the pin to either low or high.
	Set(ctx context.Context, high bool, extra map[string]interface{}) error

	// Get gets the high/low state of the pin.
	Get(ctx context.Context, extra map[string]interface{}) (bool, error)
}
