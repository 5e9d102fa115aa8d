package utils

import (
	"github.com/pkg/errors"
)

// NewAxisNotFoundError is used when an axis name is not in the config.
func NewAxisNotFoundError(name string, known []string) error {
	return errors.Errorf("axis %q not found, have %q", name, known)
}
