// Package register builds the board named by a board config.
package register

import (
	"github.com/pkg/errors"

	"github.com/clayextruder/stepdriver/components/board"
	"github.com/clayextruder/stepdriver/components/board/fake"
	"github.com/clayextruder/stepdriver/components/board/genericlinux"
	"github.com/clayextruder/stepdriver/components/board/periph"
	"github.com/clayextruder/stepdriver/logging"
)

// NewBoard constructs the board described by conf. For the periph model this performs the host
// driver initialization, which is the only hardware setup a board needs.
func NewBoard(conf board.Config, logger logging.Logger) (board.Board, error) {
	if err := conf.Validate("board"); err != nil {
		return nil, err
	}
	logger = logger.Sublogger("board")

	switch conf.Model {
	case "", board.ModelFake:
		return fake.NewBoard(logger), nil
	case board.ModelPeriph:
		if err := periph.Init(); err != nil {
			return nil, err
		}
		return periph.NewBoard(logger), nil
	case board.ModelGPIOChip:
		return genericlinux.NewBoard(conf.Chip, logger)
	default:
		return nil, errors.Errorf("unknown board model %q", conf.Model)
	}
}
