package logging

import (
	"sync"

	"github.com/pkg/errors"
)

// axisLoggers holds the named loggers handed to each axis so their levels can be changed
// after the axes are built.
var axisLoggers = newLoggerRegistry()

type loggerRegistry struct {
	mu      sync.RWMutex
	loggers map[string]Logger
}

func newLoggerRegistry() *loggerRegistry {
	return &loggerRegistry{loggers: map[string]Logger{}}
}

func (lr *loggerRegistry) register(name string, logger Logger) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.loggers[name] = logger
}

func (lr *loggerRegistry) named(name string) (Logger, bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok := lr.loggers[name]
	return logger, ok
}

func (lr *loggerRegistry) setLevel(name string, level Level) error {
	logger, ok := lr.named(name)
	if !ok {
		return errors.Errorf("no logger registered as %q", name)
	}
	logger.SetLevel(level)
	return nil
}

// RegisterLogger registers logger under name, replacing any earlier one.
func RegisterLogger(name string, logger Logger) {
	axisLoggers.register(name, logger)
}

// LoggerNamed returns the logger registered under name.
func LoggerNamed(name string) (Logger, bool) {
	return axisLoggers.named(name)
}

// UpdateLoggerLevel sets the level of the logger registered under name.
func UpdateLoggerLevel(name string, level Level) error {
	return axisLoggers.setLevel(name, level)
}
