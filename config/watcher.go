package config

import (
	"bytes"
	"context"

	"github.com/a8m/envsubst"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"

	"github.com/clayextruder/stepdriver/logging"
	"github.com/clayextruder/stepdriver/utils"
)

// A Watcher delivers a new Config every time the file it watches is rewritten with different
// content that still parses and validates.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	configCh  chan *Config
	workers   utils.StoppableWorkers
}

// NewWatcher starts watching configPath. Invalid rewrites are logged and skipped.
func NewWatcher(configPath string, logger logging.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(configPath); err != nil {
		return nil, multiCloseErr(err, fsWatcher)
	}

	w := &Watcher{fsWatcher: fsWatcher, configCh: make(chan *Config)}
	initial, err := envsubst.ReadFile(configPath)
	if err != nil {
		return nil, multiCloseErr(err, fsWatcher)
	}

	w.workers = utils.NewStoppableWorkers(func(ctx context.Context) {
		lastRd := initial
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-fsWatcher.Errors:
				if !ok {
					return
				}
				logger.Errorw("config watcher error", "path", configPath, "error", err)
			case event, ok := <-fsWatcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					// editors often replace the file, which drops the watch
					if err := fsWatcher.Add(configPath); err != nil {
						logger.Debugw("config file went away", "path", configPath, "error", err)
						continue
					}
				} else if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				rd, err := envsubst.ReadFile(configPath)
				if err != nil {
					logger.Errorw("error reading config after write", "path", configPath, "error", err)
					continue
				}
				if bytes.Equal(rd, lastRd) {
					continue
				}
				newConfig, err := FromReader(configPath, bytes.NewReader(rd), logger)
				if err != nil {
					logger.Errorw("error reading config after write", "path", configPath, "error", err)
					continue
				}
				lastRd = rd
				select {
				case <-ctx.Done():
					return
				case w.configCh <- newConfig:
				}
			}
		}
	})
	return w, nil
}

// Config returns the channel new configs are delivered on.
func (w *Watcher) Config() <-chan *Config {
	return w.configCh
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.workers.Stop()
	return w.fsWatcher.Close()
}

func multiCloseErr(err error, fsWatcher *fsnotify.Watcher) error {
	return multierr.Combine(err, fsWatcher.Close())
}
