package config

import (
	"bytes"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/clayextruder/stepdriver/logging"
)

// Read reads a config from the given file. ${VAR} references are replaced from the environment
// before parsing.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
//
// The input is JSON5, so comments, trailing commas and unquoted keys are accepted.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	rd, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var attrs AttributeMap
	if err := json5.Unmarshal(rd, &attrs); err != nil {
		return nil, errors.Wrapf(err, "failed to decode config from %q", originalPath)
	}

	cfg, unused, err := TransformAttributeMap[*Config](attrs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to convert config from %q", originalPath)
	}
	cfg.ConfigFilePath = originalPath
	if len(unused) != 0 {
		cfg.Unused = unused
		logger.Warnw("config has unknown fields", "path", originalPath, "fields", unused)
	}

	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	return cfg, nil
}
