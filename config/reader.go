package config

import (
	"bytes"
	"io"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mcv-project/arview/logging"
)

// Read reads a config from the given file. Environment variables in the file are expanded
// first. YAML and JSON are both accepted.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	var attrs map[string]interface{}
	if err := yaml.NewDecoder(r).Decode(&attrs); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "cannot parse config %q", originalPath)
	}

	cfg, err := FromAttributes(attrs)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode config %q", originalPath)
	}
	if err := cfg.loadIntrinsicsFile(originalPath); err != nil {
		return nil, err
	}
	if err := cfg.Validate(originalPath); err != nil {
		return nil, err
	}
	logger.Debugw("read config",
		"path", originalPath,
		"viewport", cfg.ViewportSize(),
		"distortion", len(cfg.Distortion) != 0,
		"distortion_type", cfg.DistortionType,
		"pose", cfg.Pose != nil)
	return cfg, nil
}

// FromAttributes decodes an attribute map over the defaults. Unknown keys are rejected.
// The result is not validated.
func FromAttributes(attrs map[string]interface{}) (*Config, error) {
	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      cfg,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attrs); err != nil {
		return nil, err
	}
	return cfg, nil
}
