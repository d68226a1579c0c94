package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load reads, defaults, and validates a run configuration from a YAML file,
// the same read -> default -> validate sequence the teacher's
// config.ParseFromFile used for cluster specs.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", path)
	}

	SetDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, errors.Wrapf(err, "validating config file %s", path)
	}

	return cfg, nil
}
