// Package config loads tool-level defaults from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/lumpkv/lumpadm/internal/metrics"
)

// DefaultFile is looked up in the working directory when no explicit
// path is given.
const DefaultFile = "lumpadm.yaml"

type Config struct {
	// MetricsPort is where start_metrics_server binds when the command
	// names no port.
	MetricsPort uint16 `yaml:"metricsPort"`
	// LogLevel is a logrus level name ("debug", "info", ...).
	LogLevel string `yaml:"logLevel"`
	// SyncWrites makes every engine commit fsync on its own.
	SyncWrites bool `yaml:"syncWrites"`
}

func Default() Config {
	return Config{
		MetricsPort: metrics.DefaultPort,
		LogLevel:    "info",
	}
}

// Load reads path if it exists. A missing file yields the defaults; a
// malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.MetricsPort == 0 {
		cfg.MetricsPort = metrics.DefaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// Level resolves the configured log level, falling back to info.
func (c Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
