// Package config loads shell settings from the optional ~/.dshrc.yaml
// file with DSH_* environment variables layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// RCFileName is the per-user configuration file looked up in $HOME
const RCFileName = ".dshrc.yaml"

// Config holds the tunable shell settings
type Config struct {
	// HistorySize bounds the command history ring
	HistorySize int `yaml:"history_size" envconfig:"HISTORY_SIZE"`
	// NoHistory disables history persistence entirely
	NoHistory bool `yaml:"no_history" envconfig:"NO_HISTORY"`
	// Color toggles prompt coloring
	Color bool `yaml:"color" envconfig:"COLOR"`
	// Verbose enables debug logging to stderr
	Verbose bool `yaml:"verbose" envconfig:"VERBOSE"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		HistorySize: 1000,
		Color:       true,
	}
}

// Load builds the effective configuration: defaults, then the rc file
// when present, then DSH_* environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, RCFileName)
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process("DSH", &cfg); err != nil {
		return cfg, fmt.Errorf("environment overrides: %w", err)
	}

	return cfg, nil
}
