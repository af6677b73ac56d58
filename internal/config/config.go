// Package config loads the user configuration file.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds user preferences read from ~/.lockstep-rebase/config.yaml.
// Every field is optional; zero values fall back to defaults.
type Config struct {
	// Remote is the remote consulted for remote-only branches and
	// force-pushes. Defaults to "origin".
	Remote string `yaml:"remote"`

	// Log tunes the rotating file log. Only Path is applied, and
	// LOCKSTEP_REBASE_LOG overrides it.
	Log LogConfig `yaml:"log"`
}

// LogConfig mirrors the rotation knobs of the file logger. MaxSizeMB,
// MaxBackups and MaxAgeDays are parsed but not applied; the file logger
// takes rotation settings from its environment variables only.
type LogConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DefaultPath returns the config file location
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lockstep-rebase", "config.yaml")
}

// Load reads the config file at path, or the default location when path
// is empty. A missing file yields the zero config.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RemoteOrDefault returns the configured remote or "origin"
func (c *Config) RemoteOrDefault() string {
	if c.Remote != "" {
		return c.Remote
	}
	return "origin"
}
