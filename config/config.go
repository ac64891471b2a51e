// Package config loads optional YAML defaults for the saftools commands.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable pointing at a config file.
const EnvVar = "SAFTOOLS_CONFIG"

// Config holds defaults applied to flags that were not set explicitly.
type Config struct {
	// Checksum is the checksum algorithm (md5, sha1, sha256, blake3)
	Checksum string `yaml:"checksum,omitempty"`

	// WriteDir is where problem record files are written and read
	WriteDir string `yaml:"write_dir,omitempty"`

	// LogDir receives a log file per run
	LogDir string `yaml:"log_dir,omitempty"`

	// Bundle is the contents bundle the document commands act on
	Bundle string `yaml:"bundle,omitempty"`

	// Profile is the mapping profile name or path
	Profile string `yaml:"profile,omitempty"`

	// Color enables coloured console output; nil leaves the default
	Color *bool `yaml:"color,omitempty"`

	// Legacy writes problem records without checksums
	Legacy bool `yaml:"legacy,omitempty"`
}

// Load reads the config at path. An empty path falls back to $SAFTOOLS_CONFIG
// and then to an empty config.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return &cfg, nil
}
