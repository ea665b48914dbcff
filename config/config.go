// Package config aggregates the configuration of every subsystem a
// signalstory process wires together. Files may be JSON, YAML or TOML;
// values from SIGNALSTORY_* environment variables override the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/zuriscript/signalstory-sub000/devtools"
	"github.com/zuriscript/signalstory-sub000/extensions/metrics"
	"github.com/zuriscript/signalstory-sub000/mediator"
	"github.com/zuriscript/signalstory-sub000/persistence"
	"github.com/zuriscript/signalstory-sub000/store"
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "SIGNALSTORY_"

const defaultAddr = ":8080"

// Config holds initialization parameters for all subsystems. Each section
// is handed to that subsystem's config-driven constructor.
type Config struct {
	Addr     string `json:"addr,omitempty" env:"ADDR"`
	LogLevel string `json:"log_level,omitempty" env:"LOG_LEVEL"`

	Store       store.Config       `json:"store" envPrefix:"STORE_"`
	Mediator    mediator.Config    `json:"mediator" envPrefix:"MEDIATOR_"`
	Persistence persistence.Config `json:"persistence" envPrefix:"PERSISTENCE_"`
	Devtools    devtools.Config    `json:"devtools" envPrefix:"DEVTOOLS_"`
	Metrics     metrics.Config     `json:"metrics" envPrefix:"METRICS_"`
}

// Default returns a Config with sensible defaults for all subsystems.
func Default() Config {
	return Config{
		Addr:        defaultAddr,
		LogLevel:    "info",
		Store:       store.DefaultConfig(),
		Mediator:    mediator.DefaultConfig(),
		Persistence: persistence.DefaultConfig(),
		Devtools:    devtools.DefaultConfig(),
		Metrics:     metrics.DefaultConfig(),
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.LogLevel != "" {
		c.LogLevel = source.LogLevel
	}

	c.Store.Merge(&source.Store)
	c.Mediator.Merge(&source.Mediator)
	c.Persistence.Merge(&source.Persistence)
	c.Devtools.Merge(&source.Devtools)
	c.Metrics.Merge(&source.Metrics)
}

// Load builds a Config from defaults, the file at path (skipped when path
// is empty), and the environment, in that order of increasing precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		loaded, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Merge(loaded)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReadFile parses the config file at path without applying defaults. The
// format follows the extension: .json, .yaml/.yml or .toml. Keys are the
// JSON field names in every format.
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
	case ".yaml", ".yml":
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if data, err = json.Marshal(raw); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case ".toml":
		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if data, err = json.Marshal(raw); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension: %s", ext)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &loaded, nil
}

// ApplyEnv overrides fields of cfg from SIGNALSTORY_* environment
// variables, for example SIGNALSTORY_PERSISTENCE_DRIVER. Unset variables
// leave fields untouched.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
