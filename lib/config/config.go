// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/hawkw/consolation/lib/conn"
	"github.com/hawkw/consolation/lib/instrument"
	"github.com/hawkw/consolation/lib/tasks"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "CONSOLATION_CONFIG"

// ColorMode selects how the terminal's color support is decided.
type ColorMode string

const (
	// ColorAuto detects color support from the terminal.
	ColorAuto ColorMode = "auto"
	// ColorAlways forces true-color output.
	ColorAlways ColorMode = "always"
	// ColorNever disables color.
	ColorNever ColorMode = "never"
)

// Config is the console's configuration.
type Config struct {
	// Target is the instrumented process to connect to.
	// Default: http://127.0.0.1:6669
	Target string `yaml:"target"`

	// Retain is how long completed tasks stay in the table.
	// Default: 6s
	Retain time.Duration `yaml:"retain"`

	// Backoff configures reconnection.
	Backoff BackoffConfig `yaml:"backoff"`

	// Color selects color output: auto, always, or never.
	Color ColorMode `yaml:"color"`

	// ASCII replaces the state glyphs with plain text.
	ASCII bool `yaml:"ascii"`

	// Log configures diagnostics.
	Log LogConfig `yaml:"log"`
}

// BackoffConfig configures the wait between reconnection attempts.
// Each consecutive failure adds Base to the wait, up to Max.
type BackoffConfig struct {
	Base time.Duration `yaml:"base"`
	Max  time.Duration `yaml:"max"`
}

// LogConfig configures diagnostics.
type LogConfig struct {
	// Level is the minimum level written to Output: debug, info, warn,
	// or error. The status bar always shows warn and above.
	// Default: info
	Level string `yaml:"level"`

	// Output is a file receiving JSON log records. Empty disables it.
	Output string `yaml:"output"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Target: instrument.DefaultTarget,
		Retain: tasks.DefaultRetain,
		Backoff: BackoffConfig{
			Base: conn.DefaultBaseBackoff,
			Max:  conn.DefaultMaxBackoff,
		},
		Color: ColorAuto,
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads the file named by CONSOLATION_CONFIG. When the variable is
// unset, Load returns [Default].
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, on top of the
// defaults. Fields the file omits keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	cfg.expandVariables()

	return cfg, nil
}

// loadFile merges a single configuration file into the config. JSON is
// a subset of YAML, so both formats decode through yaml.v3 once
// comments are stripped from JSONC.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in the
// path-like fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Target = expandVars(c.Target, vars)
	c.Log.Output = expandVars(c.Log.Output, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if _, err := instrument.ParseTarget(c.Target); err != nil {
		errs = append(errs, fmt.Errorf("target: %w", err))
	}

	if c.Retain < 0 {
		errs = append(errs, fmt.Errorf("retain must not be negative, got %s", c.Retain))
	}

	if c.Backoff.Base <= 0 {
		errs = append(errs, fmt.Errorf("backoff.base must be positive, got %s", c.Backoff.Base))
	}
	if c.Backoff.Max < c.Backoff.Base {
		errs = append(errs, fmt.Errorf("backoff.max (%s) must be at least backoff.base (%s)", c.Backoff.Max, c.Backoff.Base))
	}

	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		errs = append(errs, fmt.Errorf("color must be one of: auto, always, never; got %q", c.Color))
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// ParsedTarget returns the target as an [instrument.Target]. Call
// Validate first; an invalid target panics.
func (c *Config) ParsedTarget() instrument.Target {
	return instrument.MustParseTarget(c.Target)
}
