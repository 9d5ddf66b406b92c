// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Target != "http://127.0.0.1:6669" {
		t.Errorf("expected target=http://127.0.0.1:6669, got %s", cfg.Target)
	}
	if cfg.Retain != 6*time.Second {
		t.Errorf("expected retain=6s, got %s", cfg.Retain)
	}
	if cfg.Backoff.Base != 500*time.Millisecond || cfg.Backoff.Max != 5*time.Second {
		t.Errorf("expected backoff 500ms..5s, got %s..%s", cfg.Backoff.Base, cfg.Backoff.Max)
	}
	if cfg.Color != ColorAuto {
		t.Errorf("expected color=auto, got %s", cfg.Color)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestLoad_WithoutConsolationConfig(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Target != Default().Target {
		t.Errorf("expected default target, got %s", cfg.Target)
	}
}

func TestLoad_WithConsolationConfig(t *testing.T) {
	configPath := writeConfig(t, "consolation.yaml", `
target: unix:///run/app/console.sock
retain: 30s
`)
	t.Setenv(EnvironmentVariable, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Target != "unix:///run/app/console.sock" {
		t.Errorf("expected target from file, got %s", cfg.Target)
	}
	if cfg.Retain != 30*time.Second {
		t.Errorf("expected retain=30s, got %s", cfg.Retain)
	}
}

func TestLoadFile(t *testing.T) {
	configPath := writeConfig(t, "consolation.yaml", `
target: 10.0.0.7:7000
backoff:
  base: 250ms
  max: 2s
color: never
ascii: true
log:
  level: debug
  output: /tmp/consolation.log
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.Target != "10.0.0.7:7000" {
		t.Errorf("expected target=10.0.0.7:7000, got %s", cfg.Target)
	}
	if cfg.Backoff.Base != 250*time.Millisecond || cfg.Backoff.Max != 2*time.Second {
		t.Errorf("expected backoff 250ms..2s, got %s..%s", cfg.Backoff.Base, cfg.Backoff.Max)
	}
	if cfg.Color != ColorNever || !cfg.ASCII {
		t.Errorf("expected color=never ascii=true, got %s %v", cfg.Color, cfg.ASCII)
	}
	if cfg.Log.Output != "/tmp/consolation.log" {
		t.Errorf("expected log output from file, got %s", cfg.Log.Output)
	}
	// Omitted fields keep their defaults.
	if cfg.Retain != 6*time.Second {
		t.Errorf("expected default retain, got %s", cfg.Retain)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	configPath := writeConfig(t, "consolation.jsonc", `{
  // The service in the staging container.
  "target": "file:///var/run/app.sock",
  "retain": "1m",
  "backoff": {"base": "1s", "max": "10s",},
}`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Target != "file:///var/run/app.sock" {
		t.Errorf("expected target from file, got %s", cfg.Target)
	}
	if cfg.Retain != time.Minute {
		t.Errorf("expected retain=1m, got %s", cfg.Retain)
	}
	if cfg.Backoff.Base != time.Second || cfg.Backoff.Max != 10*time.Second {
		t.Errorf("expected backoff 1s..10s, got %s..%s", cfg.Backoff.Base, cfg.Backoff.Max)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}

	unknown := writeConfig(t, "consolation.yaml", "taget: localhost:1\n")
	if _, err := LoadFile(unknown); err == nil {
		t.Error("expected error for an unknown field")
	}

	badDuration := writeConfig(t, "consolation.yaml", "retain: soon\n")
	if _, err := LoadFile(badDuration); err == nil {
		t.Error("expected error for an unparseable duration")
	}
}

func TestLoadFile_Empty(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "consolation.yaml", ""))
	if err != nil {
		t.Fatalf("LoadFile() of an empty file failed: %v", err)
	}
	if cfg.Retain != Default().Retain {
		t.Errorf("expected default retain, got %s", cfg.Retain)
	}
}

func TestLoadFile_ExpandsPaths(t *testing.T) {
	t.Setenv("APP_RUNTIME_DIR", "/run/user/1000")
	configPath := writeConfig(t, "consolation.yaml", `
target: unix://${APP_RUNTIME_DIR}/app.sock
log:
  output: ${LOG_DIR:-/tmp}/consolation.log
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Target != "unix:///run/user/1000/app.sock" {
		t.Errorf("expected expanded target, got %s", cfg.Target)
	}
	if cfg.Log.Output != "/tmp/consolation.log" {
		t.Errorf("expected default-expanded log output, got %s", cfg.Log.Output)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/console.log",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/console.log",
		},
		{
			input:    "${CONSOLATION_TEST_MISSING:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name:    "non-localhost unix socket",
			modify:  func(c *Config) { c.Target = "file://example.com/app.sock" },
			wantErr: "non-localhost",
		},
		{
			name:    "empty target",
			modify:  func(c *Config) { c.Target = "" },
			wantErr: "target",
		},
		{
			name:    "negative retain",
			modify:  func(c *Config) { c.Retain = -time.Second },
			wantErr: "retain",
		},
		{
			name:   "zero retain",
			modify: func(c *Config) { c.Retain = 0 },
		},
		{
			name:    "zero backoff base",
			modify:  func(c *Config) { c.Backoff.Base = 0 },
			wantErr: "backoff.base",
		},
		{
			name:    "ceiling below base",
			modify:  func(c *Config) { c.Backoff.Max = 100 * time.Millisecond },
			wantErr: "backoff.max",
		},
		{
			name:    "unknown color mode",
			modify:  func(c *Config) { c.Color = "sometimes" },
			wantErr: "color",
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want an error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Retain = -time.Second
	cfg.Color = "sometimes"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	if !strings.Contains(err.Error(), "retain") || !strings.Contains(err.Error(), "color") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}

func TestLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "WARN"
	level, err := cfg.LogLevel()
	if err != nil {
		t.Fatalf("LogLevel() failed: %v", err)
	}
	if level.String() != "WARN" {
		t.Errorf("LogLevel() = %s, want WARN", level)
	}
}
