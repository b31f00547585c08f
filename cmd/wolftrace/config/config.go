// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the wolftrace YAML configuration.
//
// The file lives at ~/.wolftrace/wolftrace.yaml by default and is created
// with defaults on first run. Command-line flags override file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig indicates the file parsed but failed validation.
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

// Config is the root of wolftrace.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	History   HistoryConfig   `yaml:"history"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Templates TemplatesConfig `yaml:"templates"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port  int  `yaml:"port" validate:"min=1,max=65535"`
	Debug bool `yaml:"debug"`

	// RateLimit is mutating requests per second. 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=0"`

	// AllowedOrigins lists cross-origin pages that may open the event
	// stream. Same-origin pages are always allowed.
	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,required"`
}

// HistoryConfig configures undo history.
type HistoryConfig struct {
	MaxDepth int `yaml:"max_depth" validate:"min=1,max=1000"`
}

// SessionsConfig configures the session database.
type SessionsConfig struct {
	Path     string `yaml:"path" validate:"required_unless=InMemory true"`
	InMemory bool   `yaml:"in_memory"`
}

// TemplatesConfig configures user templates.
type TemplatesConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// TelemetryConfig configures tracing output.
type TelemetryConfig struct {
	TraceStdout bool `yaml:"trace_stdout"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	return Config{
		Server:    ServerConfig{Port: 5000, RateLimit: 20, Burst: 40},
		History:   HistoryConfig{MaxDepth: 50},
		Sessions:  SessionsConfig{Path: "~/.wolftrace/sessions"},
		Templates: TemplatesConfig{Dir: "~/.wolftrace/templates", Watch: true},
		Logging:   LoggingConfig{Level: "info", Dir: "~/.wolftrace/logs"},
	}
}

// DefaultPath returns ~/.wolftrace/wolftrace.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".wolftrace", "wolftrace.yaml"), nil
}

// Load reads path, creating it with defaults if it does not exist. Fields
// missing from the file keep their default values. Paths beginning with
// "~/" are expanded.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return Config{}, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.expandPaths()
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) expandPaths() {
	c.Sessions.Path = ExpandHome(c.Sessions.Path)
	c.Templates.Dir = ExpandHome(c.Templates.Dir)
	c.Logging.Dir = ExpandHome(c.Logging.Dir)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
