// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.

// Package config loads the YAML file a kartoffelsim process is started
// with: one entry per world plus the process-wide logging/metrics
// settings, following the same "defaults, then overlay a YAML file"
// shape as the framework config this project's tooling is modelled on.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level process configuration: how to log, where to
// expose metrics, and the set of worlds to run.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Worlds  []WorldConfig `yaml:"worlds"`
}

// LoggingConfig controls the process-wide zerolog setup.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig controls the Prometheus HTTP exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"` // e.g. ":9090"
}

// WorldConfig describes one world to spin up at startup.
type WorldConfig struct {
	Name string `yaml:"name"`

	Theme  string `yaml:"theme"`  // currently only "arena"
	Radius int32  `yaml:"radius"` // arena radius in tiles

	Clock ClockConfig `yaml:"clock"`
	Mode  string      `yaml:"mode"` // currently only "deathmatch"

	AutoRespawn      bool  `yaml:"auto_respawn"`
	MaxAliveBots     uint8 `yaml:"max_alive_bots"`
	MaxQueuedBots    uint8 `yaml:"max_queued_bots"`
	AllowBreakpoints bool  `yaml:"allow_breakpoints"`

	Seed uint64 `yaml:"seed"`
}

// ClockConfig selects and parameterises a world's pacing.
type ClockConfig struct {
	Kind string  `yaml:"kind"` // manual, fixed_hz, unlimited
	Hz   float64 `yaml:"hz"`
}

// DefaultConfig returns the configuration a bare `kartoffelsim serve`
// runs with when no file is given: one small arena, no metrics.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Enabled: false, Addr: ":9090"},
		Worlds: []WorldConfig{
			{
				Name:          "default",
				Theme:         "arena",
				Radius:        12,
				Clock:         ClockConfig{Kind: "fixed_hz", Hz: 64},
				Mode:          "deathmatch",
				AutoRespawn:   true,
				MaxAliveBots:  16,
				MaxQueuedBots: 16,
				Seed:          1,
			},
		},
	}
}

// Load reads path and overlays it onto DefaultConfig. A missing file is
// not an error: the caller gets the defaults back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes cfg back out as YAML, for a "kartoffelsim config init"
// style workflow.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate rejects a configuration that would fail later in a more
// confusing way (a world with no name, an impossible bot cap, ...).
func (c *Config) Validate() error {
	if len(c.Worlds) == 0 {
		return fmt.Errorf("config: at least one world is required")
	}

	seen := map[string]bool{}
	for i, w := range c.Worlds {
		if w.Name == "" {
			return fmt.Errorf("config: worlds[%d].name is required", i)
		}
		if seen[w.Name] {
			return fmt.Errorf("config: duplicate world name %q", w.Name)
		}
		seen[w.Name] = true

		if w.Radius <= 0 {
			return fmt.Errorf("config: worlds[%d].radius must be positive", i)
		}

		switch w.Clock.Kind {
		case "manual", "unlimited":
		case "fixed_hz":
			if w.Clock.Hz <= 0 {
				return fmt.Errorf("config: worlds[%d].clock.hz must be positive", i)
			}
		default:
			return fmt.Errorf("config: worlds[%d].clock.kind must be manual, fixed_hz, or unlimited", i)
		}
	}

	return nil
}

