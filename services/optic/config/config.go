// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the zlink YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level zlink configuration.
type Config struct {
	Link  LinkConfig  `yaml:"link" validate:"required"`
	Macro MacroConfig `yaml:"macro"`
	Watch WatchConfig `yaml:"watch"`
	Log   LogConfig   `yaml:"log"`
}

// LinkConfig configures the command link connection.
type LinkConfig struct {
	URL            string        `yaml:"url" validate:"required,uri"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" validate:"gte=0"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gte=0"`
	DialAttempts   int           `yaml:"dial_attempts" validate:"gte=1"`
	CacheSize      int           `yaml:"cache_size" validate:"gte=1"`
}

// MacroConfig locates the pre-registered merit macro file in the host
// application's macro directory.
type MacroConfig struct {
	Dir  string `yaml:"dir"`
	File string `yaml:"file"`
}

// WatchConfig configures the export directory watcher.
type WatchConfig struct {
	Dir      string        `yaml:"dir"`
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// LogConfig configures structured logging. Dir, when set, enables JSON
// file logging in that directory.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Link: LinkConfig{
			URL:            "ws://localhost:7788/lde",
			ConnectTimeout: 5 * time.Second,
			RequestTimeout: 30 * time.Second,
			DialAttempts:   3,
			CacheSize:      512,
		},
		Macro: MacroConfig{
			File: "MFE.ZPL",
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML configuration file over the defaults and validates the
// result. An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}
