// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/halide-optics/zlink/pkg/logging"
	"github.com/halide-optics/zlink/services/optic/config"
	"github.com/halide-optics/zlink/services/optic/session"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string
	logLevel   string // CLI override for log.level (debug/info/warn/error)

	rootCmd = &cobra.Command{
		Use:   "zlink",
		Short: "A cli to automate a hosted optical design session",
		Long: `zlink drives a hosted optical design application over its
				command link: pivot transforms, ray traces, merit function
				setup, and export file parsing.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to a YAML configuration file (defaults apply when omitted)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level override: debug, info, warn, error")

	rootCmd.AddCommand(pivotCmd)
	rootCmd.AddCommand(raytraceCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(meritCmd)
	rootCmd.AddCommand(watchCmd)
}

// loadConfig resolves the effective configuration from the --config flag
// and applies CLI overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger from the configuration.
func newLogger(cfg config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Log.Level),
		LogDir:  cfg.Log.Dir,
		Service: "zlink",
	})
}

// dialLink connects to the command link described by the configuration.
func dialLink(ctx context.Context, cfg config.Config, log *logging.Logger) (*session.Link, error) {
	lc := session.DefaultLinkConfig()
	lc.URL = cfg.Link.URL
	lc.ConnectTimeout = cfg.Link.ConnectTimeout
	lc.RequestTimeout = cfg.Link.RequestTimeout
	lc.DialAttempts = cfg.Link.DialAttempts
	lc.CacheSize = cfg.Link.CacheSize
	lc.Logger = log.Slog()
	return session.Dial(ctx, lc)
}

// fatalf prints an error to stderr and exits. Cobra run functions use it so
// a failed automation step never reports success to the calling script.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
