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
	"os/signal"
	"syscall"

	"github.com/halide-optics/zlink/services/optic/watch"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	watchDir string // Directory override for watch.dir
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// watchCmd follows an export directory and prints each parsed export.
//
// # Examples
//
//	zlink watch
//	zlink watch --dir /data/exports
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch an export directory and parse files as they land",
	Long: `Watches the configured export directory. Each file that settles
after a write is classified by name, parsed, and summarized on stdout.
Interrupt to stop.`,
	Run: runWatchCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "",
		"Export directory (overrides watch.dir from the configuration)")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runWatchCommand(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fatalf("%v", err)
	}
	log := newLogger(cfg)
	defer log.Close()

	dir := cfg.Watch.Dir
	if watchDir != "" {
		dir = watchDir
	}

	w, err := watch.New(watch.Config{
		Dir:      dir,
		Debounce: cfg.Watch.Debounce,
		Logger:   log.Slog(),
	})
	if err != nil {
		fatalf("start watcher: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		for res := range w.Results() {
			printResult(res)
		}
	}()

	log.Info("watching export directory", "dir", dir)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		fatalf("watcher: %v", err)
	}
}

func printResult(res watch.Result) {
	if res.Err != nil {
		fmt.Printf("%s: parse error: %v\n", res.Path, res.Err)
		return
	}
	switch res.Kind {
	case watch.KindPSF:
		fmt.Printf("%s: PSF grid %dx%d, spacing %g\n",
			res.Path, res.PSF.ImageGrid[0], res.PSF.ImageGrid[1], res.PSF.DataSpacing)
	case watch.KindWFE:
		fmt.Printf("%s: wavefront P2V %g RMS %g waves\n",
			res.Path, res.WFE.PeakToValley, res.WFE.RMS)
	case watch.KindSystemData:
		fmt.Printf("%s: working F/# %g, EPD %g\n",
			res.Path, res.System.WorkingFNumber, res.System.EntrancePupilDiameter)
	}
}
