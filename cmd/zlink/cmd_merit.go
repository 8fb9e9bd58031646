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

	"github.com/halide-optics/zlink/services/optic/merit"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	meritTarget   string  // rms or ptv
	meritRings    int     // Gaussian quadrature rings
	meritArms     int     // Gaussian quadrature arms (even, >= 6)
	meritMinGap   float64 // Minimum air gap constraint
	meritMaxGap   float64 // Maximum air gap constraint
	meritGapAfter int     // Surface whose following air gap is constrained
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// meritCmd builds a default merit function in the live design, optionally
// adding boundary operands for one air gap.
//
// # Examples
//
//	zlink merit
//	zlink merit --target ptv --rings 5
//	zlink merit --gap-after 4 --min-gap 0.5 --max-gap 10
var meritCmd = &cobra.Command{
	Use:   "merit",
	Short: "Build a default merit function via the pre-registered macro",
	Long: `Writes the DEFAULTMERIT macro into the host's macro directory and
executes it by its three-letter code. The macro file must already be
registered with the host; zlink only rewrites its contents.`,
	Run: runMeritCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	meritCmd.Flags().StringVar(&meritTarget, "target", "rms",
		"Optimization target: rms or ptv")
	meritCmd.Flags().IntVar(&meritRings, "rings", 3,
		"Gaussian quadrature rings")
	meritCmd.Flags().IntVar(&meritArms, "arms", 6,
		"Gaussian quadrature arms (even, at least 6)")
	meritCmd.Flags().IntVar(&meritGapAfter, "gap-after", 0,
		"Surface whose following air gap gets boundary operands (0 disables)")
	meritCmd.Flags().Float64Var(&meritMinGap, "min-gap", 0,
		"Minimum air gap (lens units)")
	meritCmd.Flags().Float64Var(&meritMaxGap, "max-gap", 0,
		"Maximum air gap (lens units)")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runMeritCommand(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fatalf("%v", err)
	}
	log := newLogger(cfg)
	defer log.Close()

	ctx := context.Background()
	link, err := dialLink(ctx, cfg, log)
	if err != nil {
		fatalf("dial command link: %v", err)
	}
	defer link.Close()

	criteria := merit.DefaultCriteria()
	switch meritTarget {
	case "rms":
		criteria.Target = merit.TargetRMS
	case "ptv":
		criteria.Target = merit.TargetPTV
	default:
		fatalf("unknown target %q (want rms or ptv)", meritTarget)
	}
	criteria.Rings = meritRings
	criteria.Arms = meritArms

	mgr := merit.New(link, cfg.Macro.Dir, cfg.Macro.File, log.Slog())
	if err := mgr.BuildDefault(ctx, criteria); err != nil {
		fatalf("build merit function: %v", err)
	}
	fmt.Printf("Merit function built via macro %s\n", mgr.MacroCode())

	if meritGapAfter > 0 {
		row, err := mgr.RowOf(ctx, "DMFS")
		if err != nil {
			fatalf("locate DMFS row: %v", err)
		}
		if err := mgr.AddAirGapConstraints(ctx, row+1, meritGapAfter, meritMinGap, meritMaxGap); err != nil {
			fatalf("add air gap constraints: %v", err)
		}
		fmt.Printf("Air gap after surface %d constrained to [%g, %g]\n",
			meritGapAfter, meritMinGap, meritMaxGap)
	}
}
