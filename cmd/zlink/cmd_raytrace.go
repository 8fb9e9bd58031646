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

	"github.com/halide-optics/zlink/services/optic/controller"
	"github.com/halide-optics/zlink/services/optic/session"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	traceWave     int     // Wavelength number (1-based)
	traceSurface  int     // Target surface, -1 for the image surface
	traceParaxial bool    // Paraxial rather than real ray
	traceHx       float64 // Normalized field X
	traceHy       float64 // Normalized field Y
	tracePx       float64 // Normalized pupil X
	tracePy       float64 // Normalized pupil Y
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// raytraceCmd traces a single ray through the live design.
//
// # Examples
//
//	zlink raytrace --hy 1 --py 1
//	zlink raytrace --wave 2 --surface 5 --paraxial
var raytraceCmd = &cobra.Command{
	Use:   "raytrace",
	Short: "Trace a single ray through the live design",
	Run:   runRaytraceCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	raytraceCmd.Flags().IntVar(&traceWave, "wave", 1,
		"Wavelength number (1-based)")
	raytraceCmd.Flags().IntVar(&traceSurface, "surface", controller.ImageSurface,
		"Surface to trace to (-1 for the image surface)")
	raytraceCmd.Flags().BoolVar(&traceParaxial, "paraxial", false,
		"Trace a paraxial rather than a real ray")
	raytraceCmd.Flags().Float64Var(&traceHx, "hx", 0, "Normalized field X")
	raytraceCmd.Flags().Float64Var(&traceHy, "hy", 0, "Normalized field Y")
	raytraceCmd.Flags().Float64Var(&tracePx, "px", 0, "Normalized pupil X")
	raytraceCmd.Flags().Float64Var(&tracePy, "py", 0, "Normalized pupil Y")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runRaytraceCommand(cmd *cobra.Command, args []string) {
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

	res, err := controller.New(link, log.Slog()).Raytrace(ctx, session.TraceRequest{
		WaveNumber: traceWave,
		Paraxial:   traceParaxial,
		Surface:    traceSurface,
		Hx:         traceHx,
		Hy:         traceHy,
		Px:         tracePx,
		Py:         tracePy,
	})
	if err != nil {
		fatalf("ray trace: %v", err)
	}
	if res.ErrorCode != 0 {
		fatalf("ray trace failed with code %d", res.ErrorCode)
	}
	if res.VignetteCode != 0 {
		fmt.Printf("Ray vignetted at surface %d\n", res.VignetteCode)
	}
	fmt.Printf("position: (%g, %g, %g)\n", res.X, res.Y, res.Z)
	fmt.Printf("cosines:  (%g, %g, %g)\n", res.L, res.M, res.N)
	fmt.Printf("normal:   (%g, %g, %g)\n", res.L2, res.M2, res.N2)
	fmt.Printf("intensity: %g\n", res.Intensity)
}
