// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/halide-optics/zlink/services/optic/watch"
	"github.com/halide-optics/zlink/services/optic/zfile"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	parseKind string // Force the export kind: psf, wfe, sys (auto-detect when empty)
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// parseCmd parses a text export written by the hosted application.
//
// # Examples
//
//	zlink parse psf_onaxis.txt
//	zlink parse --kind wfe run42.txt
var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a PSF, wavefront or system data text export",
	Long: `Parses a UTF-16 text export and prints its header summary. The
export kind is detected from the file name unless --kind forces it.`,
	Args: cobra.ExactArgs(1),
	Run:  runParseCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	parseCmd.Flags().StringVar(&parseKind, "kind", "",
		"Export kind: psf, wfe or sys (detected from the file name when empty)")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runParseCommand(cmd *cobra.Command, args []string) {
	path := args[0]

	kind := watch.ClassifyByName(path)
	switch parseKind {
	case "":
	case "psf":
		kind = watch.KindPSF
	case "wfe":
		kind = watch.KindWFE
	case "sys":
		kind = watch.KindSystemData
	default:
		fatalf("unknown kind %q (want psf, wfe or sys)", parseKind)
	}

	switch kind {
	case watch.KindPSF:
		psf, err := zfile.ParsePSFFile(path)
		if err != nil {
			fatalf("parse %s: %v", path, err)
		}
		fmt.Printf("FFT PSF at %g %s, field (%g, %g)\n",
			psf.Wavelength, scaleName(psf.WaveScale), psf.Field[0], psf.Field[1])
		fmt.Printf("image grid %dx%d, centre (%d, %d)\n",
			psf.ImageGrid[0], psf.ImageGrid[1], psf.Centre[0], psf.Centre[1])
		fmt.Printf("data spacing %g, data area %g\n", psf.DataSpacing, psf.DataArea)
	case watch.KindWFE:
		wfe, err := zfile.ParseWFEFile(path)
		if err != nil {
			fatalf("parse %s: %v", path, err)
		}
		fmt.Printf("Wavefront map at %g %s, field (%g, %g)\n",
			wfe.Wavelength, scaleName(wfe.WaveScale), wfe.Field[0], wfe.Field[1])
		fmt.Printf("P2V %g waves, RMS %g waves\n", wfe.PeakToValley, wfe.RMS)
		fmt.Printf("exit pupil %g %s, sampling %dx%d\n",
			wfe.ExitPupilDiameter, wfe.ExitPupilUnit, wfe.Sampling[0], wfe.Sampling[1])
	case watch.KindSystemData:
		sys, err := zfile.ParseSystemDataFile(path)
		if err != nil {
			fatalf("parse %s: %v", path, err)
		}
		fmt.Printf("working F/# %g, entrance pupil diameter %g\n",
			sys.WorkingFNumber, sys.EntrancePupilDiameter)
	default:
		fatalf("cannot detect export kind of %s; pass --kind", path)
	}
}

// scaleName names the metric scale factor an export header declared.
func scaleName(scale float64) string {
	switch scale {
	case 1:
		return "m"
	case 1e-3:
		return "mm"
	case 1e-6:
		return "µm"
	case 1e-9:
		return "nm"
	default:
		return fmt.Sprintf("x%g m", scale)
	}
}
