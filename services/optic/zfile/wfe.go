// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package zfile

import "io"

// WFE is a parsed wavefront error map export. Peak-to-valley and RMS are
// in waves; the exit pupil diameter is in ExitPupilUnit.
type WFE struct {
	Wavelength float64
	WaveScale  float64
	Field      [2]float64

	PeakToValley float64
	RMS          float64

	ExitPupilDiameter float64
	ExitPupilUnit     string

	Sampling [2]int
	Centre   [2]int // (row, column) of the map centre, 1-based

	Data [][]float64 // Sampling[0] rows by Sampling[1] columns
}

// ParseWFE parses a wavefront error map export. Fixed header layout: line
// 8 carries wavelength and field, 9 peak-to-valley and RMS, 11 the exit
// pupil diameter, 13 the sampling, 14 the centre; the map grid starts at
// line 16 (all 0-based).
func ParseWFE(r io.Reader) (*WFE, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	var w WFE

	f, err := headerLine(lines, 8, 5)
	if err != nil {
		return nil, err
	}
	if w.Wavelength, err = headerFloat(f, 0); err != nil {
		return nil, err
	}
	if w.WaveScale, err = unitScale(f[1]); err != nil {
		return nil, err
	}
	if w.Field[0], err = headerFloat(f, 3); err != nil {
		return nil, err
	}
	if w.Field[1], err = headerFloat(f, 4); err != nil {
		return nil, err
	}

	if f, err = headerLine(lines, 9, 9); err != nil {
		return nil, err
	}
	if w.PeakToValley, err = headerFloat(f, 4); err != nil {
		return nil, err
	}
	if w.RMS, err = headerFloat(f, 8); err != nil {
		return nil, err
	}

	if f, err = headerLine(lines, 11, 5); err != nil {
		return nil, err
	}
	if w.ExitPupilDiameter, err = headerFloat(f, 3); err != nil {
		return nil, err
	}
	w.ExitPupilUnit = f[4]

	if f, err = headerLine(lines, 13, 6); err != nil {
		return nil, err
	}
	if w.Sampling[0], err = headerInt(f, 3); err != nil {
		return nil, err
	}
	if w.Sampling[1], err = headerInt(f, 5); err != nil {
		return nil, err
	}

	if f, err = headerLine(lines, 14, 7); err != nil {
		return nil, err
	}
	if w.Centre[0], err = headerInt(f, 4); err != nil {
		return nil, err
	}
	if w.Centre[1], err = headerInt(f, 6); err != nil {
		return nil, err
	}

	if w.Data, err = parseGrid(lines, 16, w.Sampling); err != nil {
		return nil, err
	}
	return &w, nil
}

// ParseWFEFile parses a wavefront error map export from a file.
func ParseWFEFile(path string) (*WFE, error) {
	return parseFile(path, ParseWFE)
}
