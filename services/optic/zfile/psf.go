// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package zfile

import "io"

// PSF is a parsed FFT PSF export. Scale fields convert the value next to
// them to metres.
type PSF struct {
	Wavelength float64
	WaveScale  float64
	Field      [2]float64

	DataSpacing      float64
	DataSpacingScale float64
	DataArea         float64
	DataAreaScale    float64

	PupilGrid [2]int
	ImageGrid [2]int
	Centre    [2]int // (row, column) of the PSF centre, 1-based

	Data [][]float64 // ImageGrid[0] rows by ImageGrid[1] columns
}

// ParsePSF parses an FFT PSF export. The header layout is fixed: line 8
// carries wavelength and field, 9 the data spacing, 10 the data area, 13
// and 14 the pupil and image grid sizes, 15 the centre; the intensity grid
// starts at line 18 (all 0-based).
func ParsePSF(r io.Reader) (*PSF, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	var p PSF

	f, err := headerLine(lines, 8, 5)
	if err != nil {
		return nil, err
	}
	if p.Wavelength, err = headerFloat(f, 0); err != nil {
		return nil, err
	}
	if p.WaveScale, err = unitScale(f[1]); err != nil {
		return nil, err
	}
	if p.Field[0], err = headerFloat(f, 3); err != nil {
		return nil, err
	}
	if p.Field[1], err = headerFloat(f, 4); err != nil {
		return nil, err
	}

	if f, err = headerLine(lines, 9, 5); err != nil {
		return nil, err
	}
	if p.DataSpacing, err = headerFloat(f, 3); err != nil {
		return nil, err
	}
	if p.DataSpacingScale, err = unitScale(f[4]); err != nil {
		return nil, err
	}

	if f, err = headerLine(lines, 10, 5); err != nil {
		return nil, err
	}
	if p.DataArea, err = headerFloat(f, 3); err != nil {
		return nil, err
	}
	if p.DataAreaScale, err = unitScale(f[4]); err != nil {
		return nil, err
	}

	if f, err = headerLine(lines, 13, 6); err != nil {
		return nil, err
	}
	if p.PupilGrid[0], err = headerInt(f, 3); err != nil {
		return nil, err
	}
	if p.PupilGrid[1], err = headerInt(f, 5); err != nil {
		return nil, err
	}

	if f, err = headerLine(lines, 14, 6); err != nil {
		return nil, err
	}
	if p.ImageGrid[0], err = headerInt(f, 3); err != nil {
		return nil, err
	}
	if p.ImageGrid[1], err = headerInt(f, 5); err != nil {
		return nil, err
	}

	if f, err = headerLine(lines, 15, 7); err != nil {
		return nil, err
	}
	if p.Centre[0], err = headerInt(f, 4); err != nil {
		return nil, err
	}
	if p.Centre[1], err = headerInt(f, 6); err != nil {
		return nil, err
	}

	if p.Data, err = parseGrid(lines, 18, p.ImageGrid); err != nil {
		return nil, err
	}
	return &p, nil
}

// ParsePSFFile parses an FFT PSF export from a file.
func ParsePSFFile(path string) (*PSF, error) {
	return parseFile(path, ParsePSF)
}
