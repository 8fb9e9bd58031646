// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package zfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

// encodeExport renders lines the way the host writes its exports: UTF-16
// little-endian with CRLF line endings.
func encodeExport(t *testing.T, lines []string) []byte {
	t.Helper()
	raw, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).
		NewEncoder().Bytes([]byte(strings.Join(lines, "\r\n")))
	require.NoError(t, err)
	return raw
}

func psfLines(dataRows ...string) []string {
	lines := []string{
		"Listing of FFT PSF data.",
		"", "", "", "", "", "", "",
		"0.550000 µm at 0.0000, 1.0000 deg.",
		"Data spacing is 0.250000 µm.",
		"Data area is 32.000000 µm square.",
		"Values are relative intensity.",
		"",
		"Pupil grid size: 32 by 32",
		"Image grid size: 2 by 2",
		"Center point is: row 2, column 2",
		"",
		"",
	}
	return append(lines, dataRows...)
}

func TestParsePSF(t *testing.T) {
	raw := encodeExport(t, psfLines("0.1\t0.2", "0.3\t0.4"))

	p, err := ParsePSF(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, 0.55, p.Wavelength)
	assert.Equal(t, 1e-6, p.WaveScale)
	assert.Equal(t, [2]float64{0, 1}, p.Field)
	assert.Equal(t, 0.25, p.DataSpacing)
	assert.Equal(t, 1e-6, p.DataSpacingScale)
	assert.Equal(t, 32.0, p.DataArea)
	assert.Equal(t, 1e-6, p.DataAreaScale)
	assert.Equal(t, [2]int{32, 32}, p.PupilGrid)
	assert.Equal(t, [2]int{2, 2}, p.ImageGrid)
	assert.Equal(t, [2]int{2, 2}, p.Centre)
	assert.Equal(t, [][]float64{{0.1, 0.2}, {0.3, 0.4}}, p.Data)
}

func TestParsePSF_GridMismatch(t *testing.T) {
	t.Run("extra row", func(t *testing.T) {
		raw := encodeExport(t, psfLines("0.1\t0.2", "0.3\t0.4", "0.5\t0.6"))
		_, err := ParsePSF(bytes.NewReader(raw))
		assert.ErrorIs(t, err, ErrGrid)
	})

	t.Run("short row", func(t *testing.T) {
		raw := encodeExport(t, psfLines("0.1\t0.2", "0.3"))
		_, err := ParsePSF(bytes.NewReader(raw))
		assert.ErrorIs(t, err, ErrGrid)
	})

	t.Run("non-numeric cell", func(t *testing.T) {
		raw := encodeExport(t, psfLines("0.1\t0.2", "0.3\tNaN?"))
		_, err := ParsePSF(bytes.NewReader(raw))
		assert.ErrorIs(t, err, ErrGrid)
	})
}

func TestParsePSF_TruncatedHeader(t *testing.T) {
	raw := encodeExport(t, []string{"Listing of FFT PSF data.", "", ""})
	_, err := ParsePSF(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrHeader)
}

func TestParsePSF_UnknownUnit(t *testing.T) {
	lines := psfLines("0.1\t0.2", "0.3\t0.4")
	lines[8] = "0.550000 furlongs at 0.0000, 1.0000 deg."
	_, err := ParsePSF(bytes.NewReader(encodeExport(t, lines)))
	assert.ErrorIs(t, err, ErrHeader)
}

func wfeLines(dataRows ...string) []string {
	lines := []string{
		"Listing of Wavefront Map data.",
		"", "", "", "", "", "", "",
		"0.550000 µm at 0.0000, 1.0000 deg.",
		"Peak to valley is 0.2821 waves, RMS is 0.0609 waves.",
		"",
		"Exit pupil diameter: 12.3450 mm",
		"",
		"Pupil grid size: 2 by 2",
		"Center point is: row 2, column 2",
		"",
	}
	return append(lines, dataRows...)
}

func TestParseWFE(t *testing.T) {
	raw := encodeExport(t, wfeLines("0\t-0.01", "0.02\t0.03"))

	w, err := ParseWFE(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, 0.55, w.Wavelength)
	assert.Equal(t, 1e-6, w.WaveScale)
	assert.Equal(t, [2]float64{0, 1}, w.Field)
	assert.Equal(t, 0.2821, w.PeakToValley)
	assert.Equal(t, 0.0609, w.RMS)
	assert.Equal(t, 12.345, w.ExitPupilDiameter)
	assert.Equal(t, "mm", w.ExitPupilUnit)
	assert.Equal(t, [2]int{2, 2}, w.Sampling)
	assert.Equal(t, [2]int{2, 2}, w.Centre)
	assert.Equal(t, [][]float64{{0, -0.01}, {0.02, 0.03}}, w.Data)
}

func TestParseWFE_GridMismatch(t *testing.T) {
	raw := encodeExport(t, wfeLines("0\t-0.01"))
	_, err := ParseWFE(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrGrid)
}

func TestParseSystemData(t *testing.T) {
	raw := encodeExport(t, []string{
		"System/Prescription Data",
		"",
		"GENERAL LENS DATA:",
		"",
		"Surfaces                :       12",
		"Working F/#             :   5.60000",
		"Entrance Pupil Diameter :        25",
	})

	s, err := ParseSystemData(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 5.6, s.WorkingFNumber)
	assert.Equal(t, 25.0, s.EntrancePupilDiameter)
}

func TestParseSystemData_MissingLabel(t *testing.T) {
	raw := encodeExport(t, []string{
		"System/Prescription Data",
		"Working F/#             :   5.60000",
	})
	_, err := ParseSystemData(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrHeader)
}

func TestParseFiles(t *testing.T) {
	dir := t.TempDir()

	psfPath := filepath.Join(dir, "psf.txt")
	require.NoError(t, os.WriteFile(psfPath, encodeExport(t, psfLines("0.1\t0.2", "0.3\t0.4")), 0o644))

	p, err := ParsePSFFile(psfPath)
	require.NoError(t, err)
	assert.Equal(t, [2]int{2, 2}, p.ImageGrid)

	_, err = ParseWFEFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
