// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package zfile parses the host application's text export files: FFT PSF
// grids, wavefront error maps and system data summaries. All exports are
// UTF-16 little-endian; the parsers key on fixed header line numbers the
// way the export writer lays them out.
package zfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrHeader is returned when an export file's header lines do not
	// carry the expected fields.
	ErrHeader = errors.New("malformed export file header")

	// ErrGrid is returned when an export file's data grid does not match
	// the sampling its header declares.
	ErrGrid = errors.New("export data grid does not match header sampling")
)

// readLines decodes a whole UTF-16-LE export into lines.
func readLines(r io.Reader) ([]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode utf-16: %w", err)
	}
	text := strings.ReplaceAll(string(decoded), "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")
	return strings.Split(text, "\n"), nil
}

func parseFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("open export %s: %w", path, err)
	}
	defer f.Close()
	return parse(f)
}

// unitScale maps a length unit token from a header line to metres. Tokens
// may carry trailing punctuation from the sentence they sit in.
func unitScale(token string) (float64, error) {
	switch strings.Trim(token, ".,") {
	case "m":
		return 1, nil
	case "mm":
		return 1e-3, nil
	case "µm", "um":
		return 1e-6, nil
	case "nm":
		return 1e-9, nil
	default:
		return 0, fmt.Errorf("length unit %q: %w", token, ErrHeader)
	}
}

// headerLine returns the whitespace-split fields of line idx, requiring at
// least want fields.
func headerLine(lines []string, idx, want int) ([]string, error) {
	if idx >= len(lines) {
		return nil, fmt.Errorf("header line %d missing: %w", idx, ErrHeader)
	}
	fields := strings.Fields(lines[idx])
	if len(fields) < want {
		return nil, fmt.Errorf("header line %d has %d of %d fields: %w", idx, len(fields), want, ErrHeader)
	}
	return fields, nil
}

func headerFloat(fields []string, i int) (float64, error) {
	v, err := strconv.ParseFloat(strings.Trim(fields[i], ".,"), 64)
	if err != nil {
		return 0, fmt.Errorf("header field %q: %w", fields[i], ErrHeader)
	}
	return v, nil
}

func headerInt(fields []string, i int) (int, error) {
	v, err := strconv.Atoi(strings.Trim(fields[i], ".,"))
	if err != nil {
		return 0, fmt.Errorf("header field %q: %w", fields[i], ErrHeader)
	}
	return v, nil
}

// parseGrid reads the tab-separated data block starting at line start and
// checks it against the declared (rows, cols) sampling.
func parseGrid(lines []string, start int, sampling [2]int) ([][]float64, error) {
	var grid [][]float64
	for i := start; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, "\t")
		row := make([]float64, 0, len(cells))
		for _, cell := range cells {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("data line %d cell %q: %w", i, cell, ErrGrid)
			}
			row = append(row, v)
		}
		grid = append(grid, row)
	}
	if len(grid) != sampling[0] {
		return nil, fmt.Errorf("grid has %d of %d rows: %w", len(grid), sampling[0], ErrGrid)
	}
	for i, row := range grid {
		if len(row) != sampling[1] {
			return nil, fmt.Errorf("grid row %d has %d of %d columns: %w", i, len(row), sampling[1], ErrGrid)
		}
	}
	return grid, nil
}
