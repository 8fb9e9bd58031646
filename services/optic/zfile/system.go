// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package zfile

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SystemData is a parsed system data summary export.
type SystemData struct {
	WorkingFNumber        float64
	EntrancePupilDiameter float64
}

// ParseSystemData parses a system data export. Unlike the grid exports,
// the summary has no fixed layout; the values are found by their labels.
func ParseSystemData(r io.Reader) (*SystemData, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	var s SystemData
	var haveFNo, haveEPD bool
	for _, line := range lines {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			continue
		}
		switch {
		case strings.Contains(label, "Working F/#"):
			s.WorkingFNumber = v
			haveFNo = true
		case strings.Contains(label, "Entrance Pupil Diameter"):
			s.EntrancePupilDiameter = v
			haveEPD = true
		}
	}
	if !haveFNo || !haveEPD {
		return nil, fmt.Errorf("system data labels missing: %w", ErrHeader)
	}
	return &s, nil
}

// ParseSystemDataFile parses a system data export from a file.
func ParseSystemDataFile(path string) (*SystemData, error) {
	return parseFile(path, ParseSystemData)
}
