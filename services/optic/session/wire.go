// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/halide-optics/zlink/services/optic"
)

// The command link speaks the host application's item grammar: one text
// frame per request, "Item,arg,arg,...", one text frame per reply. Replies
// are comma-separated values, except composite surface reads, which are
// tab-separated so comments may contain commas. A reply starting with
// "ERR:" carries a remote failure message.
//
// Surface-data codes for GetSurfaceData/SetSurfaceData.
const (
	sdatType    = 0
	sdatComment = 1
	sdatThick   = 3
	sdatGlass   = 4
)

const errPrefix = "ERR:"

func buildItem(item string, args ...string) string {
	if len(args) == 0 {
		return item
	}
	return item + "," + strings.Join(args, ",")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatFloats(vs ...float64) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = formatFloat(v)
	}
	return out
}

// parseReply splits a comma-separated reply and surfaces remote errors.
func parseReply(reply string) ([]string, error) {
	if msg, ok := strings.CutPrefix(reply, errPrefix); ok {
		msg = strings.TrimSpace(msg)
		if strings.Contains(msg, "out of range") {
			return nil, fmt.Errorf("remote: %s: %w", msg, optic.ErrIndexOutOfRange)
		}
		return nil, fmt.Errorf("remote: %s: %w", msg, optic.ErrSessionFailure)
	}
	return strings.Split(strings.TrimSpace(reply), ","), nil
}

func parseFloats(fields []string, want int) ([]float64, error) {
	if len(fields) < want {
		return nil, fmt.Errorf("reply has %d of %d fields: %w", len(fields), want, optic.ErrSessionFailure)
	}
	out := make([]float64, want)
	for i := 0; i < want; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("reply field %d %q: %w", i, fields[i], optic.ErrSessionFailure)
		}
		out[i] = v
	}
	return out, nil
}

// parseSurface decodes the composite tab-separated GetSurface reply:
// type, thickness, glass, comment, p1..p6.
func parseSurface(reply string) (optic.Surface, error) {
	if msg, ok := strings.CutPrefix(reply, errPrefix); ok {
		msg = strings.TrimSpace(msg)
		if strings.Contains(msg, "out of range") {
			return optic.Surface{}, fmt.Errorf("remote: %s: %w", msg, optic.ErrIndexOutOfRange)
		}
		return optic.Surface{}, fmt.Errorf("remote: %s: %w", msg, optic.ErrSessionFailure)
	}
	fields := strings.Split(strings.TrimRight(reply, "\r\n"), "\t")
	if len(fields) < 4+optic.ParamCount {
		return optic.Surface{}, fmt.Errorf("surface reply has %d fields: %w", len(fields), optic.ErrSessionFailure)
	}
	var s optic.Surface
	s.Kind = kindFromName(fields[0])
	thick, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return optic.Surface{}, fmt.Errorf("surface thickness %q: %w", fields[1], optic.ErrSessionFailure)
	}
	s.Thickness = thick
	s.Glass = fields[2]
	s.Comment = fields[3]
	for i := 0; i < optic.ParamCount; i++ {
		v, err := strconv.ParseFloat(fields[4+i], 64)
		if err != nil {
			return optic.Surface{}, fmt.Errorf("surface parameter %d %q: %w", i+1, fields[4+i], optic.ErrSessionFailure)
		}
		s.Parameters[i] = v
	}
	return s, nil
}

func kindFromName(name string) optic.Kind {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "COORDBRK":
		return optic.KindCoordinateBreak
	case "PARAXIAL":
		return optic.KindParaxial
	default:
		return optic.KindStandard
	}
}
