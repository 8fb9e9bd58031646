// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package optic defines the shared surface model for the zlink toolkit.
//
// A lens prescription is an ordered, 1-based sequence of surfaces. Every
// subpackage (sequence model, remote session, pivot synthesizer) works in
// terms of the types declared here.
package optic

// Kind identifies the surface type in the lens data editor.
type Kind int

const (
	// KindStandard is an ordinary refracting or dummy surface.
	KindStandard Kind = iota

	// KindCoordinateBreak is a zero-thickness surface that applies a
	// decentre/tilt transform to the local frame of subsequent surfaces.
	KindCoordinateBreak

	// KindParaxial is an ideal thin lens surface.
	KindParaxial
)

// String returns the editor name of the surface kind.
func (k Kind) String() string {
	switch k {
	case KindStandard:
		return "STANDARD"
	case KindCoordinateBreak:
		return "COORDBRK"
	case KindParaxial:
		return "PARAXIAL"
	default:
		return "UNKNOWN"
	}
}

// ParamCount is the number of numeric parameter slots carried by a surface.
// Parameter slots are 1-based; their meaning depends on the surface kind.
const ParamCount = 6

// Coordinate-break parameter slots (1-based). Only meaningful when the
// surface kind is KindCoordinateBreak.
const (
	ParamDecentreX = 1
	ParamDecentreY = 2
	ParamTiltX     = 3
	ParamTiltY     = 4
	ParamTiltFlag  = 5
	ParamOrder     = 6
)

// Surface is one element of the ordered optical sequence.
//
// Index is the surface's current 1-based position. It shifts when surfaces
// are inserted below it; holders of a Surface value must treat Index as a
// snapshot, not a stable identity.
type Surface struct {
	Index      int
	Kind       Kind
	Thickness  float64
	Comment    string
	Glass      string
	Parameters [ParamCount]float64
}

// Parameter returns the value of the 1-based parameter slot.
// Slots outside [1, ParamCount] return 0.
func (s Surface) Parameter(slot int) float64 {
	if slot < 1 || slot > ParamCount {
		return 0
	}
	return s.Parameters[slot-1]
}

// SetParameter stores v in the 1-based parameter slot. Slots outside
// [1, ParamCount] are ignored.
func (s *Surface) SetParameter(slot int, v float64) {
	if slot < 1 || slot > ParamCount {
		return
	}
	s.Parameters[slot-1] = v
}
