// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package solve models the constraint ("solve") attached to a numeric
// surface attribute: a fixed value, a free optimization variable, a pickup
// from another surface's attribute, a cumulative-position solve, or a glass
// pickup.
//
// The design session stores solves as a loosely typed record of
// solve-type code plus up to four numeric parameters. This package replaces
// that with a tagged variant so each constraint carries only the fields it
// needs, and so reference renumbering after a surface insertion is a single
// switch instead of positional probing of a numeric tuple.
package solve

import "math"

// Slot identifies the surface attribute a solve is attached to, using the
// editor's column numbering.
type Slot int

const (
	SlotCurvature    Slot = 0
	SlotGlass        Slot = 1
	SlotThickness    Slot = 2
	SlotSemiDiameter Slot = 3
	SlotConic        Slot = 4
)

// Param returns the slot for the 1-based surface parameter n.
func Param(n int) Slot { return Slot(4 + n) }

// IsParam reports whether the slot addresses a surface parameter.
func (s Slot) IsParam() bool { return s > SlotConic }

// ParamIndex returns the 1-based parameter number for a parameter slot,
// or 0 for non-parameter slots.
func (s Slot) ParamIndex() int {
	if !s.IsParam() {
		return 0
	}
	return int(s - SlotConic)
}

// Kind tags the constraint variant.
type Kind int

const (
	// KindFixed holds a literal value with no dependency.
	KindFixed Kind = iota

	// KindVariable marks the attribute free for downstream optimization.
	KindVariable

	// KindPickup derives the attribute as offset + scale * source value.
	KindPickup

	// KindPosition solves a thickness so the vertex following this surface
	// lands at the reference surface's cumulative axial position plus an
	// offset, regardless of the thicknesses in between.
	KindPosition

	// KindGlassPickup copies the material assignment of another surface.
	KindGlassPickup

	// KindOpaque preserves a solve record whose type code this package does
	// not model. The raw code and payload round-trip unchanged; migration
	// across insertions consults the classification table.
	KindOpaque
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindVariable:
		return "variable"
	case KindPickup:
		return "pickup"
	case KindPosition:
		return "position"
	case KindGlassPickup:
		return "glass-pickup"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Constraint is a solve attached to one (surface, slot) pair.
//
// Ref is the raw surface-reference payload. The session stores it as a real
// number: integral values are surface indices, anything else is a literal or
// macro token and must never be renumbered.
type Constraint struct {
	Kind    Kind
	Value   float64    // KindFixed literal
	Ref     float64    // reference payload (pickup, position, glass pickup)
	RefSlot Slot       // pickup source column
	Offset  float64    // pickup / position offset
	Scale   float64    // pickup scale factor
	Code    int        // raw solve-type code (KindOpaque)
	Params  [4]float64 // raw payload (KindOpaque)
}

// Fixed returns a literal-value constraint.
func Fixed(v float64) Constraint {
	return Constraint{Kind: KindFixed, Value: v}
}

// Variable returns a free-variable constraint.
func Variable() Constraint {
	return Constraint{Kind: KindVariable}
}

// Pickup returns a constraint deriving the attribute as
// offset + scale * (value of slot `from` on surface ref).
func Pickup(ref int, from Slot, offset, scale float64) Constraint {
	return Constraint{Kind: KindPickup, Ref: float64(ref), RefSlot: from, Offset: offset, Scale: scale}
}

// Position returns a thickness constraint that places the following vertex
// at the cumulative axial position of surface ref plus offset.
func Position(ref int, offset float64) Constraint {
	return Constraint{Kind: KindPosition, Ref: float64(ref), Offset: offset}
}

// GlassPickup returns a constraint copying the material of surface ref.
func GlassPickup(ref int) Constraint {
	return Constraint{Kind: KindGlassPickup, Ref: float64(ref)}
}

// Opaque returns a constraint preserving an unmodelled solve record.
func Opaque(code int, params [4]float64) Constraint {
	return Constraint{Kind: KindOpaque, Code: code, Params: params}
}

// RefSurface returns the constraint's surface reference as an index, and
// whether the reference is an actual integer surface index. Non-integral
// payloads (macro tokens, literals) report false.
func (c Constraint) RefSurface() (int, bool) {
	switch c.Kind {
	case KindPickup, KindPosition, KindGlassPickup:
		if isIntegral(c.Ref) {
			return int(c.Ref), true
		}
	}
	return 0, false
}

func isIntegral(v float64) bool {
	return v == math.Trunc(v) && !math.IsInf(v, 0) && !math.IsNaN(v)
}
