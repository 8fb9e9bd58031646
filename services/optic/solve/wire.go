// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package solve

// Solve-type codes as stored by the design session, per attribute class.
// The numbering follows the host application's GetSolve/SetSolve item
// grammar and must not be reordered.
const (
	// Thickness solve types.
	ThickFixed             = 0
	ThickVariable          = 1
	ThickMarginalRayHeight = 2
	ThickChiefRayHeight    = 3
	ThickEdge              = 4
	ThickPickup            = 5
	ThickOPD               = 6
	ThickPosition          = 7
	ThickCompensator       = 8
	ThickCenterCurvature   = 9
	ThickPupilPosition     = 10

	// Glass solve types.
	GlassFixed      = 0
	GlassModel      = 1
	GlassPickupCode = 2
	GlassSubstitute = 3
	GlassOffsetCode = 4

	// Parameter solve types (coordinate-break parameters included).
	ParFixed    = 0
	ParVariable = 1
	ParPickup   = 2
	ParChiefRay = 3
)

// thicknessRefParam is the classification table for thickness solve types:
// it maps each known code to the payload position of the surface reference
// it carries, or -1 when the payload holds no surface reference.
//
// A code absent from this table cannot be migrated across an insertion: the
// payload may or may not embed a surface index, and guessing silently
// corrupts the constraint chain. Migrate surfaces that case as
// optic.ErrInvalidConstraintReference instead of passing it through.
var thicknessRefParam = map[int]int{
	ThickFixed:             -1,
	ThickVariable:          -1,
	ThickMarginalRayHeight: -1,
	ThickChiefRayHeight:    -1,
	ThickEdge:              -1,
	ThickPickup:            0,
	ThickOPD:               -1,
	ThickPosition:          0,
	ThickCompensator:       0,
	ThickCenterCurvature:   0,
	ThickPupilPosition:     -1,
}

// classifyThickness reports the reference payload position for a thickness
// solve-type code. ok is false for codes absent from the table.
func classifyThickness(code int) (refParam int, ok bool) {
	refParam, ok = thicknessRefParam[code]
	return refParam, ok
}

// FromRecord builds a Constraint from a raw solve record read off the
// session, interpreting the type code per the attribute slot. Codes this
// package does not model decode to KindOpaque and round-trip losslessly.
//
// Pickup payload layout is (surface, scale, offset, column); position is
// (surface, offset); glass pickup is (surface). `current` is the attribute's
// stored value, used for fixed solves so that reading an unset slot yields
// Fixed(current).
func FromRecord(slot Slot, code int, params [4]float64, current float64) Constraint {
	switch {
	case slot == SlotThickness:
		switch code {
		case ThickFixed:
			return Fixed(current)
		case ThickVariable:
			return Variable()
		case ThickPickup:
			return Constraint{
				Kind:    KindPickup,
				Ref:     params[0],
				Scale:   params[1],
				Offset:  params[2],
				RefSlot: Slot(int(params[3])),
			}
		case ThickPosition:
			return Constraint{Kind: KindPosition, Ref: params[0], Offset: params[1]}
		}
	case slot == SlotGlass:
		switch code {
		case GlassFixed:
			return Fixed(current)
		case GlassPickupCode:
			return Constraint{Kind: KindGlassPickup, Ref: params[0]}
		}
	case slot.IsParam() || slot == SlotCurvature || slot == SlotSemiDiameter || slot == SlotConic:
		switch code {
		case ParFixed:
			return Fixed(current)
		case ParVariable:
			return Variable()
		case ParPickup:
			return Constraint{
				Kind:    KindPickup,
				Ref:     params[0],
				Scale:   params[1],
				Offset:  params[2],
				RefSlot: Slot(int(params[3])),
			}
		}
	}
	return Opaque(code, params)
}

// Record returns the raw solve record for writing to the session,
// interpreting the constraint per the attribute slot it will attach to.
func (c Constraint) Record(slot Slot) (code int, params [4]float64) {
	switch c.Kind {
	case KindFixed:
		return fixedCode(slot), [4]float64{c.Value}
	case KindVariable:
		if slot == SlotThickness {
			return ThickVariable, params
		}
		return ParVariable, params
	case KindPickup:
		params = [4]float64{c.Ref, c.Scale, c.Offset, float64(int(c.RefSlot))}
		if slot == SlotThickness {
			return ThickPickup, params
		}
		return ParPickup, params
	case KindPosition:
		return ThickPosition, [4]float64{c.Ref, c.Offset}
	case KindGlassPickup:
		return GlassPickupCode, [4]float64{c.Ref}
	default:
		return c.Code, c.Params
	}
}

func fixedCode(slot Slot) int {
	switch slot {
	case SlotThickness:
		return ThickFixed
	case SlotGlass:
		return GlassFixed
	default:
		return ParFixed
	}
}
