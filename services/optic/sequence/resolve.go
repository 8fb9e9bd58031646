// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sequence

import "github.com/halide-optics/zlink/services/optic/solve"

// Positions resolves thickness solves front to back and returns the
// cumulative axial position of each surface vertex: the returned slice has
// length Len()+1 and p[i] is the vertex position of surface i (p[0] is
// unused and zero). Surface 1's vertex is the origin.
//
// Resolution is a single forward pass: a pickup or position solve whose
// reference lies at or after the surface it is attached to falls back to
// the stored thickness. The constraint chains built by the pivot
// synthesizer only reference earlier surfaces, so they resolve exactly.
func (m *Model) Positions() []float64 {
	p := make([]float64, m.Len()+1)
	eff := make([]float64, m.Len()+1)
	z := 0.0
	for i := 1; i <= m.Len(); i++ {
		p[i] = z
		eff[i] = m.effectiveThickness(i, p, eff)
		z += eff[i]
	}
	return p
}

func (m *Model) effectiveThickness(i int, p, eff []float64) float64 {
	e := m.entries[i-1]
	c, ok := e.solves[solve.SlotThickness]
	if !ok {
		return e.surf.Thickness
	}
	switch c.Kind {
	case solve.KindFixed:
		return c.Value
	case solve.KindPickup:
		ref, integral := c.RefSurface()
		if !integral || ref < 1 || ref >= i || c.RefSlot != solve.SlotThickness {
			return e.surf.Thickness
		}
		return c.Offset + c.Scale*eff[ref]
	case solve.KindPosition:
		ref, integral := c.RefSurface()
		if !integral || ref < 1 || ref >= i {
			return e.surf.Thickness
		}
		// Thickness such that the next vertex lands at p[ref] + offset.
		return p[ref] + c.Offset - p[i]
	default:
		return e.surf.Thickness
	}
}

// Update writes resolved solve values back into the stored attributes, the
// way the design session recomputes the editor after a synchronize call:
// thicknesses from Positions, parameter pickups in a forward pass, glass
// pickups by copying the material string.
func (m *Model) Update() {
	p := m.Positions()
	eff := make([]float64, m.Len()+1)
	for i := 1; i <= m.Len(); i++ {
		eff[i] = m.effectiveThickness(i, p, eff)
	}
	for i := 1; i <= m.Len(); i++ {
		e := m.entries[i-1]
		e.surf.Thickness = eff[i]
		for slot, c := range e.solves {
			switch {
			case slot.IsParam() && c.Kind == solve.KindPickup:
				if ref, ok := c.RefSurface(); ok && ref >= 1 && ref <= m.Len() {
					src := m.entries[ref-1].surf
					e.surf.SetParameter(slot.ParamIndex(), c.Offset+c.Scale*src.Parameter(c.RefSlot.ParamIndex()))
				}
			case slot == solve.SlotGlass && c.Kind == solve.KindGlassPickup:
				if ref, ok := c.RefSurface(); ok && ref >= 1 && ref <= m.Len() {
					e.surf.Glass = m.entries[ref-1].surf.Glass
				}
			}
		}
	}
}
