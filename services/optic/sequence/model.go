// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sequence holds the in-memory surface sequence model: the ordered
// collection of optical surfaces plus the absolute-index arithmetic required
// when surfaces are inserted into the middle of the sequence.
//
// InsertAt is the model's only structural mutation. It owns the renumbering
// of every live surface-index reference stored in a constraint anywhere in
// the sequence, collapsing what would otherwise be ad hoc offset arithmetic
// scattered through callers into one audited operation.
package sequence

import (
	"fmt"

	"github.com/halide-optics/zlink/services/optic"
	"github.com/halide-optics/zlink/services/optic/solve"
)

type entry struct {
	surf   optic.Surface
	solves map[solve.Slot]solve.Constraint
}

func newEntry() *entry {
	return &entry{solves: make(map[solve.Slot]solve.Constraint)}
}

// Model is an ordered, 1-based sequence of surfaces with attached solves.
// It is not safe for concurrent use; callers composing transforms must
// serialize them.
type Model struct {
	entries []*entry
}

// New returns a model of n attribute-default standard surfaces.
func New(n int) *Model {
	m := &Model{entries: make([]*entry, 0, n)}
	for i := 0; i < n; i++ {
		m.entries = append(m.entries, newEntry())
	}
	return m
}

// Len returns the current number of surfaces.
func (m *Model) Len() int { return len(m.entries) }

func (m *Model) entryAt(index int) (*entry, error) {
	if index < 1 || index > len(m.entries) {
		return nil, fmt.Errorf("surface %d of %d: %w", index, len(m.entries), optic.ErrIndexOutOfRange)
	}
	return m.entries[index-1], nil
}

// InsertAt inserts a new attribute-default surface at the 1-based index,
// shifting every surface previously at or above that position up by one.
// Every integral surface reference held by any constraint in the sequence
// that points at or above the insertion point is incremented by one.
//
// index may be Len()+1, which appends. Anything else outside the sequence
// fails with optic.ErrIndexOutOfRange and leaves the model untouched.
func (m *Model) InsertAt(index int) error {
	if index < 1 || index > len(m.entries)+1 {
		return fmt.Errorf("insert at %d of %d: %w", index, len(m.entries), optic.ErrIndexOutOfRange)
	}
	m.entries = append(m.entries, nil)
	copy(m.entries[index:], m.entries[index-1:])
	m.entries[index-1] = newEntry()

	for _, e := range m.entries {
		for slot, c := range e.solves {
			e.solves[slot] = c.Shifted(index, 1)
		}
	}
	return nil
}

// Surface returns a copy of the surface at the 1-based index with its Index
// field set to the current position.
func (m *Model) Surface(index int) (optic.Surface, error) {
	e, err := m.entryAt(index)
	if err != nil {
		return optic.Surface{}, err
	}
	s := e.surf
	s.Index = index
	return s, nil
}

// SetThickness stores the axial thickness of the surface.
func (m *Model) SetThickness(index int, v float64) error {
	e, err := m.entryAt(index)
	if err != nil {
		return err
	}
	e.surf.Thickness = v
	return nil
}

// SetComment stores the surface comment.
func (m *Model) SetComment(index int, comment string) error {
	e, err := m.entryAt(index)
	if err != nil {
		return err
	}
	e.surf.Comment = comment
	return nil
}

// SetKind stores the surface type.
func (m *Model) SetKind(index int, k optic.Kind) error {
	e, err := m.entryAt(index)
	if err != nil {
		return err
	}
	e.surf.Kind = k
	return nil
}

// SetGlass stores the material assignment.
func (m *Model) SetGlass(index int, glass string) error {
	e, err := m.entryAt(index)
	if err != nil {
		return err
	}
	e.surf.Glass = glass
	return nil
}

// SetParameter stores the 1-based parameter slot value.
func (m *Model) SetParameter(index, param int, v float64) error {
	e, err := m.entryAt(index)
	if err != nil {
		return err
	}
	if param < 1 || param > optic.ParamCount {
		return fmt.Errorf("parameter %d: %w", param, optic.ErrIndexOutOfRange)
	}
	e.surf.SetParameter(param, v)
	return nil
}

// Solve returns the constraint attached to the (surface, slot) pair. An
// unset slot reads as Fixed(current stored value): every attribute always
// has some resolved value even absent an explicit solve.
func (m *Model) Solve(index int, slot solve.Slot) (solve.Constraint, error) {
	e, err := m.entryAt(index)
	if err != nil {
		return solve.Constraint{}, err
	}
	if c, ok := e.solves[slot]; ok {
		return c, nil
	}
	return solve.Fixed(m.storedValue(e, slot)), nil
}

// SetSolve attaches a constraint to the (surface, slot) pair, fully
// replacing any existing one. Writing a fixed solve also writes its literal
// into the backing attribute, matching the editor's behavior.
func (m *Model) SetSolve(index int, slot solve.Slot, c solve.Constraint) error {
	e, err := m.entryAt(index)
	if err != nil {
		return err
	}
	e.solves[slot] = c
	if c.Kind == solve.KindFixed {
		switch {
		case slot == solve.SlotThickness:
			e.surf.Thickness = c.Value
		case slot.IsParam():
			e.surf.SetParameter(slot.ParamIndex(), c.Value)
		}
	}
	return nil
}

func (m *Model) storedValue(e *entry, slot solve.Slot) float64 {
	switch {
	case slot == solve.SlotThickness:
		return e.surf.Thickness
	case slot.IsParam():
		return e.surf.Parameter(slot.ParamIndex())
	default:
		return 0
	}
}
