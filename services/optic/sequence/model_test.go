// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halide-optics/zlink/services/optic"
	"github.com/halide-optics/zlink/services/optic/solve"
)

func TestModel_Bounds(t *testing.T) {
	m := New(3)

	t.Run("read below range", func(t *testing.T) {
		_, err := m.Surface(0)
		assert.ErrorIs(t, err, optic.ErrIndexOutOfRange)
	})

	t.Run("read above range", func(t *testing.T) {
		_, err := m.Surface(4)
		assert.ErrorIs(t, err, optic.ErrIndexOutOfRange)
	})

	t.Run("insert appends at len+1", func(t *testing.T) {
		require.NoError(t, m.InsertAt(4))
		assert.Equal(t, 4, m.Len())
	})

	t.Run("insert beyond len+1 fails and leaves model untouched", func(t *testing.T) {
		err := m.InsertAt(9)
		assert.ErrorIs(t, err, optic.ErrIndexOutOfRange)
		assert.Equal(t, 4, m.Len())
	})
}

func TestModel_InsertShiftsSurfaces(t *testing.T) {
	m := New(3)
	require.NoError(t, m.SetComment(2, "middle"))
	require.NoError(t, m.SetThickness(2, 7))

	require.NoError(t, m.InsertAt(2))

	require.Equal(t, 4, m.Len())

	inserted, err := m.Surface(2)
	require.NoError(t, err)
	assert.Equal(t, optic.Surface{Index: 2, Kind: optic.KindStandard}, inserted)

	moved, err := m.Surface(3)
	require.NoError(t, err)
	assert.Equal(t, "middle", moved.Comment)
	assert.Equal(t, 7.0, moved.Thickness)
	assert.Equal(t, 3, moved.Index)
}

func TestModel_InsertRenumbersConstraintReferences(t *testing.T) {
	m := New(5)
	// Surface 5 picks up from 3; surface 4 position-solves against 2.
	require.NoError(t, m.SetSolve(5, solve.SlotThickness, solve.Pickup(3, solve.SlotThickness, 0, 1)))
	require.NoError(t, m.SetSolve(4, solve.SlotThickness, solve.Position(2, 0)))

	require.NoError(t, m.InsertAt(3))

	// The pickup followed its source up; the position solve's reference
	// was below the insertion point and stayed put.
	c, err := m.Solve(6, solve.SlotThickness)
	require.NoError(t, err)
	ref, ok := c.RefSurface()
	require.True(t, ok)
	assert.Equal(t, 4, ref)

	c, err = m.Solve(5, solve.SlotThickness)
	require.NoError(t, err)
	ref, ok = c.RefSurface()
	require.True(t, ok)
	assert.Equal(t, 2, ref)
}

func TestModel_SolveDefaultsToFixedStoredValue(t *testing.T) {
	m := New(2)
	require.NoError(t, m.SetThickness(1, 4.5))
	require.NoError(t, m.SetParameter(2, 3, 1.5))

	c, err := m.Solve(1, solve.SlotThickness)
	require.NoError(t, err)
	assert.Equal(t, solve.Fixed(4.5), c)

	c, err = m.Solve(2, solve.Param(3))
	require.NoError(t, err)
	assert.Equal(t, solve.Fixed(1.5), c)
}

func TestModel_SetSolveReplacesAndWritesFixed(t *testing.T) {
	m := New(2)
	require.NoError(t, m.SetThickness(1, 9))
	require.NoError(t, m.SetSolve(1, solve.SlotThickness, solve.Variable()))

	// A write fully replaces the previous solve.
	require.NoError(t, m.SetSolve(1, solve.SlotThickness, solve.Fixed(0)))

	c, err := m.Solve(1, solve.SlotThickness)
	require.NoError(t, err)
	assert.Equal(t, solve.KindFixed, c.Kind)

	s, err := m.Surface(1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Thickness, "fixing writes the literal into the attribute")
}

func TestModel_SetParameterBounds(t *testing.T) {
	m := New(1)
	assert.ErrorIs(t, m.SetParameter(1, 0, 1), optic.ErrIndexOutOfRange)
	assert.ErrorIs(t, m.SetParameter(1, 7, 1), optic.ErrIndexOutOfRange)
	assert.NoError(t, m.SetParameter(1, 6, 1))
}
