// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package solve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halide-optics/zlink/services/optic"
)

func TestShifted(t *testing.T) {
	t.Run("reference at insertion point moves up", func(t *testing.T) {
		c := Pickup(4, SlotThickness, 0, -1).Shifted(4, 1)
		ref, ok := c.RefSurface()
		require.True(t, ok)
		assert.Equal(t, 5, ref)
	})

	t.Run("reference above insertion point moves up", func(t *testing.T) {
		c := Position(9, 0).Shifted(4, 2)
		ref, ok := c.RefSurface()
		require.True(t, ok)
		assert.Equal(t, 11, ref)
	})

	t.Run("reference below insertion point is untouched", func(t *testing.T) {
		c := Pickup(3, SlotThickness, 0, -1).Shifted(4, 1)
		ref, ok := c.RefSurface()
		require.True(t, ok)
		assert.Equal(t, 3, ref)
	})

	t.Run("glass pickup reference moves up", func(t *testing.T) {
		c := GlassPickup(6).Shifted(2, 1)
		ref, ok := c.RefSurface()
		require.True(t, ok)
		assert.Equal(t, 7, ref)
	})

	t.Run("non-integral reference is never renumbered", func(t *testing.T) {
		c := Constraint{Kind: KindPickup, Ref: 5.25, Scale: 1}
		assert.Equal(t, 5.25, c.Shifted(4, 1).Ref)
	})

	t.Run("fixed and variable are untouched", func(t *testing.T) {
		assert.Equal(t, Fixed(3), Fixed(3).Shifted(1, 1))
		assert.Equal(t, Variable(), Variable().Shifted(1, 1))
	})

	t.Run("opaque with table entry shifts its payload reference", func(t *testing.T) {
		c := Opaque(ThickCompensator, [4]float64{5, 0.5}).Shifted(4, 1)
		assert.Equal(t, 6.0, c.Params[0])
	})

	t.Run("opaque without table entry is untouched", func(t *testing.T) {
		c := Opaque(99, [4]float64{5}).Shifted(4, 1)
		assert.Equal(t, 5.0, c.Params[0])
	})
}

func TestMigrate(t *testing.T) {
	t.Run("increments by exactly one", func(t *testing.T) {
		got, err := Migrate(Pickup(4, SlotThickness, 0, 1), 4)
		require.NoError(t, err)
		ref, ok := got.RefSurface()
		require.True(t, ok)
		assert.Equal(t, 5, ref)
	})

	t.Run("reference below insertion copied unchanged", func(t *testing.T) {
		got, err := Migrate(Position(2, 0), 4)
		require.NoError(t, err)
		ref, ok := got.RefSurface()
		require.True(t, ok)
		assert.Equal(t, 2, ref)
	})

	t.Run("macro token copied unchanged", func(t *testing.T) {
		c := Constraint{Kind: KindPickup, Ref: 6.5, Scale: 1}
		got, err := Migrate(c, 4)
		require.NoError(t, err)
		assert.Equal(t, 6.5, got.Ref)
	})

	t.Run("unknown opaque code is refused", func(t *testing.T) {
		_, err := Migrate(Opaque(42, [4]float64{5}), 4)
		require.Error(t, err)
		assert.ErrorIs(t, err, optic.ErrInvalidConstraintReference)
	})

	t.Run("known value-only opaque code copied unchanged", func(t *testing.T) {
		c := Opaque(ThickEdge, [4]float64{1, 2})
		got, err := Migrate(c, 1)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	})
}

// TestClassificationTable pins the renumbering table: every solve-type code
// the host application defines for thickness must be present, with the
// reference-bearing ones mapped to their payload position.
func TestClassificationTable(t *testing.T) {
	refBearing := map[int]int{
		ThickPickup:          0,
		ThickPosition:        0,
		ThickCompensator:     0,
		ThickCenterCurvature: 0,
	}
	valueOnly := []int{
		ThickFixed, ThickVariable, ThickMarginalRayHeight, ThickChiefRayHeight,
		ThickEdge, ThickOPD, ThickPupilPosition,
	}

	for code, wantIdx := range refBearing {
		idx, ok := classifyThickness(code)
		require.True(t, ok, "code %d missing from table", code)
		assert.Equal(t, wantIdx, idx, "code %d", code)
	}
	for _, code := range valueOnly {
		idx, ok := classifyThickness(code)
		require.True(t, ok, "code %d missing from table", code)
		assert.Equal(t, -1, idx, "code %d", code)
	}
	assert.Len(t, thicknessRefParam, len(refBearing)+len(valueOnly))

	_, ok := classifyThickness(42)
	assert.False(t, ok)
}
