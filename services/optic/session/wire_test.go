// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halide-optics/zlink/services/optic"
)

func TestBuildItem(t *testing.T) {
	assert.Equal(t, "GetUpdate", buildItem("GetUpdate"))
	assert.Equal(t, "SetSurfaceData,3,1,hello", buildItem("SetSurfaceData", "3", "1", "hello"))
}

func TestParseReply(t *testing.T) {
	t.Run("splits comma fields", func(t *testing.T) {
		fields, err := parseReply("1,2.5,OK\r\n")
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2.5", "OK"}, fields)
	})

	t.Run("remote error", func(t *testing.T) {
		_, err := parseReply("ERR: surface editor is busy")
		assert.ErrorIs(t, err, optic.ErrSessionFailure)
		assert.ErrorContains(t, err, "surface editor is busy")
	})

	t.Run("out of range maps to the index sentinel", func(t *testing.T) {
		_, err := parseReply("ERR: surface 99 out of range")
		assert.ErrorIs(t, err, optic.ErrIndexOutOfRange)
	})
}

func TestParseFloats(t *testing.T) {
	t.Run("parses wanted prefix", func(t *testing.T) {
		v, err := parseFloats([]string{"1", " 2.5", "junk"}, 2)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2.5}, v)
	})

	t.Run("too few fields", func(t *testing.T) {
		_, err := parseFloats([]string{"1"}, 2)
		assert.ErrorIs(t, err, optic.ErrSessionFailure)
	})

	t.Run("non-numeric field", func(t *testing.T) {
		_, err := parseFloats([]string{"x"}, 1)
		assert.ErrorIs(t, err, optic.ErrSessionFailure)
	})
}

func TestParseSurface(t *testing.T) {
	t.Run("composite reply", func(t *testing.T) {
		s, err := parseSurface("COORDBRK\t-2.5\t\tPivot: tilt, decentre\t0.4\t-0.2\t3\t-1.5\t0\t1\r\n")
		require.NoError(t, err)
		assert.Equal(t, optic.KindCoordinateBreak, s.Kind)
		assert.Equal(t, -2.5, s.Thickness)
		assert.Equal(t, "", s.Glass)
		// Tab separation lets the comment carry commas.
		assert.Equal(t, "Pivot: tilt, decentre", s.Comment)
		assert.Equal(t, [6]float64{0.4, -0.2, 3, -1.5, 0, 1}, s.Parameters)
	})

	t.Run("remote error", func(t *testing.T) {
		_, err := parseSurface("ERR: surface 40 out of range")
		assert.ErrorIs(t, err, optic.ErrIndexOutOfRange)
	})

	t.Run("truncated reply", func(t *testing.T) {
		_, err := parseSurface("STANDARD\t1.0\tN-BK7")
		assert.ErrorIs(t, err, optic.ErrSessionFailure)
	})
}

func TestKindFromName(t *testing.T) {
	assert.Equal(t, optic.KindCoordinateBreak, kindFromName(" coordbrk "))
	assert.Equal(t, optic.KindParaxial, kindFromName("PARAXIAL"))
	assert.Equal(t, optic.KindStandard, kindFromName("STANDARD"))
	assert.Equal(t, optic.KindStandard, kindFromName("EVENASPH"))
}
