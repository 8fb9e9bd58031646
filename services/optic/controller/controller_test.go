// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halide-optics/zlink/services/optic"
	"github.com/halide-optics/zlink/services/optic/sequence"
	"github.com/halide-optics/zlink/services/optic/session"
	"github.com/halide-optics/zlink/services/optic/solve"
)

func newController(t *testing.T, n int) (*Controller, *session.Memory) {
	t.Helper()
	mem := session.NewMemory(sequence.New(n))
	return New(mem, nil), mem
}

func TestRaytrace_Defaults(t *testing.T) {
	ctrl, mem := newController(t, 3)
	var got session.TraceRequest
	mem.TraceFunc = func(req session.TraceRequest) session.TraceResult {
		got = req
		return session.TraceResult{X: req.Hx, Intensity: 1}
	}

	res, err := ctrl.Raytrace(context.Background(), session.TraceRequest{Hx: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.X)
	assert.Equal(t, 1, got.WaveNumber, "wave number defaults to the first table row")
	assert.Equal(t, ImageSurface, got.Surface, "surface defaults to the image surface")
}

func TestSetComment_Append(t *testing.T) {
	ctrl, mem := newController(t, 3)
	ctx := context.Background()

	require.NoError(t, ctrl.SetComment(ctx, 2, "first pass", false))

	c, err := ctrl.Comment(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "first pass", c)

	// Appending prepends the new text, keeping the history visible.
	require.NoError(t, ctrl.SetComment(ctx, 2, "second pass", true))
	c, err = ctrl.Comment(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "second pass;first pass", c)

	t.Run("append to empty writes plain", func(t *testing.T) {
		require.NoError(t, ctrl.SetComment(ctx, 3, "only", true))
		c, err := ctrl.Comment(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "only", c)
	})

	assert.Greater(t, mem.SyncCount(), 0, "comment writes resynchronize the editor")
}

func TestBreakOffsets_RoundTrip(t *testing.T) {
	ctrl, _ := newController(t, 4)
	ctx := context.Background()

	require.NoError(t, ctrl.SetBreakDecentre(ctx, 2, 0.4, -0.2))
	require.NoError(t, ctrl.SetBreakTilt(ctx, 2, 3, -1.5))

	off, err := ctrl.BreakOffsets(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, BreakOffsets{DecentreX: 0.4, DecentreY: -0.2, TiltX: 3, TiltY: -1.5}, off)
}

func TestSetBreakSolves(t *testing.T) {
	ctrl, mem := newController(t, 4)
	ctx := context.Background()

	require.NoError(t, ctrl.SetBreakDecentreVariable(ctx, 2, true))
	for _, p := range []int{optic.ParamDecentreX, optic.ParamDecentreY} {
		c, err := mem.Model().Solve(2, solve.Param(p))
		require.NoError(t, err)
		assert.Equal(t, solve.KindVariable, c.Kind, "parameter %d", p)
	}

	require.NoError(t, ctrl.SetBreakTiltVariable(ctx, 2, true))
	require.NoError(t, ctrl.SetBreakTiltVariable(ctx, 2, false))
	for _, p := range []int{optic.ParamTiltX, optic.ParamTiltY} {
		c, err := mem.Model().Solve(2, solve.Param(p))
		require.NoError(t, err)
		assert.Equal(t, solve.KindFixed, c.Kind, "parameter %d", p)
	}
}

func TestSetThicknessVariable(t *testing.T) {
	ctrl, mem := newController(t, 3)
	require.NoError(t, ctrl.SetThicknessVariable(context.Background(), 2))

	c, err := mem.Model().Solve(2, solve.SlotThickness)
	require.NoError(t, err)
	assert.Equal(t, solve.KindVariable, c.Kind)
}

func TestSetupFields(t *testing.T) {
	ctrl, mem := newController(t, 3)
	ctx := context.Background()

	fields := []Field{{X: 0, Y: 0}, {X: 0, Y: 0.7}, {X: 0, Y: 1}}
	require.NoError(t, ctrl.SetupFields(ctx, FieldObjectAngle, fields))

	assert.Equal(t, FieldObjectAngle, mem.FieldType())
	assert.Equal(t, 3, mem.FieldCount())
	x, y, ok := mem.Field(2)
	require.True(t, ok)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.7, y)

	t.Run("invalid field type", func(t *testing.T) {
		err := ctrl.SetupFields(ctx, 4, fields)
		assert.ErrorIs(t, err, optic.ErrInvalidFieldType)
	})
}

func TestSetupWavelengths(t *testing.T) {
	ctrl, mem := newController(t, 3)
	ctx := context.Background()

	waves, err := ctrl.SetupWavelengths(ctx, 0.4, 0.7, 0.1)
	require.NoError(t, err)
	require.Len(t, waves, 4)
	assert.InDelta(t, 0.4, waves[0], 1e-12)
	assert.InDelta(t, 0.7, waves[3], 1e-12)
	assert.Equal(t, 4, mem.WaveCount())

	w, err := ctrl.Wavelength(ctx, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, w.Value, 1e-12)

	t.Run("degenerate range", func(t *testing.T) {
		_, err := ctrl.SetupWavelengths(ctx, 0.7, 0.4, 0.1)
		assert.Error(t, err)
		_, err = ctrl.SetupWavelengths(ctx, 0.4, 0.7, 0)
		assert.Error(t, err)
	})
}

func TestLoadLens_PushesToEditor(t *testing.T) {
	ctrl, mem := newController(t, 3)
	require.NoError(t, ctrl.LoadLens(context.Background(), "/lenses/triplet.zmx"))
	assert.Equal(t, "/lenses/triplet.zmx", mem.LoadedLens())
	assert.Equal(t, 1, mem.SyncCount())
}
