// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package controller wraps a design session in prescription-level
// conveniences: ray traces, optimizer runs, comment edits, coordinate-break
// parameter access, field and wavelength table setup.
//
// The hosted application keeps two copies of the prescription, the computed
// model behind the command link and the lens data editor the user sees.
// Every mutating convenience ends by re-synchronizing the two, so callers
// never observe an editor that disagrees with the model.
package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/halide-optics/zlink/services/optic"
	"github.com/halide-optics/zlink/services/optic/session"
	"github.com/halide-optics/zlink/services/optic/solve"
)

// ImageSurface selects the image surface in a ray trace request.
const ImageSurface = -1

// Controller is a convenience layer over a full design session.
type Controller struct {
	sess session.Session
	log  *slog.Logger
}

// New returns a controller over the given session. A nil logger falls back
// to slog.Default().
func New(sess session.Session, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{sess: sess, log: log}
}

// PushToEditor recomputes the model and pushes it into the lens data
// editor.
func (c *Controller) PushToEditor(ctx context.Context) error {
	if err := c.recompute(ctx); err != nil {
		return err
	}
	if err := c.sess.PushLens(ctx); err != nil {
		return fmt.Errorf("push lens: %w", err)
	}
	return nil
}

// PullFromEditor pulls the lens data editor state into the model and
// recomputes.
func (c *Controller) PullFromEditor(ctx context.Context) error {
	if err := c.sess.RefreshLens(ctx); err != nil {
		return fmt.Errorf("refresh lens: %w", err)
	}
	return c.recompute(ctx)
}

// recompute runs a merit-only optimizer pass and a synchronize, which is
// how the host application refreshes all solved values.
func (c *Controller) recompute(ctx context.Context) error {
	if _, err := c.sess.Optimize(ctx, -1); err != nil {
		return fmt.Errorf("merit update: %w", err)
	}
	if err := c.sess.Sync(ctx); err != nil {
		return fmt.Errorf("synchronize: %w", err)
	}
	return nil
}

// Raytrace traces a single ray. Surface defaults to the image surface when
// left zero by callers who do not care about intermediates; pass
// ImageSurface explicitly for clarity.
func (c *Controller) Raytrace(ctx context.Context, req session.TraceRequest) (session.TraceResult, error) {
	if req.WaveNumber < 1 {
		req.WaveNumber = 1
	}
	if req.Surface == 0 {
		req.Surface = ImageSurface
	}
	return c.sess.Trace(ctx, req)
}

// Optimize runs the damped least squares optimizer for the given number of
// cycles (0 means automatic) and returns the merit function value.
func (c *Controller) Optimize(ctx context.Context, cycles int) (float64, error) {
	v, err := c.sess.Optimize(ctx, cycles)
	if err != nil {
		return 0, fmt.Errorf("optimize: %w", err)
	}
	c.log.Info("optimizer run complete", "cycles", cycles, "merit", v)
	return v, nil
}

// LoadLens loads a lens file into the model and pushes it to the editor.
func (c *Controller) LoadLens(ctx context.Context, path string) error {
	if err := c.sess.LoadLens(ctx, path); err != nil {
		return fmt.Errorf("load lens %s: %w", path, err)
	}
	return c.PushToEditor(ctx)
}

// Comment returns the surface comment.
func (c *Controller) Comment(ctx context.Context, surf int) (string, error) {
	s, err := c.sess.Surface(ctx, surf)
	if err != nil {
		return "", err
	}
	return s.Comment, nil
}

// SetComment writes the surface comment. With append set, the new text is
// prepended to the existing comment with a semicolon separator, preserving
// the edit history in the editor cell.
func (c *Controller) SetComment(ctx context.Context, surf int, comment string, append bool) error {
	if append {
		old, err := c.Comment(ctx, surf)
		if err != nil {
			return err
		}
		if old != "" {
			comment = comment + ";" + old
		}
	}
	if err := c.sess.SetComment(ctx, surf, comment); err != nil {
		return err
	}
	return c.PushToEditor(ctx)
}

// BreakOffsets holds a coordinate break's decentres and tilts.
type BreakOffsets struct {
	DecentreX float64
	DecentreY float64
	TiltX     float64
	TiltY     float64
}

// BreakOffsets reads a coordinate break's decentre and tilt parameters.
func (c *Controller) BreakOffsets(ctx context.Context, surf int) (BreakOffsets, error) {
	var out BreakOffsets
	for _, p := range []struct {
		slot int
		dst  *float64
	}{
		{optic.ParamDecentreX, &out.DecentreX},
		{optic.ParamDecentreY, &out.DecentreY},
		{optic.ParamTiltX, &out.TiltX},
		{optic.ParamTiltY, &out.TiltY},
	} {
		v, err := c.sess.Parameter(ctx, surf, p.slot)
		if err != nil {
			return BreakOffsets{}, err
		}
		*p.dst = v
	}
	return out, nil
}

// SetBreakDecentre writes a coordinate break's decentre parameters.
func (c *Controller) SetBreakDecentre(ctx context.Context, surf int, x, y float64) error {
	if err := c.sess.SetParameter(ctx, surf, optic.ParamDecentreX, x); err != nil {
		return err
	}
	if err := c.sess.SetParameter(ctx, surf, optic.ParamDecentreY, y); err != nil {
		return err
	}
	return c.PushToEditor(ctx)
}

// SetBreakTilt writes a coordinate break's tilt parameters.
func (c *Controller) SetBreakTilt(ctx context.Context, surf int, x, y float64) error {
	if err := c.sess.SetParameter(ctx, surf, optic.ParamTiltX, x); err != nil {
		return err
	}
	if err := c.sess.SetParameter(ctx, surf, optic.ParamTiltY, y); err != nil {
		return err
	}
	return c.PushToEditor(ctx)
}

// SetBreakDecentreVariable toggles the optimizer's hold on a coordinate
// break's decentre pair.
func (c *Controller) SetBreakDecentreVariable(ctx context.Context, surf int, variable bool) error {
	return c.setParamSolves(ctx, surf, variable, optic.ParamDecentreX, optic.ParamDecentreY)
}

// SetBreakTiltVariable toggles the optimizer's hold on a coordinate break's
// tilt pair.
func (c *Controller) SetBreakTiltVariable(ctx context.Context, surf int, variable bool) error {
	return c.setParamSolves(ctx, surf, variable, optic.ParamTiltX, optic.ParamTiltY)
}

func (c *Controller) setParamSolves(ctx context.Context, surf int, variable bool, params ...int) error {
	for _, p := range params {
		cons := solve.Variable()
		if !variable {
			v, err := c.sess.Parameter(ctx, surf, p)
			if err != nil {
				return err
			}
			cons = solve.Fixed(v)
		}
		if err := c.sess.SetSolve(ctx, surf, solve.Param(p), cons); err != nil {
			return fmt.Errorf("parameter %d solve on %d: %w", p, surf, err)
		}
	}
	return c.PushToEditor(ctx)
}

// SetThicknessVariable releases a surface thickness to the optimizer.
func (c *Controller) SetThicknessVariable(ctx context.Context, surf int) error {
	if err := c.sess.SetSolve(ctx, surf, solve.SlotThickness, solve.Variable()); err != nil {
		return fmt.Errorf("thickness solve on %d: %w", surf, err)
	}
	return c.PushToEditor(ctx)
}

// Field is one row of the field table.
type Field struct {
	X float64
	Y float64
}

// Field type enumeration of the host application.
const (
	FieldObjectAngle         = 0
	FieldObjectHeight        = 1
	FieldParaxialImageHeight = 2
	FieldRealImageHeight     = 3
)

// SetupFields replaces the field table. fieldType must be one of the four
// enumeration values; anything else fails with optic.ErrInvalidFieldType.
func (c *Controller) SetupFields(ctx context.Context, fieldType int, fields []Field) error {
	if fieldType < FieldObjectAngle || fieldType > FieldRealImageHeight {
		return fmt.Errorf("field type %d: %w", fieldType, optic.ErrInvalidFieldType)
	}
	if err := c.sess.SetSystemProperty(ctx, session.PropFieldType, float64(fieldType)); err != nil {
		return fmt.Errorf("field type: %w", err)
	}
	if err := c.sess.SetSystemProperty(ctx, session.PropFieldCount, float64(len(fields))); err != nil {
		return fmt.Errorf("field count: %w", err)
	}
	for i, f := range fields {
		row := float64(i + 1)
		if err := c.sess.SetSystemProperty(ctx, session.PropFieldX, row, f.X); err != nil {
			return fmt.Errorf("field %d x: %w", i+1, err)
		}
		if err := c.sess.SetSystemProperty(ctx, session.PropFieldY, row, f.Y); err != nil {
			return fmt.Errorf("field %d y: %w", i+1, err)
		}
	}
	return c.PushToEditor(ctx)
}

// SetupWavelengths replaces the wavelength table with values from start to
// end inclusive in steps of inc (microns, the host default unit). It
// returns the values written in table order.
func (c *Controller) SetupWavelengths(ctx context.Context, start, end, inc float64) ([]float64, error) {
	if inc <= 0 || end < start {
		return nil, fmt.Errorf("wavelength range %g..%g step %g: %w", start, end, inc, optic.ErrIndexOutOfRange)
	}
	var waves []float64
	for w := start; w <= end+inc/2; w += inc {
		waves = append(waves, w)
	}
	if err := c.sess.SetSystemProperty(ctx, session.PropWaveCount, float64(len(waves))); err != nil {
		return nil, fmt.Errorf("wavelength count: %w", err)
	}
	for i, w := range waves {
		if err := c.sess.SetSystemProperty(ctx, session.PropWaveValue, float64(i+1), w); err != nil {
			return nil, fmt.Errorf("wavelength %d: %w", i+1, err)
		}
	}
	if err := c.PushToEditor(ctx); err != nil {
		return nil, err
	}
	return waves, nil
}

// SystemInfo returns general system data.
func (c *Controller) SystemInfo(ctx context.Context) (session.SystemInfo, error) {
	return c.sess.SystemInfo(ctx)
}

// FirstOrder returns the first-order lens data.
func (c *Controller) FirstOrder(ctx context.Context) (session.FirstOrder, error) {
	return c.sess.FirstOrder(ctx)
}

// Wavelength returns one wavelength table row.
func (c *Controller) Wavelength(ctx context.Context, index int) (session.Wavelength, error) {
	return c.sess.Wavelength(ctx, index)
}
