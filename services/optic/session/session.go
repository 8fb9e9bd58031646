// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session defines the collaborator interface to the externally
// hosted optical design application, and its two implementations: Memory,
// an in-process model for tests and offline work, and Link, a client for
// the remote command link.
//
// The synthesizer and controller are stateless between calls; the caller
// owns the session's lifecycle and must guarantee exclusive access for the
// duration of one transform.
package session

import (
	"context"

	"github.com/halide-optics/zlink/services/optic"
	"github.com/halide-optics/zlink/services/optic/solve"
)

// Surfaces is the surface-editing capability consumed by the pivot
// synthesizer: reads and writes by current 1-based index, blank-surface
// insertion, solve access, and a synchronize call that makes written state
// visible to subsequent reads.
type Surfaces interface {
	// Surface reads thickness, comment, type, glass and parameters by index.
	Surface(ctx context.Context, index int) (optic.Surface, error)

	SetThickness(ctx context.Context, index int, v float64) error
	SetComment(ctx context.Context, index int, comment string) error
	SetKind(ctx context.Context, index int, k optic.Kind) error

	// Parameter reads the 1-based surface parameter slot.
	Parameter(ctx context.Context, index, param int) (float64, error)
	SetParameter(ctx context.Context, index, param int, v float64) error

	// Insert places a blank surface at the 1-based index, shifting the
	// surfaces at or above it up by one.
	Insert(ctx context.Context, index int) error

	Solve(ctx context.Context, index int, slot solve.Slot) (solve.Constraint, error)
	SetSolve(ctx context.Context, index int, slot solve.Slot, c solve.Constraint) error

	// Sync recomputes the hosted model so written state is visible to
	// subsequent reads.
	Sync(ctx context.Context) error
}

// System is the whole-system capability: ray traces, optimization, file
// loads, editor synchronization, and the numbered system property table.
type System interface {
	Trace(ctx context.Context, req TraceRequest) (TraceResult, error)

	// Optimize runs the optimizer for the given number of cycles and
	// returns the merit function value. Zero cycles means run until
	// convergence; negative updates the merit function without optimizing.
	Optimize(ctx context.Context, cycles int) (float64, error)

	LoadLens(ctx context.Context, path string) error
	PushLens(ctx context.Context) error
	RefreshLens(ctx context.Context) error

	SystemInfo(ctx context.Context) (SystemInfo, error)
	FirstOrder(ctx context.Context) (FirstOrder, error)
	Wavelength(ctx context.Context, index int) (Wavelength, error)

	SetSystemProperty(ctx context.Context, code int, args ...float64) error
}

// Merit is the merit-function-editor capability.
type Merit interface {
	InsertOperand(ctx context.Context, row int) error

	// DeleteOperand removes the row and returns the number of rows
	// remaining.
	DeleteOperand(ctx context.Context, row int) (int, error)

	SetOperandRow(ctx context.Context, row int, op Operand) error
	Operands(ctx context.Context) ([]Operand, error)

	// ExecuteMacro runs the named editor macro by its 3-letter code.
	ExecuteMacro(ctx context.Context, code string) error

	LoadMerit(ctx context.Context, path string) error
	SaveMerit(ctx context.Context, path string) error
}

// Session is the full collaborator contract.
type Session interface {
	Surfaces
	System
	Merit
}

// System property codes for SetSystemProperty, following the host
// application's numbering.
const (
	PropFieldType  = 100
	PropFieldCount = 101
	PropFieldX     = 102
	PropFieldY     = 103
	PropWaveCount  = 201
	PropWaveValue  = 202
)

// TraceRequest selects a single ray to trace.
type TraceRequest struct {
	// WaveNumber indexes the wavelength table (1-based).
	WaveNumber int
	// Paraxial selects paraxial rather than real ray tracing.
	Paraxial bool
	// Surface is the surface to trace to; -1 traces to the image surface.
	Surface int
	// Hx, Hy are normalized field coordinates.
	Hx, Hy float64
	// Px, Py are normalized pupil coordinates.
	Px, Py float64
}

// TraceResult is the ray data at the target surface.
type TraceResult struct {
	ErrorCode int
	// VignetteCode is the first surface that vignettes the ray, 0 if none.
	VignetteCode int
	X, Y, Z      float64
	// L, M, N are the direction cosines after the target surface.
	L, M, N float64
	// L2, M2, N2 are the surface normal direction cosines.
	L2, M2, N2 float64
	Intensity  float64
}

// SystemInfo is the general system data record.
type SystemInfo struct {
	NumSurfaces    int
	UnitCode       int
	StopSurface    int
	NonAxial       bool
	RayAimingType  int
	Temperature    float64
	Pressure       float64
	GlobalRefSurf  int
}

// FirstOrder is the first-order (paraxial) lens data record.
type FirstOrder struct {
	EFL                   float64
	ParaxialWorkingFNo    float64
	RealWorkingFNo        float64
	ParaxialImageHeight   float64
	ParaxialMagnification float64
}

// Wavelength is one row of the wavelength table, in microns.
type Wavelength struct {
	Value  float64
	Weight float64
}

// Operand is one row of the merit function editor.
type Operand struct {
	Type   string
	Int1   int
	Int2   int
	Data   [6]float64
	Target float64
	Weight float64
}
