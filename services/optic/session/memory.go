// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"context"
	"fmt"

	"github.com/halide-optics/zlink/services/optic"
	"github.com/halide-optics/zlink/services/optic/sequence"
	"github.com/halide-optics/zlink/services/optic/solve"
)

// Memory is an in-process Session backed by a sequence.Model. It serves
// tests and offline prescription work: writes land directly in the model
// and Sync triggers the model's solve recomputation, mirroring what the
// hosted application does on a synchronize call.
//
// Memory is not safe for concurrent use, matching the exclusive-access
// contract of the Session interface.
type Memory struct {
	model *sequence.Model

	fields     []fieldRow
	fieldType  int
	waves      []Wavelength
	operands   []Operand
	meritValue float64

	loadedLens string
	syncCount  int

	// TraceFunc, when set, answers Trace calls. The default returns a
	// zero ray at the requested coordinates.
	TraceFunc func(TraceRequest) TraceResult

	// OnMacro, when set, observes ExecuteMacro calls. Tests use it to
	// simulate macros that populate the merit function editor.
	OnMacro func(code string)

	executedMacros []string
	meritLoads     []string
	meritSaves     []string
}

type fieldRow struct{ x, y float64 }

// NewMemory returns a Memory session over the given model.
func NewMemory(model *sequence.Model) *Memory {
	return &Memory{model: model}
}

// Model exposes the backing sequence model.
func (m *Memory) Model() *sequence.Model { return m.model }

// SyncCount reports how many synchronize calls the session has seen.
func (m *Memory) SyncCount() int { return m.syncCount }

// ExecutedMacros returns the macro codes run so far.
func (m *Memory) ExecutedMacros() []string { return m.executedMacros }

// ---------------------------------------------------------------------------
// Surfaces
// ---------------------------------------------------------------------------

func (m *Memory) Surface(_ context.Context, index int) (optic.Surface, error) {
	return m.model.Surface(index)
}

func (m *Memory) SetThickness(_ context.Context, index int, v float64) error {
	return m.model.SetThickness(index, v)
}

func (m *Memory) SetComment(_ context.Context, index int, comment string) error {
	return m.model.SetComment(index, comment)
}

func (m *Memory) SetKind(_ context.Context, index int, k optic.Kind) error {
	return m.model.SetKind(index, k)
}

func (m *Memory) Parameter(_ context.Context, index, param int) (float64, error) {
	s, err := m.model.Surface(index)
	if err != nil {
		return 0, err
	}
	return s.Parameter(param), nil
}

func (m *Memory) SetParameter(_ context.Context, index, param int, v float64) error {
	return m.model.SetParameter(index, param, v)
}

func (m *Memory) Insert(_ context.Context, index int) error {
	return m.model.InsertAt(index)
}

func (m *Memory) Solve(_ context.Context, index int, slot solve.Slot) (solve.Constraint, error) {
	return m.model.Solve(index, slot)
}

func (m *Memory) SetSolve(_ context.Context, index int, slot solve.Slot, c solve.Constraint) error {
	return m.model.SetSolve(index, slot, c)
}

func (m *Memory) Sync(_ context.Context) error {
	m.model.Update()
	m.syncCount++
	return nil
}

// ---------------------------------------------------------------------------
// System
// ---------------------------------------------------------------------------

func (m *Memory) Trace(_ context.Context, req TraceRequest) (TraceResult, error) {
	if m.TraceFunc != nil {
		return m.TraceFunc(req), nil
	}
	return TraceResult{X: req.Hx, Y: req.Hy, N: 1, Intensity: 1}, nil
}

func (m *Memory) Optimize(_ context.Context, cycles int) (float64, error) {
	if cycles < 0 {
		// Merit update only.
		return m.meritValue, nil
	}
	return m.meritValue, nil
}

// SetMeritValue seeds the value Optimize reports.
func (m *Memory) SetMeritValue(v float64) { m.meritValue = v }

func (m *Memory) LoadLens(_ context.Context, path string) error {
	m.loadedLens = path
	return nil
}

// LoadedLens returns the last lens file path given to LoadLens.
func (m *Memory) LoadedLens() string { return m.loadedLens }

func (m *Memory) PushLens(_ context.Context) error {
	m.model.Update()
	return nil
}

func (m *Memory) RefreshLens(_ context.Context) error {
	m.model.Update()
	return nil
}

func (m *Memory) SystemInfo(_ context.Context) (SystemInfo, error) {
	return SystemInfo{
		NumSurfaces: m.model.Len(),
		StopSurface: 1,
		Temperature: 20,
		Pressure:    1,
	}, nil
}

func (m *Memory) FirstOrder(_ context.Context) (FirstOrder, error) {
	return FirstOrder{}, nil
}

func (m *Memory) Wavelength(_ context.Context, index int) (Wavelength, error) {
	if index < 1 || index > len(m.waves) {
		return Wavelength{}, fmt.Errorf("wavelength %d of %d: %w",
			index, len(m.waves), optic.ErrIndexOutOfRange)
	}
	return m.waves[index-1], nil
}

func (m *Memory) SetSystemProperty(_ context.Context, code int, args ...float64) error {
	arg := func(i int) float64 {
		if i < len(args) {
			return args[i]
		}
		return 0
	}
	switch code {
	case PropFieldType:
		m.fieldType = int(arg(0))
	case PropFieldCount:
		m.fields = resizeRows(m.fields, int(arg(0)))
	case PropFieldX:
		i := int(arg(0))
		if i < 1 || i > len(m.fields) {
			return fmt.Errorf("field %d of %d: %w", i, len(m.fields), optic.ErrIndexOutOfRange)
		}
		m.fields[i-1].x = arg(1)
	case PropFieldY:
		i := int(arg(0))
		if i < 1 || i > len(m.fields) {
			return fmt.Errorf("field %d of %d: %w", i, len(m.fields), optic.ErrIndexOutOfRange)
		}
		m.fields[i-1].y = arg(1)
	case PropWaveCount:
		m.waves = resizeWaves(m.waves, int(arg(0)))
	case PropWaveValue:
		i := int(arg(0))
		if i < 1 || i > len(m.waves) {
			return fmt.Errorf("wavelength %d of %d: %w", i, len(m.waves), optic.ErrIndexOutOfRange)
		}
		m.waves[i-1] = Wavelength{Value: arg(1), Weight: 1}
	default:
		return fmt.Errorf("system property %d: %w", code, optic.ErrSessionFailure)
	}
	return nil
}

// FieldType returns the stored field type enumeration value.
func (m *Memory) FieldType() int { return m.fieldType }

// Field returns the stored field coordinates at the 1-based table index.
func (m *Memory) Field(index int) (x, y float64, ok bool) {
	if index < 1 || index > len(m.fields) {
		return 0, 0, false
	}
	return m.fields[index-1].x, m.fields[index-1].y, true
}

// FieldCount returns the field table length.
func (m *Memory) FieldCount() int { return len(m.fields) }

// WaveCount returns the wavelength table length.
func (m *Memory) WaveCount() int { return len(m.waves) }

func resizeRows(rows []fieldRow, n int) []fieldRow {
	if n < 0 {
		n = 0
	}
	out := make([]fieldRow, n)
	copy(out, rows)
	return out
}

func resizeWaves(waves []Wavelength, n int) []Wavelength {
	if n < 0 {
		n = 0
	}
	out := make([]Wavelength, n)
	copy(out, waves)
	return out
}

// ---------------------------------------------------------------------------
// Merit
// ---------------------------------------------------------------------------

func (m *Memory) InsertOperand(_ context.Context, row int) error {
	if row < 1 || row > len(m.operands)+1 {
		return fmt.Errorf("operand row %d of %d: %w", row, len(m.operands), optic.ErrIndexOutOfRange)
	}
	m.operands = append(m.operands, Operand{})
	copy(m.operands[row:], m.operands[row-1:])
	m.operands[row-1] = Operand{Type: "BLNK", Weight: 0}
	return nil
}

func (m *Memory) DeleteOperand(_ context.Context, row int) (int, error) {
	if row < 1 || row > len(m.operands) {
		return 0, fmt.Errorf("operand row %d of %d: %w", row, len(m.operands), optic.ErrIndexOutOfRange)
	}
	m.operands = append(m.operands[:row-1], m.operands[row:]...)
	return len(m.operands), nil
}

func (m *Memory) SetOperandRow(_ context.Context, row int, op Operand) error {
	if row < 1 || row > len(m.operands) {
		return fmt.Errorf("operand row %d of %d: %w", row, len(m.operands), optic.ErrIndexOutOfRange)
	}
	m.operands[row-1] = op
	return nil
}

func (m *Memory) Operands(_ context.Context) ([]Operand, error) {
	out := make([]Operand, len(m.operands))
	copy(out, m.operands)
	return out, nil
}

// SetOperands replaces the merit function editor contents. Macro hooks use
// it to simulate DEFAULTMERIT expansion.
func (m *Memory) SetOperands(ops []Operand) {
	m.operands = append([]Operand(nil), ops...)
}

func (m *Memory) ExecuteMacro(_ context.Context, code string) error {
	m.executedMacros = append(m.executedMacros, code)
	if m.OnMacro != nil {
		m.OnMacro(code)
	}
	return nil
}

func (m *Memory) LoadMerit(_ context.Context, path string) error {
	m.meritLoads = append(m.meritLoads, path)
	return nil
}

func (m *Memory) SaveMerit(_ context.Context, path string) error {
	m.meritSaves = append(m.meritSaves, path)
	return nil
}

var _ Session = (*Memory)(nil)
