// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package merit builds and edits the merit function of a design session.
//
// The host application's DEFAULTMERIT command is only reachable through its
// macro language, and the macro list is populated once at application
// startup. The builder therefore writes the command into a pre-registered
// macro file in the host's macro directory and triggers it by its
// three-letter code; it cannot create the macro file slot on the fly.
package merit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/halide-optics/zlink/services/optic/session"
)

// ErrInvalidCriteria is returned when a default merit criteria value is
// outside the host application's accepted range.
var ErrInvalidCriteria = errors.New("invalid merit criteria")

// Optimization target type.
const (
	TargetRMS = 0
	TargetPTV = 1
)

// Optimization data selector.
const (
	DataWavefront  = 0
	DataSpotRadius = 1
	DataSpotX      = 2
	DataSpotY      = 3
	DataSpotXY     = 4
)

// Reference point selector.
const (
	ReferenceCentroid     = 0
	ReferenceChief        = 1
	ReferenceUnreferenced = 2
)

// Pupil integration method.
const (
	MethodGaussianQuadrature = 1
	MethodRectangularArray   = 2
)

// StartAutomatic appends the generated operands after any existing DMFS
// operand instead of at a fixed row.
const StartAutomatic = -1

// Criteria carries the DEFAULTMERIT command's fourteen parameters.
type Criteria struct {
	Target    int // TargetRMS or TargetPTV
	Data      int // Data* selector
	Reference int // Reference* selector
	Method    int // pupil integration method

	// Gaussian quadrature settings.
	Rings int
	Arms  int // must be even and at least 6

	// Rectangular array settings.
	Grid int // grid is Grid x Grid; must be even and at least 4

	DeleteVignetted  bool
	Axial            int // -1 automatic, 0 never, 1 assume axial symmetry
	IgnoreLateral    bool
	StartRow         int // StartAutomatic or an explicit operand row
	XWeight          float64
	OverallWeight    float64
	PupilObscuration float64
}

// DefaultCriteria returns the builder defaults: RMS spot radius against the
// centroid with Gaussian quadrature.
func DefaultCriteria() Criteria {
	return Criteria{
		Target:        TargetRMS,
		Data:          DataSpotRadius,
		Reference:     ReferenceCentroid,
		Method:        MethodGaussianQuadrature,
		Rings:         3,
		Arms:          6,
		Grid:          8,
		Axial:         0,
		IgnoreLateral: true,
		StartRow:      StartAutomatic,
		XWeight:       1,
		OverallWeight: 1,
	}
}

// Validate checks the criteria against the host's documented ranges.
func (c Criteria) Validate() error {
	switch {
	case c.Target < TargetRMS || c.Target > TargetPTV:
		return fmt.Errorf("target %d: %w", c.Target, ErrInvalidCriteria)
	case c.Data < DataWavefront || c.Data > DataSpotXY:
		return fmt.Errorf("data %d: %w", c.Data, ErrInvalidCriteria)
	case c.Reference < ReferenceCentroid || c.Reference > ReferenceUnreferenced:
		return fmt.Errorf("reference %d: %w", c.Reference, ErrInvalidCriteria)
	case c.Method != MethodGaussianQuadrature && c.Method != MethodRectangularArray:
		return fmt.Errorf("method %d: %w", c.Method, ErrInvalidCriteria)
	case c.Rings < 1:
		return fmt.Errorf("rings %d: %w", c.Rings, ErrInvalidCriteria)
	case c.Arms < 6 || c.Arms%2 != 0:
		return fmt.Errorf("arms %d must be even and at least 6: %w", c.Arms, ErrInvalidCriteria)
	case c.Grid < 4 || c.Grid%2 != 0:
		return fmt.Errorf("grid %d must be even and at least 4: %w", c.Grid, ErrInvalidCriteria)
	case c.Axial < -1 || c.Axial > 1:
		return fmt.Errorf("axial %d: %w", c.Axial, ErrInvalidCriteria)
	case c.StartRow < StartAutomatic || c.StartRow == 0:
		return fmt.Errorf("start row %d: %w", c.StartRow, ErrInvalidCriteria)
	}
	return nil
}

// command renders the ZPL line for the criteria.
func (c Criteria) command() string {
	boolArg := func(b bool) string {
		if b {
			return "1"
		}
		return "0"
	}
	args := []string{
		"DEFAULTMERIT",
		strconv.Itoa(c.Target),
		strconv.Itoa(c.Data),
		strconv.Itoa(c.Reference),
		strconv.Itoa(c.Method),
		strconv.Itoa(c.Rings),
		strconv.Itoa(c.Arms),
		strconv.Itoa(c.Grid),
		boolArg(c.DeleteVignetted),
		strconv.Itoa(c.Axial),
		boolArg(c.IgnoreLateral),
		strconv.Itoa(c.StartRow),
		strconv.FormatFloat(c.XWeight, 'g', -1, 64),
		strconv.FormatFloat(c.OverallWeight, 'g', -1, 64),
		strconv.FormatFloat(c.PupilObscuration, 'g', -1, 64),
	}
	return strings.Join(args, ", ")
}

// Manager builds and edits the merit function through a design session.
type Manager struct {
	sess      session.Session
	macroDir  string
	macroFile string
	log       *slog.Logger
}

// New returns a manager that writes its generated macro into
// macroDir/macroFile. The file must already be registered with the host
// application; the manager overwrites its contents on every build. A nil
// logger falls back to slog.Default().
func New(sess session.Session, macroDir, macroFile string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{sess: sess, macroDir: macroDir, macroFile: macroFile, log: log}
}

// MacroCode returns the three-letter code the host uses to address the
// macro file.
func (m *Manager) MacroCode() string {
	name := m.macroFile
	if len(name) > 3 {
		name = name[:3]
	}
	return strings.ToUpper(name)
}

// WriteMacro writes the DEFAULTMERIT macro file. The leading CLOSEWINDOW
// suppresses the editor window the command would otherwise pop up.
func (m *Manager) WriteMacro(c Criteria) error {
	if err := c.Validate(); err != nil {
		return err
	}
	path := filepath.Join(m.macroDir, m.macroFile)
	content := "CLOSEWINDOW\n" + c.command()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write macro %s: %w", path, err)
	}
	return nil
}

// BuildDefault writes the macro, executes it and pulls the regenerated
// merit function back into the model. Executing a macro only updates the
// editor, so the trailing refresh is what makes the new operands visible
// to the session.
func (m *Manager) BuildDefault(ctx context.Context, c Criteria) error {
	if err := m.WriteMacro(c); err != nil {
		return err
	}
	code := m.MacroCode()
	if err := m.sess.ExecuteMacro(ctx, code); err != nil {
		return fmt.Errorf("execute macro %s: %w", code, err)
	}
	m.log.Info("default merit function built", "macro", code)
	return m.pullFromEditor(ctx)
}

// RowOf returns the 1-based row of the first operand with the given type
// name, or 0 when the merit function holds none.
func (m *Manager) RowOf(ctx context.Context, operand string) (int, error) {
	ops, err := m.sess.Operands(ctx)
	if err != nil {
		return 0, fmt.Errorf("read merit function: %w", err)
	}
	for i, op := range ops {
		if op.Type == operand {
			return i + 1, nil
		}
	}
	return 0, nil
}

// AddAirGapConstraints inserts an MXCA/MNCA operand pair at the given row,
// bracketing the air gap after the surface between minGap and maxGap.
func (m *Manager) AddAirGapConstraints(ctx context.Context, row, surface int, minGap, maxGap float64) error {
	if err := m.insertConstraint(ctx, row, "MNCA", surface, minGap); err != nil {
		return err
	}
	if err := m.insertConstraint(ctx, row, "MXCA", surface, maxGap); err != nil {
		return err
	}
	return m.pushToEditor(ctx)
}

func (m *Manager) insertConstraint(ctx context.Context, row int, operand string, surface int, target float64) error {
	if err := m.sess.InsertOperand(ctx, row); err != nil {
		return fmt.Errorf("insert %s at %d: %w", operand, row, err)
	}
	op := session.Operand{Type: operand, Int1: surface, Int2: surface, Target: target, Weight: 1}
	if err := m.sess.SetOperandRow(ctx, row, op); err != nil {
		return fmt.Errorf("write %s at %d: %w", operand, row, err)
	}
	return nil
}

// DeleteRow removes one operand row and refreshes the model.
func (m *Manager) DeleteRow(ctx context.Context, row int) error {
	if _, err := m.sess.DeleteOperand(ctx, row); err != nil {
		return fmt.Errorf("delete operand %d: %w", row, err)
	}
	return m.pullFromEditor(ctx)
}

func (m *Manager) pullFromEditor(ctx context.Context) error {
	if err := m.sess.RefreshLens(ctx); err != nil {
		return fmt.Errorf("refresh lens: %w", err)
	}
	return m.recompute(ctx)
}

func (m *Manager) pushToEditor(ctx context.Context) error {
	if err := m.recompute(ctx); err != nil {
		return err
	}
	if err := m.sess.PushLens(ctx); err != nil {
		return fmt.Errorf("push lens: %w", err)
	}
	return nil
}

func (m *Manager) recompute(ctx context.Context) error {
	if _, err := m.sess.Optimize(ctx, -1); err != nil {
		return fmt.Errorf("merit update: %w", err)
	}
	if err := m.sess.Sync(ctx); err != nil {
		return fmt.Errorf("synchronize: %w", err)
	}
	return nil
}
