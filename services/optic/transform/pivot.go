// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package transform implements the tilt/decentre-about-a-pivot synthesizer.
//
// Given a contiguous element group, it inserts four bookkeeping surfaces
// (a pivot spacer, two coordinate breaks and a rear dummy) and builds a
// closed chain of solves so the group can be displaced and re-oriented
// about a physical pivot point while the rest of the prescription's
// geometry and numbering stay externally consistent. The resulting layout
// is
//
//	[s1: move to pivot][cb1][element group][cb2][dummy][rest of system]
//
// where cb2's parameters always exactly negate cb1's, the group's trailing
// thickness is replaced by a position solve back to the pivot, and the
// dummy restores the group's original rear air gap.
package transform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/halide-optics/zlink/services/optic"
	"github.com/halide-optics/zlink/services/optic/session"
	"github.com/halide-optics/zlink/services/optic/solve"
)

// Order selects the composition order of a coordinate break's decentre and
// tilt. Undoing a tilt-then-decentre composition is not just negating the
// same order, so the paired break always carries the opposite flag.
type Order int

const (
	// DecentreThenTilt applies the decentre before the tilt.
	DecentreThenTilt Order = 0
	// TiltThenDecentre applies the tilt before the decentre.
	TiltThenDecentre Order = 1
)

// Request describes one pivot transform. First and Last are inclusive
// 1-based bounds of the element group in the pre-insertion sequence;
// PivotDepth is the axial distance from the group's front vertex to the
// pivot point.
type Request struct {
	First      int     `validate:"gte=1"`
	Last       int     `validate:"gtefield=First"`
	PivotDepth float64
	DecentreX  float64
	DecentreY  float64
	TiltX      float64
	TiltY      float64
	Order      Order `validate:"gte=0,lte=1"`
}

// Result reports the inserted bookkeeping surfaces the caller may want to
// reference in further edits. The pivot spacer sits at the request's First
// index and is not separately reported.
type Result struct {
	CB1   int
	CB2   int
	Dummy int
}

// Comments attached to the inserted surfaces for traceability.
const (
	commentPivotSpacer = "Pivot: move to pivot"
	commentCB1         = "Pivot: tilt/decentre, return from pivot"
	commentCB2         = "Pivot: tilt/decentre return, move to rear"
	commentDummy       = "Pivot: dummy, original rear distance"
)

// Synthesizer builds pivot transforms against a design session. It is
// stateless between calls; the caller owns the session's lifecycle and must
// serialize transforms, since the algorithm assumes exclusive access to the
// surface sequence.
type Synthesizer struct {
	sess     session.Surfaces
	log      *slog.Logger
	validate *validator.Validate
}

// New returns a synthesizer over the given session. A nil logger falls
// back to slog.Default().
func New(sess session.Surfaces, log *slog.Logger) *Synthesizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synthesizer{
		sess:     sess,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Pivot applies a tilt/decentre about a pivot point to the element group in
// req and returns the indices of the inserted coordinate breaks and dummy.
//
// The transform is not idempotent: applying it twice to the same bounds
// builds two independent pivot assemblies. There is no rollback: a failure
// partway leaves the sequence partially modified, and the caller must
// recover by reloading the last persisted model state.
func (s *Synthesizer) Pivot(ctx context.Context, req Request) (Result, error) {
	if err := s.validate.Struct(req); err != nil {
		return Result{}, fmt.Errorf("pivot request: %w", err)
	}

	n := req.Last - req.First + 1

	// Positions in the final numbering. The four insertions go in strictly
	// ascending order, so each later insertion's target is already
	// expressed in post-shift coordinates of the earlier ones.
	s1 := req.First
	cb1 := s1 + 1
	cb2 := cb1 + n + 1
	dummy := cb2 + 1

	// The element group's trailing surface after the two insertions that
	// land below it.
	last := req.Last + 2

	log := s.log.With("transform_id", uuid.NewString(),
		"first", req.First, "last", req.Last, "pivot_depth", req.PivotDepth)
	log.Info("pivot transform started", "cb1", cb1, "cb2", cb2, "dummy", dummy)

	// Snapshot the trailing thickness and its solve before any insertion
	// shifts the numbering out from under us.
	trailing, err := s.sess.Surface(ctx, req.Last)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot trailing surface %d: %w", req.Last, err)
	}
	trailingSolve, err := s.sess.Solve(ctx, req.Last, solve.SlotThickness)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot trailing solve %d: %w", req.Last, err)
	}

	for _, at := range []int{s1, cb1, cb2, dummy} {
		if err := s.sess.Insert(ctx, at); err != nil {
			return Result{}, fmt.Errorf("insert surface %d: %w", at, err)
		}
	}

	if err := s.markSurfaces(ctx, s1, cb1, cb2, dummy); err != nil {
		return Result{}, err
	}

	// The group's physical extent is now expressed through the pivot
	// machinery, not its own trailing thickness.
	if err := s.sess.SetThickness(ctx, last, 0); err != nil {
		return Result{}, fmt.Errorf("zero trailing thickness %d: %w", last, err)
	}
	if err := s.sess.SetSolve(ctx, last, solve.SlotThickness, solve.Fixed(0)); err != nil {
		return Result{}, fmt.Errorf("fix trailing thickness %d: %w", last, err)
	}

	// The dummy inherits the original rear air gap: the snapshotted
	// thickness value exactly, and the snapshotted solve with its surface
	// reference renumbered past cb1's insertion when it is a real index.
	migrated, err := solve.Migrate(trailingSolve, cb1)
	if err != nil {
		return Result{}, fmt.Errorf("migrate trailing solve to dummy %d: %w", dummy, err)
	}
	if err := s.sess.SetThickness(ctx, dummy, trailing.Thickness); err != nil {
		return Result{}, fmt.Errorf("dummy thickness %d: %w", dummy, err)
	}
	if err := s.sess.SetSolve(ctx, dummy, solve.SlotThickness, migrated); err != nil {
		return Result{}, fmt.Errorf("dummy thickness solve %d: %w", dummy, err)
	}
	if err := s.sess.SetSolve(ctx, dummy, solve.SlotGlass, solve.GlassPickup(last)); err != nil {
		return Result{}, fmt.Errorf("dummy glass pickup %d: %w", dummy, err)
	}

	// Mirror chain: cb2 always exactly negates cb1, so the second break
	// undoes the first's rotation/translation whatever values cb1 holds.
	for p := 1; p <= 5; p++ {
		c := solve.Pickup(cb1, solve.Param(p), 0, -1)
		if err := s.sess.SetSolve(ctx, cb2, solve.Param(p), c); err != nil {
			return Result{}, fmt.Errorf("mirror parameter %d on %d: %w", p, cb2, err)
		}
	}

	if err := s.pivotChain(ctx, req.PivotDepth, s1, cb1, cb2, last); err != nil {
		return Result{}, err
	}

	if err := s.writeBreakValues(ctx, req, cb1, cb2); err != nil {
		return Result{}, err
	}

	if err := s.sess.Sync(ctx); err != nil {
		return Result{}, fmt.Errorf("synchronize: %w", err)
	}

	log.Info("pivot transform complete")
	return Result{CB1: cb1, CB2: cb2, Dummy: dummy}, nil
}

// Front applies a tilt/decentre about the element group's own front vertex:
// exactly Pivot with a zero pivot depth.
func (s *Synthesizer) Front(ctx context.Context, first, last int, decX, decY, tiltX, tiltY float64, order Order) (Result, error) {
	return s.Pivot(ctx, Request{
		First:     first,
		Last:      last,
		DecentreX: decX,
		DecentreY: decY,
		TiltX:     tiltX,
		TiltY:     tiltY,
		Order:     order,
	})
}

func (s *Synthesizer) markSurfaces(ctx context.Context, s1, cb1, cb2, dummy int) error {
	for _, at := range []int{cb1, cb2} {
		if err := s.sess.SetKind(ctx, at, optic.KindCoordinateBreak); err != nil {
			return fmt.Errorf("mark coordinate break %d: %w", at, err)
		}
	}
	comments := map[int]string{
		s1:    commentPivotSpacer,
		cb1:   commentCB1,
		cb2:   commentCB2,
		dummy: commentDummy,
	}
	for _, at := range []int{s1, cb1, cb2, dummy} {
		if err := s.sess.SetComment(ctx, at, comments[at]); err != nil {
			return fmt.Errorf("comment surface %d: %w", at, err)
		}
	}
	return nil
}

// pivotChain writes the thickness solves that realize the excursion to the
// pivot and back:
//
//	s1   = Fixed(depth)          travel from the group's front to the pivot
//	cb1  = -1 x s1               return, so the group sits where it was
//	last = position solve to cb1 land back at the pivot after the group,
//	                             whatever the group's internal thicknesses
//	cb2  = -1 x last             return from the pivot to the rear face
func (s *Synthesizer) pivotChain(ctx context.Context, depth float64, s1, cb1, cb2, last int) error {
	if err := s.sess.SetSolve(ctx, s1, solve.SlotThickness, solve.Fixed(depth)); err != nil {
		return fmt.Errorf("pivot depth on %d: %w", s1, err)
	}
	if err := s.sess.SetSolve(ctx, cb1, solve.SlotThickness, solve.Pickup(s1, solve.SlotThickness, 0, -1)); err != nil {
		return fmt.Errorf("pivot return on %d: %w", cb1, err)
	}
	if err := s.sess.SetSolve(ctx, last, solve.SlotThickness, solve.Position(cb1, 0)); err != nil {
		return fmt.Errorf("position solve on %d: %w", last, err)
	}
	if err := s.sess.SetSolve(ctx, cb2, solve.SlotThickness, solve.Pickup(last, solve.SlotThickness, 0, -1)); err != nil {
		return fmt.Errorf("rear return on %d: %w", cb2, err)
	}
	return nil
}

// writeBreakValues writes the requested decentres and tilts into cb1 and
// the opposite order flags into the pair. cb1's slots 1..4 carry the
// transform, slot 5 stays zero; cb2's slots 1..5 are fully determined by
// the mirror chain and must not be written directly.
func (s *Synthesizer) writeBreakValues(ctx context.Context, req Request, cb1, cb2 int) error {
	values := map[int]float64{
		optic.ParamDecentreX: req.DecentreX,
		optic.ParamDecentreY: req.DecentreY,
		optic.ParamTiltX:     req.TiltX,
		optic.ParamTiltY:     req.TiltY,
		optic.ParamTiltFlag:  0,
	}
	for p := 1; p <= 5; p++ {
		if err := s.sess.SetParameter(ctx, cb1, p, values[p]); err != nil {
			return fmt.Errorf("parameter %d on %d: %w", p, cb1, err)
		}
	}
	if err := s.sess.SetParameter(ctx, cb1, optic.ParamOrder, float64(req.Order)); err != nil {
		return fmt.Errorf("order flag on %d: %w", cb1, err)
	}
	if err := s.sess.SetParameter(ctx, cb2, optic.ParamOrder, float64(1-req.Order)); err != nil {
		return fmt.Errorf("order flag on %d: %w", cb2, err)
	}
	return nil
}
