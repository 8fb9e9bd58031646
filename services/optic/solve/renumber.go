// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package solve

import (
	"fmt"

	"github.com/halide-optics/zlink/services/optic"
)

// Shifted returns the constraint with its surface reference renumbered to
// account for count surfaces inserted at 1-based index at: an integral
// reference >= at moves up by count. Reference-free variants, non-integral
// references (macro tokens, literals), and opaque records whose type code is
// not in the classification table are returned unchanged.
//
// This is the lenient entry point used by the sequence model when it shifts
// live constraints during an insertion. Migrate is the strict variant for
// re-attaching a snapshotted constraint.
func (c Constraint) Shifted(at, count int) Constraint {
	switch c.Kind {
	case KindPickup, KindPosition, KindGlassPickup:
		if ref, ok := c.RefSurface(); ok && ref >= at {
			c.Ref = float64(ref + count)
		}
	case KindOpaque:
		if idx, ok := classifyThickness(c.Code); ok && idx >= 0 {
			if raw := c.Params[idx]; isIntegral(raw) && int(raw) >= at {
				c.Params[idx] = raw + float64(count)
			}
		}
	}
	return c
}

// Migrate renumbers a snapshotted constraint for re-attachment after a
// single surface insertion at 1-based index at: an integral reference >= at
// is incremented by exactly one, everything else is copied unchanged.
//
// Unlike Shifted, an opaque record whose solve-type code is absent from the
// classification table is refused with optic.ErrInvalidConstraintReference:
// its payload may embed a surface index this package cannot identify, and
// passing it through silently would leave the chain referencing the wrong
// surface.
func Migrate(c Constraint, at int) (Constraint, error) {
	if c.Kind == KindOpaque {
		if _, ok := classifyThickness(c.Code); !ok {
			return Constraint{}, fmt.Errorf("migrate solve type %d: %w",
				c.Code, optic.ErrInvalidConstraintReference)
		}
	}
	return c.Shifted(at, 1), nil
}
