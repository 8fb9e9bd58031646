// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package optic

import "errors"

// Sentinel errors shared by the optic service packages.
var (
	// ErrIndexOutOfRange indicates a surface index outside the current
	// sequence bounds. A transform that hits this mid-flight leaves the
	// prescription partially modified; recovery is reloading the model
	// from its last persisted state.
	ErrIndexOutOfRange = errors.New("surface index out of range")

	// ErrInvalidConstraintReference indicates a reference-bearing solve
	// whose solve-type code is not in the renumbering table, or whose
	// reference payload is malformed.
	ErrInvalidConstraintReference = errors.New("invalid constraint reference")

	// ErrSessionFailure indicates the remote design session rejected or
	// failed a read/write/sync call. It is propagated unchanged and never
	// retried mid-transform, since a blind retry risks double insertion.
	ErrSessionFailure = errors.New("design session failure")

	// ErrInvalidFieldType indicates a field type outside the editor's
	// enumeration (0=angle, 1=object height, 2=paraxial image height,
	// 3=real image height).
	ErrInvalidFieldType = errors.New("invalid field type")
)
