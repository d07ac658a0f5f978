// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ontology

import "errors"

// Sentinel errors for registry and factory operations.
var (
	// ErrUnknownAxis is returned when an axis name is not registered.
	// Axis definitions are loaded once at startup and immutable after,
	// so this always indicates a caller bug, never a race.
	ErrUnknownAxis = errors.New("unknown ontological axis")

	// ErrInvalidAxisValue is returned when a value is outside its axis's
	// legal enumeration. Fatal to the call that supplied it.
	ErrInvalidAxisValue = errors.New("value not in axis enumeration")
)
