// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/codexgraph/services/codex/datatypes"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound is returned when a node id does not exist locally.
	// Recoverable: the caller may create the node or pull it from the
	// remote backend.
	ErrNotFound = errors.New("node not found")

	// ErrCycleDetected is returned when a re-parent would make a node
	// its own ancestor. Fatal to that mutation only; no state changes.
	ErrCycleDetected = errors.New("re-parent would create a cycle")

	// ErrConflict is returned when a delete is blocked by existing
	// children under the reject-if-has-children policy. Recoverable:
	// the caller must pick another orphan policy or clear the children.
	ErrConflict = errors.New("delete blocked by existing children")

	// ErrValidationFailed is the sentinel matched by errors.Is for any
	// hard validation failure. Use errors.As with *ValidationError to
	// recover the full result.
	ErrValidationFailed = errors.New("validation failed")

	// ErrInvalidOrphanPolicy is returned for unrecognized policy names.
	ErrInvalidOrphanPolicy = errors.New("invalid orphan policy")
)

// errStaleParent is internal to the store: the node's parent changed
// between the optimistic read and the write lock. Update retries the
// whole mutation and never surfaces this to callers.
var errStaleParent = errors.New("parent changed during update")

// ValidationError carries the full validation result so callers can act
// on the failure without re-querying.
type ValidationError struct {
	Result datatypes.ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrValidationFailed, strings.Join(e.Result.Errors, "; "))
}

// Unwrap lets errors.Is(err, ErrValidationFailed) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
