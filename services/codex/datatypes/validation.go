// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "time"

// ValidationCheck is one validator probe and its outcome.
type ValidationCheck struct {
	// Name identifies the check (e.g. "axis_membership", "score_bounds").
	Name string `json:"name"`

	// Passed is true if the check succeeded.
	Passed bool `json:"passed"`

	// Hard indicates whether a failure blocks the triggering mutation.
	Hard bool `json:"hard"`

	// Detail is a human-readable explanation of the outcome.
	Detail string `json:"detail,omitempty"`
}

// ValidationResult aggregates the outcome of a validation pass.
//
// Hard failures land in Errors and flip Valid to false. Soft failures land
// in Warnings and never block a mutation.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Errors    []string          `json:"errors,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
	Checks    []ValidationCheck `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewValidationResult returns a passing result stamped with the current time.
func NewValidationResult() ValidationResult {
	return ValidationResult{Valid: true, Timestamp: time.Now().UTC()}
}

// AddError records a hard failure and marks the result invalid.
func (r *ValidationResult) AddError(check, detail string) {
	r.Valid = false
	r.Errors = append(r.Errors, detail)
	r.Checks = append(r.Checks, ValidationCheck{Name: check, Hard: true, Detail: detail})
}

// AddWarning records a soft failure. The result stays valid.
func (r *ValidationResult) AddWarning(check, detail string) {
	r.Warnings = append(r.Warnings, detail)
	r.Checks = append(r.Checks, ValidationCheck{Name: check, Detail: detail})
}

// AddPass records a successful check.
func (r *ValidationResult) AddPass(check string) {
	r.Checks = append(r.Checks, ValidationCheck{Name: check, Passed: true})
}

// Merge folds another result into this one, preserving hard/soft split.
func (r *ValidationResult) Merge(other ValidationResult) {
	if !other.Valid {
		r.Valid = false
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Checks = append(r.Checks, other.Checks...)
}
