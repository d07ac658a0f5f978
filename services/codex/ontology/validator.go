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

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/codexgraph/services/codex/datatypes"
)

// Validator performs read-only checks against the canonical registry.
//
// Hard checks (axis membership, score bounds, depth bounds, referential
// sanity) block mutations. Soft checks (cross-axis pairing, scale-label
// completeness) only produce warnings.
type Validator struct {
	reg *Registry
}

// NewValidator returns a validator bound to an immutable registry.
func NewValidator(reg *Registry) *Validator {
	return &Validator{reg: reg}
}

// requiredScales are the four observation-scale labels every node's
// cross-scale mapping should carry.
var requiredScales = []string{"micro", "meso", "macro", "meta"}

// ValidateSignature checks a signature against the registry.
//
// Hard: every axis key is registered and every value belongs to its axis's
// enumeration; every numeric "*_score" extra is within [0,1].
// Soft: cross-axis pairings match the registry's advisory defaults.
func (v *Validator) ValidateSignature(sig datatypes.Signature) datatypes.ValidationResult {
	res := datatypes.NewValidationResult()

	membershipOK := true
	for axis, value := range sig.Axes {
		a := v.reg.Axis(axis)
		if a == nil {
			membershipOK = false
			res.AddError("axis_membership", fmt.Sprintf("unknown axis %q", axis))
			continue
		}
		if !a.Contains(value) {
			membershipOK = false
			res.AddError("axis_membership", fmt.Sprintf("value %q not in axis %q", value, axis))
		}
	}
	if membershipOK {
		res.AddPass("axis_membership")
	}

	scoresOK := true
	for key, raw := range sig.Extra {
		if !strings.HasSuffix(key, "_score") {
			continue
		}
		if val, ok := asFloat(raw); ok && (val < 0 || val > 1) {
			scoresOK = false
			res.AddError("score_bounds", fmt.Sprintf("%s=%v outside [0,1]", key, val))
		}
	}
	if scoresOK {
		res.AddPass("score_bounds")
	}

	// Pairing mismatches are advisory. A caller may legitimately pin an
	// off-default combination; we surface it and move on.
	if membershipOK {
		v.checkPairings(sig, &res)
	}
	return res
}

func (v *Validator) checkPairings(sig datatypes.Signature, res *datatypes.ValidationResult) {
	consistent := true
	for _, axis := range v.reg.order {
		value, set := sig.Axes[axis]
		if !set {
			continue
		}
		defaults, err := v.reg.DefaultsFor(axis, value)
		if err != nil {
			continue
		}
		for target, want := range defaults {
			got, set := sig.Axes[target]
			if set && got != want {
				consistent = false
				res.AddWarning("cross_axis_pairing",
					fmt.Sprintf("%s=%q pairs with %s=%q, have %q", axis, value, target, want, got))
			}
		}
	}
	if consistent {
		res.AddPass("cross_axis_pairing")
	}
}

// ValidateStructure checks a node's structural metadata.
//
// Hard: fractal depth within [0, maxDepth]; node is not its own parent and
// does not list itself or duplicates among its children.
// Soft: cross-scale mapping carries all four scale labels.
func (v *Validator) ValidateStructure(node *datatypes.Node, maxDepth int) datatypes.ValidationResult {
	res := datatypes.NewValidationResult()

	depth := node.Structure.FractalDepth
	if depth < 0 || depth > maxDepth {
		res.AddError("depth_bounds", fmt.Sprintf("fractal depth %d outside [0,%d]", depth, maxDepth))
	} else {
		res.AddPass("depth_bounds")
	}

	refOK := true
	if node.ParentID != "" && node.ParentID == node.ID {
		refOK = false
		res.AddError("referential_integrity", "node is its own parent")
	}
	seen := make(map[string]struct{}, len(node.Children))
	for _, child := range node.Children {
		if child == node.ID {
			refOK = false
			res.AddError("referential_integrity", "node lists itself as a child")
		}
		if _, dup := seen[child]; dup {
			refOK = false
			res.AddError("referential_integrity", fmt.Sprintf("duplicate child %q", child))
		}
		seen[child] = struct{}{}
	}
	if refOK {
		res.AddPass("referential_integrity")
	}

	scalesOK := true
	for _, scale := range requiredScales {
		if _, set := node.Structure.CrossScaleMapping[scale]; !set {
			scalesOK = false
			res.AddWarning("cross_scale_labels", fmt.Sprintf("missing scale label %q", scale))
		}
	}
	if scalesOK {
		res.AddPass("cross_scale_labels")
	}

	res.Merge(v.ValidateSignature(node.Signature))
	return res
}

// BatchReport aggregates per-node validation outcomes for bulk audits.
type BatchReport struct {
	// Total is the number of nodes inspected.
	Total int `json:"total"`

	// Invalid is the number of nodes with at least one hard failure.
	Invalid int `json:"invalid"`

	// Results maps node id to its full validation result. Only nodes
	// with errors or warnings are included.
	Results map[string]datatypes.ValidationResult `json:"results"`
}

// ValidateBatch runs ValidateStructure over a set of nodes and aggregates
// the findings. Clean nodes are counted but not repeated in Results.
func (v *Validator) ValidateBatch(nodes []*datatypes.Node, maxDepth int) BatchReport {
	report := BatchReport{Results: make(map[string]datatypes.ValidationResult)}
	for _, node := range nodes {
		report.Total++
		res := v.ValidateStructure(node, maxDepth)
		if !res.Valid {
			report.Invalid++
		}
		if !res.Valid || len(res.Warnings) > 0 {
			report.Results[node.ID] = res
		}
	}
	return report
}
