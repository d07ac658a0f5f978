// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the core value types shared across the codex
// services: fractal nodes, ontological signatures, validation reports, and
// sync audit records.
//
// # Ownership Model
//
// The node store returns deep copies of nodes so callers can never mutate
// store-internal state through a returned pointer. Types in this package
// therefore provide Clone methods used at every store boundary.
package datatypes

import (
	"time"
)

// Signature is the ontological classification attached to every node.
//
// Axes maps canonical axis names (e.g. "water_state", "chakra") to one of
// that axis's legal values. Extra holds free-form extension fields merged
// from caller context; keys ending in "_score" are treated as numeric and
// bounded to [0,1] during validation.
type Signature struct {
	// Axes maps a canonical axis name to one of its legal values.
	Axes map[string]string `json:"axes"`

	// Extra holds free-form extension fields. Never consulted for
	// hierarchy or sync decisions.
	Extra map[string]any `json:"extra,omitempty"`
}

// Clone returns a deep copy of the signature.
func (s Signature) Clone() Signature {
	out := Signature{}
	if s.Axes != nil {
		out.Axes = make(map[string]string, len(s.Axes))
		for k, v := range s.Axes {
			out.Axes[k] = v
		}
	}
	if s.Extra != nil {
		out.Extra = make(map[string]any, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// StructureInfo carries derived structural metadata for a node.
type StructureInfo struct {
	// FractalDepth is the distance to the nearest parentless ancestor.
	// 0 for root nodes, parent depth + 1 otherwise.
	FractalDepth int `json:"fractal_depth"`

	// CrossScaleMapping labels the node at the four observation scales
	// (micro, meso, macro, meta), keyed by scale name.
	CrossScaleMapping map[string]string `json:"cross_scale_mapping"`

	// SelfSimilarity is a derived score in [0,1] combining depth decay
	// and fan-out.
	SelfSimilarity float64 `json:"self_similarity"`
}

// Clone returns a deep copy of the structure info.
func (si StructureInfo) Clone() StructureInfo {
	out := si
	if si.CrossScaleMapping != nil {
		out.CrossScaleMapping = make(map[string]string, len(si.CrossScaleMapping))
		for k, v := range si.CrossScaleMapping {
			out.CrossScaleMapping[k] = v
		}
	}
	return out
}

// Node is the typed hierarchical unit of the store.
//
// ParentID is the single source of truth for topology. Children is derived
// from the set of nodes whose ParentID equals this node's ID and is filled
// in by the store on read; it is never accepted as caller input.
type Node struct {
	// ID is opaque, unique, and immutable after creation.
	ID string `json:"id"`

	// Type is a free-form classification tag (e.g. "system_component").
	// Used for display and indexing only, never for branching behavior.
	Type string `json:"type"`

	// Name is the human-readable node name.
	Name string `json:"name"`

	// Content is the node payload.
	Content string `json:"content"`

	// ParentID is empty for root nodes.
	ParentID string `json:"parent_id,omitempty"`

	// Children is derived from ParentID back-references. Read-only.
	Children []string `json:"children"`

	// Signature is the validated ontological classification.
	Signature Signature `json:"signature"`

	// Structure carries derived structural metadata.
	Structure StructureInfo `json:"structure"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Signature = n.Signature.Clone()
	out.Structure = n.Structure.Clone()
	if n.Children != nil {
		out.Children = make([]string, len(n.Children))
		copy(out.Children, n.Children)
	}
	return &out
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.ParentID == "" }
