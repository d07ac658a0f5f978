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
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/AleutianAI/codexgraph/services/codex/datatypes"
	"github.com/AleutianAI/codexgraph/services/codex/ontology"
)

// AnalyticsReport bundles the derived, unpersisted metrics for one node.
// Every value is recomputed on request; nothing here is stored.
type AnalyticsReport struct {
	NodeID string `json:"node_id"`

	// FractalDimension estimates branching complexity as
	// log2(childCount); 0 for leaves.
	FractalDimension float64 `json:"fractal_dimension"`

	// ParentDistance is the Euclidean distance between the node's
	// coordinate vector and its parent's. Omitted for roots.
	ParentDistance *float64 `json:"parent_distance,omitempty"`

	// ChildDistances maps child id to coordinate distance.
	ChildDistances map[string]float64 `json:"child_distances,omitempty"`

	// SymmetryScore measures how mirror-symmetric the coordinate vector
	// is, in (0,1].
	SymmetryScore float64 `json:"symmetry_score"`

	// CoherenceScore is 1/(1+variance) over the coherence signal of the
	// node and its children.
	CoherenceScore float64 `json:"coherence_score"`
}

// Analytics computes the derived metrics bundle for a node.
//
// Outputs:
//
//	*AnalyticsReport - Freshly derived metrics.
//	error - ErrNotFound if the node does not exist.
func (s *Store) Analytics(id string) (*AnalyticsReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	childSet := s.childIndex[id]
	childIDs := make([]string, 0, len(childSet))
	for child := range childSet {
		childIDs = append(childIDs, child)
	}
	sort.Strings(childIDs)

	report := &AnalyticsReport{
		NodeID:           id,
		FractalDimension: fractalDimension(len(childIDs)),
	}

	coords := coordinateVector(node, len(childIDs))
	report.SymmetryScore = symmetryScore(coords)

	if node.ParentID != "" {
		if parent, ok := s.nodes[node.ParentID]; ok {
			parentChildren := len(s.childIndex[parent.ID])
			d := euclideanDistance(coords, coordinateVector(parent, parentChildren))
			report.ParentDistance = &d
		}
	}

	signal := []float64{coherenceSignal(node)}
	if len(childIDs) > 0 {
		report.ChildDistances = make(map[string]float64, len(childIDs))
		for _, childID := range childIDs {
			child := s.nodes[childID]
			childChildren := len(s.childIndex[childID])
			report.ChildDistances[childID] = euclideanDistance(coords, coordinateVector(child, childChildren))
			signal = append(signal, coherenceSignal(child))
		}
	}
	report.CoherenceScore = coherenceScore(signal)

	return report, nil
}

// fractalDimension estimates branching complexity: log(childCount)/log(2),
// 0 when there are no children.
func fractalDimension(childCount int) float64 {
	if childCount < 1 {
		return 0
	}
	return math.Log(float64(childCount)) / math.Log(2)
}

// coordinateVector embeds a node's signature into a numeric space:
// [frequency/963, coherence, dissonance, self-similarity]. Every component
// lies in [0,1].
func coordinateVector(node *datatypes.Node, childCount int) []float64 {
	return []float64{
		frequencyValue(node.Signature) / 963.0,
		coherenceSignal(node),
		dissonanceSignal(node),
		ontology.SelfSimilarity(node.Structure.FractalDepth, childCount),
	}
}

func frequencyValue(sig datatypes.Signature) float64 {
	raw, ok := sig.Axes[ontology.AxisFrequency]
	if !ok {
		return 0
	}
	hz, err := strconv.ParseFloat(strings.TrimPrefix(raw, "freq."), 64)
	if err != nil {
		return 0
	}
	return hz
}

func coherenceSignal(node *datatypes.Node) float64 {
	if v, ok := scoreExtra(node.Signature, "coherence_score"); ok {
		return v
	}
	return ontology.CoherenceForResonance[node.Signature.Axes[ontology.AxisResonancePattern]]
}

func dissonanceSignal(node *datatypes.Node) float64 {
	if v, ok := scoreExtra(node.Signature, "dissonance_score"); ok {
		return v
	}
	return ontology.DissonanceForResonance[node.Signature.Axes[ontology.AxisResonancePattern]]
}

func scoreExtra(sig datatypes.Signature, key string) (float64, bool) {
	raw, ok := sig.Extra[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// euclideanDistance handles unequal lengths by treating missing components
// as zero.
func euclideanDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		var av, bv float64
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		d := av - bv
		sum += d * d
	}
	return math.Sqrt(sum)
}

// symmetryScore compares coordinate i against coordinate n-1-i, giving
// each pair 1/(1+|diff|), normalized over the pair count. A perfectly
// mirror-symmetric vector scores 1.
func symmetryScore(coords []float64) float64 {
	n := len(coords)
	if n == 0 {
		return 0
	}
	pairs := n / 2
	if pairs == 0 {
		return 1
	}
	sum := 0.0
	for i := 0; i < pairs; i++ {
		diff := math.Abs(coords[i] - coords[n-1-i])
		sum += 1 / (1 + diff)
	}
	return sum / float64(pairs)
}

// coherenceScore is 1/(1+variance) over the signal. Empty signals score 0.
func coherenceScore(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range signal {
		mean += v
	}
	mean /= float64(len(signal))
	variance := 0.0
	for _, v := range signal {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(signal))
	return 1 / (1 + variance)
}
