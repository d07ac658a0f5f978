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
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/AleutianAI/codexgraph/services/codex/datatypes"
	"github.com/AleutianAI/codexgraph/services/codex/ontology"
)

// Enricher optionally expands a search query with related terms, e.g. via
// an external knowledge source. The store works fully without one; an
// enricher failure only costs the expansion, never the search.
type Enricher interface {
	Enrich(ctx context.Context, query string) ([]string, error)
}

// SetEnricher installs an optional query enricher. Pass nil to remove it.
// Not safe to call concurrently with Search.
func (s *Store) SetEnricher(e Enricher) {
	s.enricher = e
}

// Resonance score weights. Name matches dominate, link strength is a
// small nudge.
const (
	weightName      = 0.4
	weightContent   = 0.3
	weightSignature = 0.2
	weightLinks     = 0.1
)

// SearchQuery selects and ranks nodes.
type SearchQuery struct {
	// Query is free text matched against name, content, and signature.
	Query string

	// Type restricts results to one node type tag. Empty matches all.
	Type string

	// Limit caps the result count. <= 0 means no cap.
	Limit int
}

// SearchResult pairs a node snapshot with its resonance score.
type SearchResult struct {
	Node  *datatypes.Node `json:"node"`
	Score float64         `json:"score"`
}

// Search returns nodes ranked by resonance score in [0,1].
//
// Description:
//
//	The score combines name, content, and signature match strength with
//	the match strength of directly linked nodes (parent and children).
//	Results order is deterministic: score descending, id ascending on
//	ties. Zero-score nodes are dropped unless the query is empty, in
//	which case type filtering alone applies.
func (s *Store) Search(ctx context.Context, q SearchQuery) []SearchResult {
	terms := tokenize(q.Query)
	if s.enricher != nil && q.Query != "" {
		extra, err := s.enricher.Enrich(ctx, q.Query)
		if err != nil {
			s.logger.Warn("search enrichment failed", slog.String("error", err.Error()))
		} else {
			for _, term := range extra {
				terms = append(terms, tokenize(term)...)
			}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []SearchResult
	for _, node := range s.nodes {
		if q.Type != "" && node.Type != q.Type {
			continue
		}
		score := s.resonanceLocked(node, terms)
		if len(terms) > 0 && score == 0 {
			continue
		}
		out = append(out, SearchResult{Node: s.snapshotLocked(node), Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Node.ID < out[j].Node.ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// resonanceLocked scores one node against the query terms. Caller holds at
// least a read lock.
func (s *Store) resonanceLocked(node *datatypes.Node, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	score := weightName*matchFraction(node.Name, terms) +
		weightContent*matchFraction(node.Content, terms) +
		weightSignature*signatureFraction(node.Signature, terms)

	linked := 0
	linkedHits := 0.0
	if node.ParentID != "" {
		if parent, ok := s.nodes[node.ParentID]; ok {
			linked++
			linkedHits += matchFraction(parent.Name, terms)
		}
	}
	for child := range s.childIndex[node.ID] {
		if c, ok := s.nodes[child]; ok {
			linked++
			linkedHits += matchFraction(c.Name, terms)
		}
	}
	if linked > 0 {
		score += weightLinks * (linkedHits / float64(linked))
	}
	if score > 1 {
		score = 1
	}
	return score
}

// matchFraction is the fraction of query terms present in the text.
func matchFraction(text string, terms []string) float64 {
	if text == "" || len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// signatureFraction is the fraction of query terms matching an axis value
// or a string extension field. Axis values still at their factory fallback
// default carry no match weight; they appear on every node and would make
// any query containing a default value resonate with the whole graph.
func signatureFraction(sig datatypes.Signature, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	var values []string
	for axis, v := range sig.Axes {
		if ontology.IsFallbackValue(axis, v) {
			continue
		}
		values = append(values, strings.ToLower(v))
	}
	for _, v := range sig.Extra {
		if str, ok := v.(string); ok {
			values = append(values, strings.ToLower(str))
		}
	}
	hits := 0
	for _, term := range terms {
		for _, v := range values {
			if strings.Contains(v, term) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(terms))
}

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
