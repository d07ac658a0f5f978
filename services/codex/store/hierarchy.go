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
	"fmt"
	"sort"

	"github.com/AleutianAI/codexgraph/services/codex/datatypes"
	"github.com/AleutianAI/codexgraph/services/codex/ontology"
)

// Children returns deep copies of a node's direct children, sorted by id.
func (s *Store) Children(id string) ([]*datatypes.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	childSet := s.childIndex[id]
	ids := make([]string, 0, len(childSet))
	for child := range childSet {
		ids = append(ids, child)
	}
	sort.Strings(ids)
	out := make([]*datatypes.Node, 0, len(ids))
	for _, child := range ids {
		out = append(out, s.snapshotLocked(s.nodes[child]))
	}
	return out, nil
}

// Ancestors returns the chain from a node's parent up to its root, nearest
// first. maxDepth <= 0 means unbounded; the chain is always finite because
// the hierarchy is acyclic.
func (s *Store) Ancestors(id string, maxDepth int) ([]*datatypes.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var out []*datatypes.Node
	for current := node; current.ParentID != ""; {
		parent, ok := s.nodes[current.ParentID]
		if !ok {
			break
		}
		out = append(out, s.snapshotLocked(parent))
		if maxDepth > 0 && len(out) >= maxDepth {
			break
		}
		current = parent
	}
	return out, nil
}

// Descendants returns the subtree below a node in breadth-first order,
// excluding the node itself. maxDepth <= 0 means unbounded.
func (s *Store) Descendants(id string, maxDepth int) ([]*datatypes.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var out []*datatypes.Node
	type frame struct {
		id    string
		level int
	}
	queue := []frame{{id: id}}
	for len(queue) > 0 {
		head := queue[0]
		queue = queue[1:]
		if maxDepth > 0 && head.level >= maxDepth {
			continue
		}
		childSet := s.childIndex[head.id]
		ids := make([]string, 0, len(childSet))
		for child := range childSet {
			ids = append(ids, child)
		}
		sort.Strings(ids)
		for _, child := range ids {
			out = append(out, s.snapshotLocked(s.nodes[child]))
			queue = append(queue, frame{id: child, level: head.level + 1})
		}
	}
	return out, nil
}

// Hierarchy returns a node together with its descendant subtree, the root
// first. Used by the /hierarchy façade endpoint.
func (s *Store) Hierarchy(id string, maxDepth int) ([]*datatypes.Node, error) {
	root, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	rest, err := s.Descendants(id, maxDepth)
	if err != nil {
		return nil, err
	}
	return append([]*datatypes.Node{root}, rest...), nil
}

// Roots returns every parentless node, sorted by id.
func (s *Store) Roots() []*datatypes.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*datatypes.Node
	for _, node := range s.nodes {
		if node.ParentID == "" {
			out = append(out, s.snapshotLocked(node))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// isDescendantLocked reports whether candidate lies in the subtree rooted
// at rootID. Caller holds at least a read lock.
func (s *Store) isDescendantLocked(rootID, candidate string) bool {
	queue := []string{rootID}
	for len(queue) > 0 {
		head := queue[0]
		queue = queue[1:]
		for child := range s.childIndex[head] {
			if child == candidate {
				return true
			}
			queue = append(queue, child)
		}
	}
	return false
}

// recomputeSubtreeDepthsLocked walks the subtree rooted at id and rewrites
// fractal depth and the depth-derived scale labels from each node's
// parent. The walk is a bounded tree traversal; the acyclicity invariant
// keeps it finite. Caller holds the write lock.
func (s *Store) recomputeSubtreeDepthsLocked(ctx context.Context, id string) error {
	queue := []string{id}
	for len(queue) > 0 {
		head := queue[0]
		queue = queue[1:]
		node := s.nodes[head]
		if node == nil {
			continue
		}

		depth := 0
		if node.ParentID != "" {
			if parent, ok := s.nodes[node.ParentID]; ok {
				depth = parent.Structure.FractalDepth + 1
			}
		}
		if depth != node.Structure.FractalDepth {
			updated := node.Clone()
			updated.Structure.FractalDepth = depth
			updated.Structure.CrossScaleMapping = ontology.CrossScaleForDepth(depth)
			updated.Children = nil
			if err := s.db.PutNode(ctx, updated, node); err != nil {
				return fmt.Errorf("persist depth for %s: %w", head, err)
			}
			s.nodes[head] = updated
		}

		for child := range s.childIndex[head] {
			queue = append(queue, child)
		}
	}
	return nil
}
