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
	"log/slog"
	"time"

	"github.com/AleutianAI/codexgraph/services/codex/datatypes"
	"github.com/AleutianAI/codexgraph/services/codex/ontology"
)

// Import materializes an externally sourced node under its own id,
// preserving its timestamps. Used by the sync manager to hydrate nodes
// pulled from the remote backend.
//
// Description:
//
//	The signature is completed through the factory and hard-validated
//	like any other write. The parent must already be local (the caller
//	hydrates parents first); depth is always recomputed from the local
//	parent, never trusted from the remote copy. An existing node with
//	the same id is replaced wholesale, and its subtree depths are
//	recomputed if the import moved it.
//
// Outputs:
//
//	*datatypes.Node - Deep copy of the imported node.
//	error - ErrNotFound (parent not local), ErrCycleDetected,
//	        *ValidationError, or ontology errors.
func (s *Store) Import(ctx context.Context, incoming *datatypes.Node) (*datatypes.Node, error) {
	if incoming == nil || incoming.ID == "" {
		return nil, fmt.Errorf("%w: import requires a node id", ErrValidationFailed)
	}

	sig, err := s.factory.CreateSignature(incoming.Signature.Axes, incoming.Signature.Extra)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(incoming.ID, incoming.ParentID)
	defer unlock()

	node := incoming.Clone()
	node.Children = nil
	node.Signature = sig
	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now().UTC()
	}
	if node.UpdatedAt.IsZero() {
		node.UpdatedAt = node.CreatedAt
	}

	// Parent lookup, cycle check, and depth derivation happen under the
	// write lock: the per-id locks cover only this node and its parent,
	// and a concurrent re-parent elsewhere could otherwise slip between
	// check and commit.
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.nodes[node.ID]
	var oldParent string
	if existing != nil {
		oldParent = existing.ParentID
	}
	depth := 0
	if node.ParentID != "" {
		parent, ok := s.nodes[node.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: parent %s not local", ErrNotFound, node.ParentID)
		}
		if node.ParentID == node.ID ||
			(existing != nil && s.isDescendantLocked(node.ID, node.ParentID)) {
			return nil, fmt.Errorf("%w: import of %s", ErrCycleDetected, node.ID)
		}
		depth = parent.Structure.FractalDepth + 1
	}
	node.Structure.FractalDepth = depth
	node.Structure.CrossScaleMapping = ontology.CrossScaleForDepth(depth)
	node.Structure.SelfSimilarity = ontology.SelfSimilarity(depth, 0)

	if res := s.validator.ValidateStructure(node, s.cfg.MaxDepth); !res.Valid {
		return nil, &ValidationError{Result: res}
	}

	if err := s.db.PutNode(ctx, node, existing); err != nil {
		return nil, fmt.Errorf("persist imported node %s: %w", node.ID, err)
	}
	s.nodes[node.ID] = node
	if existing != nil && oldParent != node.ParentID {
		s.removeChildLocked(oldParent, node.ID)
	}
	if node.ParentID != "" {
		s.addChildLocked(node.ParentID, node.ID)
	}
	if err := s.recomputeSubtreeDepthsLocked(ctx, node.ID); err != nil {
		s.logger.Error("subtree depth recompute failed",
			slog.String("id", node.ID), slog.String("error", err.Error()))
	}
	s.logger.Debug("node imported", slog.String("id", node.ID))
	return s.snapshotLocked(node), nil
}
