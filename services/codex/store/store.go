// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store implements the fractal node store: CRUD, hierarchy
// maintenance, search, and analytics over locally persisted nodes.
//
// # Topology Model
//
// parent_id is the single source of truth. The children list on a returned
// node is derived from an in-memory parent index at read time and is never
// accepted as caller input, so the two representations cannot drift.
//
// # Concurrency Model
//
// Single logical writer per node id. Reads serve deep copies from a
// consistent snapshot under a read lock. Mutations acquire per-id locks in
// sorted order (the node, its old parent, its new parent) before taking
// the write lock, so mutations on disjoint subtrees proceed independently
// and overlapping re-parents cannot deadlock. Per-id locks are advisory
// only: every topology check is repeated under the write lock immediately
// before the commit, so two re-parents racing on disjoint lock sets
// cannot combine into a cycle. No lock is ever held across
// a network call; BadgerDB writes are local and committed under the write
// lock so a crash cannot observe a half-applied topology change.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/codexgraph/services/codex/datatypes"
	"github.com/AleutianAI/codexgraph/services/codex/ontology"
	storage "github.com/AleutianAI/codexgraph/services/codex/storage/badger"
)

// OrphanPolicy controls what happens to children when their parent is
// deleted.
type OrphanPolicy string

const (
	// OrphanReject blocks the delete while children exist. Default.
	OrphanReject OrphanPolicy = "reject-if-has-children"

	// OrphanReparent moves children to the deleted node's parent.
	OrphanReparent OrphanPolicy = "reparent-to-grandparent"

	// OrphanDetach promotes children to roots.
	OrphanDetach OrphanPolicy = "detach-to-root"
)

// ParseOrphanPolicy maps the wire representation to a policy. The empty
// string selects the store's configured default.
func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	switch OrphanPolicy(s) {
	case OrphanReject, OrphanReparent, OrphanDetach:
		return OrphanPolicy(s), nil
	case "":
		return "", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrphanPolicy, s)
	}
}

// Config holds store configuration.
type Config struct {
	// MaxDepth is the deepest legal fractal depth. Default 16.
	MaxDepth int

	// DefaultOrphanPolicy applies when a delete names no policy.
	// Default OrphanReject.
	DefaultOrphanPolicy OrphanPolicy

	// Logger for store events. Default slog.Default().
	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.MaxDepth <= 0 {
		c.MaxDepth = ontology.MaxFractalLayer
	}
	if c.DefaultOrphanPolicy == "" {
		c.DefaultOrphanPolicy = OrphanReject
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Store is the fractal node store.
type Store struct {
	cfg       Config
	db        *storage.DB
	factory   *ontology.Factory
	validator *ontology.Validator
	logger    *slog.Logger

	locks    *lockTable
	enricher Enricher

	// mu guards nodes and childIndex. Mutations additionally hold the
	// per-id locks of every node whose topology they touch.
	mu         sync.RWMutex
	nodes      map[string]*datatypes.Node
	childIndex map[string]map[string]struct{}
}

// NewStore builds a store over an open database and rehydrates the
// in-memory indexes from persisted records.
//
// Inputs:
//
//	ctx - Context for the initial load.
//	db - Open node database. The store does not take ownership; the
//	     caller closes it after the store is no longer used.
//	reg - Immutable ontology registry.
//	cfg - Store configuration.
//
// Outputs:
//
//	*Store - Ready for concurrent use.
//	error - Non-nil if the persisted records cannot be read.
func NewStore(ctx context.Context, db *storage.DB, reg *ontology.Registry, cfg Config) (*Store, error) {
	cfg.applyDefaults()
	s := &Store{
		cfg:        cfg,
		db:         db,
		factory:    ontology.NewFactory(reg),
		validator:  ontology.NewValidator(reg),
		logger:     cfg.Logger,
		locks:      newLockTable(),
		nodes:      make(map[string]*datatypes.Node),
		childIndex: make(map[string]map[string]struct{}),
	}
	err := db.ForEachNode(ctx, func(n *datatypes.Node) error {
		node := n.Clone()
		node.Children = nil
		s.nodes[node.ID] = node
		if node.ParentID != "" {
			s.addChildLocked(node.ParentID, node.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rehydrate node store: %w", err)
	}
	s.logger.Info("node store loaded", slog.Int("nodes", len(s.nodes)))
	return s, nil
}

// Validator exposes the read-only validator for audit surfaces.
func (s *Store) Validator() *ontology.Validator { return s.validator }

// MaxDepth returns the configured depth bound.
func (s *Store) MaxDepth() int { return s.cfg.MaxDepth }

// DefaultOrphanPolicy returns the configured delete fallback policy.
func (s *Store) DefaultOrphanPolicy() OrphanPolicy { return s.cfg.DefaultOrphanPolicy }

// CreateRequest carries the caller-controlled fields of a new node.
type CreateRequest struct {
	Type     string
	Name     string
	Content  string
	ParentID string

	// Signature holds explicit axis values, membership-checked verbatim.
	Signature map[string]string

	// Context holds free-form fields merged into the signature last.
	Context map[string]any
}

// Create builds, validates, persists, and indexes a new node.
//
// Description:
//
//	The factory completes the signature, the validator hard-gates it,
//	the store assigns the id and timestamps, computes depth from the
//	parent (0 if none), persists the record, and links it under the
//	parent's derived children.
//
// Outputs:
//
//	*datatypes.Node - Deep copy of the created node.
//	error - ErrNotFound (parent missing), *ValidationError (hard check
//	        failed), or ontology errors on bad explicit axis input.
func (s *Store) Create(ctx context.Context, req CreateRequest) (*datatypes.Node, error) {
	sig, err := s.factory.CreateSignatureForType(req.Type, req.Signature, req.Context)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	unlock := s.locks.lock(id, req.ParentID)
	defer unlock()

	depth := 0
	if req.ParentID != "" {
		s.mu.RLock()
		parent, ok := s.nodes[req.ParentID]
		if ok {
			depth = parent.Structure.FractalDepth + 1
		}
		s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: parent %s", ErrNotFound, req.ParentID)
		}
	}

	now := time.Now().UTC()
	node := &datatypes.Node{
		ID:        id,
		Type:      req.Type,
		Name:      req.Name,
		Content:   req.Content,
		ParentID:  req.ParentID,
		Signature: sig,
		Structure: datatypes.StructureInfo{
			FractalDepth:      depth,
			CrossScaleMapping: ontology.CrossScaleForDepth(depth),
			SelfSimilarity:    ontology.SelfSimilarity(depth, 0),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if res := s.validator.ValidateStructure(node, s.cfg.MaxDepth); !res.Valid {
		return nil, &ValidationError{Result: res}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.PutNode(ctx, node, nil); err != nil {
		return nil, fmt.Errorf("persist node %s: %w", id, err)
	}
	s.nodes[id] = node
	if node.ParentID != "" {
		s.addChildLocked(node.ParentID, id)
	}
	s.logger.Debug("node created",
		slog.String("id", id),
		slog.String("type", node.Type),
		slog.Int("depth", depth))
	return s.snapshotLocked(node), nil
}

// Get returns a deep copy of a node with its derived children filled in.
func (s *Store) Get(id string) (*datatypes.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.snapshotLocked(node), nil
}

// Count returns the number of stored nodes.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// All returns deep copies of every node. Intended for audits, not the
// request path.
func (s *Store) All() []*datatypes.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*datatypes.Node, 0, len(s.nodes))
	for _, node := range s.nodes {
		out = append(out, s.snapshotLocked(node))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ValidateAll runs the batch validator over the whole store.
func (s *Store) ValidateAll() ontology.BatchReport {
	return s.validator.ValidateBatch(s.All(), s.cfg.MaxDepth)
}

// UpdateRequest names the mutable fields of a node. Nil pointers leave the
// field untouched.
type UpdateRequest struct {
	Name    *string
	Content *string
	Type    *string

	// ParentID re-parents the node. Empty string detaches to root.
	ParentID *string

	// Signature overlays explicit axis values onto the current ones;
	// the merged signature is rebuilt through the factory and
	// re-validated.
	Signature map[string]string

	// Context merges free-form fields, shadowing derived values only.
	Context map[string]any
}

// Update applies a partial mutation to a node.
//
// Description:
//
//	Merged signatures are re-validated before anything is written. A
//	parent change is rejected with ErrCycleDetected when the new parent
//	is the node itself or one of its descendants; otherwise the node is
//	re-parented and fractal depth is recomputed for its entire subtree.
//
// Outputs:
//
//	*datatypes.Node - Deep copy of the updated node.
//	error - ErrNotFound, ErrCycleDetected, *ValidationError, or
//	        ontology errors on bad explicit axis input.
func (s *Store) Update(ctx context.Context, id string, req UpdateRequest) (*datatypes.Node, error) {
	for {
		s.mu.RLock()
		current, ok := s.nodes[id]
		var oldParent string
		if ok {
			oldParent = current.ParentID
		}
		s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		lockIDs := []string{id, oldParent}
		if req.ParentID != nil {
			lockIDs = append(lockIDs, *req.ParentID)
		}
		unlock := s.locks.lock(lockIDs...)

		// The parent may have moved between the read and the lock.
		s.mu.RLock()
		current, ok = s.nodes[id]
		stable := ok && current.ParentID == oldParent
		s.mu.RUnlock()
		if !ok {
			unlock()
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if !stable {
			unlock()
			continue
		}

		node, err := s.applyUpdate(ctx, id, oldParent, req)
		unlock()
		if errors.Is(err, errStaleParent) {
			continue
		}
		return node, err
	}
}

// applyUpdate performs the mutation. Caller holds the per-id locks for the
// node, its old parent, and (when re-parenting) its new parent. Parent
// existence and acyclicity are re-verified under the write lock before
// anything is written; errStaleParent signals the caller to retry.
func (s *Store) applyUpdate(ctx context.Context, id, oldParent string, req UpdateRequest) (*datatypes.Node, error) {
	s.mu.RLock()
	current := s.nodes[id].Clone()
	s.mu.RUnlock()

	updated := current
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Content != nil {
		updated.Content = *req.Content
	}
	if req.Type != nil {
		updated.Type = *req.Type
	}

	if req.Signature != nil || req.Context != nil {
		explicit := make(map[string]string, len(current.Signature.Axes)+len(req.Signature))
		for axis, value := range current.Signature.Axes {
			explicit[axis] = value
		}
		for axis, value := range req.Signature {
			explicit[axis] = value
		}
		merged := make(map[string]any, len(current.Signature.Extra)+len(req.Context))
		for k, v := range current.Signature.Extra {
			merged[k] = v
		}
		for k, v := range req.Context {
			merged[k] = v
		}
		sig, err := s.factory.CreateSignature(explicit, merged)
		if err != nil {
			return nil, err
		}
		updated.Signature = sig
	}

	newParent := oldParent
	if req.ParentID != nil {
		newParent = *req.ParentID
	}
	reparenting := newParent != oldParent
	if reparenting && newParent == id {
		return nil, fmt.Errorf("%w: %s cannot parent itself", ErrCycleDetected, id)
	}

	// Topology checks run under the write lock, not the read lock above:
	// the per-id locks cover only this node and its two parents, so a
	// concurrent re-parent elsewhere in the graph may have changed
	// ancestry since the optimistic read.
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if prev.ParentID != oldParent {
		return nil, errStaleParent
	}

	newDepth := prev.Structure.FractalDepth
	if reparenting {
		if newParent != "" {
			p, ok := s.nodes[newParent]
			if !ok {
				return nil, fmt.Errorf("%w: parent %s", ErrNotFound, newParent)
			}
			if s.isDescendantLocked(id, newParent) {
				return nil, fmt.Errorf("%w: %s is a descendant of %s", ErrCycleDetected, newParent, id)
			}
			newDepth = p.Structure.FractalDepth + 1
		} else {
			newDepth = 0
		}
	}
	updated.ParentID = newParent

	updated.Structure.FractalDepth = newDepth
	updated.Structure.CrossScaleMapping = ontology.CrossScaleForDepth(newDepth)
	updated.UpdatedAt = time.Now().UTC()

	if res := s.validator.ValidateStructure(updated, s.cfg.MaxDepth); !res.Valid {
		return nil, &ValidationError{Result: res}
	}

	updated.Children = nil
	if err := s.db.PutNode(ctx, updated, prev); err != nil {
		return nil, fmt.Errorf("persist node %s: %w", id, err)
	}
	s.nodes[id] = updated
	if reparenting {
		s.removeChildLocked(oldParent, id)
		if newParent != "" {
			s.addChildLocked(newParent, id)
		}
		if err := s.recomputeSubtreeDepthsLocked(ctx, id); err != nil {
			s.logger.Error("subtree depth recompute failed",
				slog.String("id", id), slog.String("error", err.Error()))
		}
	}
	s.logger.Debug("node updated",
		slog.String("id", id),
		slog.Bool("reparented", reparenting))
	return s.snapshotLocked(updated), nil
}

// Delete removes a node under an explicit orphan policy.
//
// Description:
//
//	Policy "" selects the configured default. OrphanReject fails with
//	ErrConflict while children exist. OrphanReparent reassigns every
//	child to the deleted node's parent; OrphanDetach promotes them to
//	roots. Either way the children's subtrees get their depths
//	recomputed before the call returns.
func (s *Store) Delete(ctx context.Context, id string, policy OrphanPolicy) error {
	if policy == "" {
		policy = s.cfg.DefaultOrphanPolicy
	}
	if _, err := ParseOrphanPolicy(string(policy)); err != nil {
		return err
	}

	for {
		s.mu.RLock()
		node, ok := s.nodes[id]
		var parentID string
		if ok {
			parentID = node.ParentID
		}
		s.mu.RUnlock()
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		unlock := s.locks.lock(id, parentID)

		s.mu.RLock()
		node, ok = s.nodes[id]
		stable := ok && node.ParentID == parentID
		s.mu.RUnlock()
		if !ok {
			unlock()
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if !stable {
			unlock()
			continue
		}

		err := s.applyDelete(ctx, id, parentID, policy)
		unlock()
		return err
	}
}

func (s *Store) applyDelete(ctx context.Context, id, parentID string, policy OrphanPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.nodes[id]
	childSet := s.childIndex[id]
	if len(childSet) > 0 && policy == OrphanReject {
		return fmt.Errorf("%w: %s has %d children", ErrConflict, id, len(childSet))
	}

	children := make([]string, 0, len(childSet))
	for child := range childSet {
		children = append(children, child)
	}
	sort.Strings(children)

	newParent := ""
	if policy == OrphanReparent {
		newParent = parentID
	}

	// Persist the whole topology change before touching memory so a
	// failure leaves both views on the old state.
	for _, childID := range children {
		prev := s.nodes[childID]
		moved := prev.Clone()
		moved.ParentID = newParent
		moved.UpdatedAt = time.Now().UTC()
		moved.Children = nil
		if err := s.db.PutNode(ctx, moved, prev); err != nil {
			return fmt.Errorf("reassign child %s: %w", childID, err)
		}
		s.nodes[childID] = moved
	}
	if err := s.db.DeleteNode(ctx, node); err != nil {
		return fmt.Errorf("delete node %s: %w", id, err)
	}

	delete(s.nodes, id)
	delete(s.childIndex, id)
	s.removeChildLocked(parentID, id)
	for _, childID := range children {
		if newParent != "" {
			s.addChildLocked(newParent, childID)
		}
		if err := s.recomputeSubtreeDepthsLocked(ctx, childID); err != nil {
			s.logger.Error("subtree depth recompute failed",
				slog.String("id", childID), slog.String("error", err.Error()))
		}
	}
	s.logger.Debug("node deleted",
		slog.String("id", id),
		slog.String("policy", string(policy)),
		slog.Int("orphans", len(children)))
	return nil
}

// snapshotLocked deep-copies a node, fills derived children in sorted
// order, and refreshes the read-time self-similarity score. Caller holds
// at least a read lock.
func (s *Store) snapshotLocked(node *datatypes.Node) *datatypes.Node {
	out := node.Clone()
	childSet := s.childIndex[node.ID]
	out.Children = make([]string, 0, len(childSet))
	for child := range childSet {
		out.Children = append(out.Children, child)
	}
	sort.Strings(out.Children)
	out.Structure.SelfSimilarity = ontology.SelfSimilarity(out.Structure.FractalDepth, len(out.Children))
	return out
}

func (s *Store) addChildLocked(parentID, childID string) {
	set, ok := s.childIndex[parentID]
	if !ok {
		set = make(map[string]struct{})
		s.childIndex[parentID] = set
	}
	set[childID] = struct{}{}
}

func (s *Store) removeChildLocked(parentID, childID string) {
	if parentID == "" {
		return
	}
	set, ok := s.childIndex[parentID]
	if !ok {
		return
	}
	delete(set, childID)
	if len(set) == 0 {
		delete(s.childIndex, parentID)
	}
}
