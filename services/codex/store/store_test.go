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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codexgraph/services/codex/datatypes"
	"github.com/AleutianAI/codexgraph/services/codex/ontology"
	storage "github.com/AleutianAI/codexgraph/services/codex/storage/badger"
)

func newTestStore(t *testing.T) (*Store, *storage.DB) {
	t.Helper()
	db, err := storage.Open(storage.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewStore(context.Background(), db, ontology.NewRegistry(), Config{})
	require.NoError(t, err)
	return s, db
}

func mustCreate(t *testing.T, s *Store, name, parentID string) *datatypes.Node {
	t.Helper()
	node, err := s.Create(context.Background(), CreateRequest{
		Type:     "data_node",
		Name:     name,
		Content:  "content of " + name,
		ParentID: parentID,
	})
	require.NoError(t, err)
	return node
}

func TestStore_CreateRootAndChild(t *testing.T) {
	s, _ := newTestStore(t)

	root := mustCreate(t, s, "root", "")
	assert.Equal(t, 0, root.Structure.FractalDepth)
	assert.Empty(t, root.ParentID)
	assert.NotEmpty(t, root.ID)
	assert.False(t, root.CreatedAt.IsZero())

	child := mustCreate(t, s, "child", root.ID)
	assert.Equal(t, 1, child.Structure.FractalDepth)
	assert.Equal(t, root.ID, child.ParentID)

	children, err := s.Children(root.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, child.ID, children[0].ID)
}

func TestStore_CreateFillsSignature(t *testing.T) {
	s, _ := newTestStore(t)

	node, err := s.Create(context.Background(), CreateRequest{
		Type: "system_component",
		Name: "scheduler",
	})
	require.NoError(t, err)

	// The template pairs system components with the ice regime.
	assert.Equal(t, ontology.WaterIce, node.Signature.Axes[ontology.AxisWaterState])
	assert.Contains(t, node.Signature.Extra, "coherence_score")
	for _, axis := range ontology.NewRegistry().AxisNames() {
		assert.Contains(t, node.Signature.Axes, axis)
	}
}

func TestStore_CreateRejectsBadInput(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Create(context.Background(), CreateRequest{
		Type:     "data_node",
		Name:     "orphan",
		ParentID: "missing",
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Create(context.Background(), CreateRequest{
		Type:      "data_node",
		Name:      "bad-sig",
		Signature: map[string]string{ontology.AxisChakra: "ch.ankle"},
	})
	assert.ErrorIs(t, err, ontology.ErrInvalidAxisValue)
}

func TestStore_ParentChildDuality(t *testing.T) {
	s, _ := newTestStore(t)

	root := mustCreate(t, s, "root", "")
	a := mustCreate(t, s, "a", root.ID)
	b := mustCreate(t, s, "b", root.ID)

	got, err := s.Get(root.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, got.Children)

	for _, childID := range got.Children {
		child, err := s.Get(childID)
		require.NoError(t, err)
		assert.Equal(t, root.ID, child.ParentID)
	}
}

func TestStore_GetReturnsDeepCopy(t *testing.T) {
	s, _ := newTestStore(t)

	root := mustCreate(t, s, "root", "")
	got, err := s.Get(root.ID)
	require.NoError(t, err)
	got.Name = "mutated"
	got.Signature.Axes[ontology.AxisChakra] = "ch.root"

	again, err := s.Get(root.ID)
	require.NoError(t, err)
	assert.Equal(t, "root", again.Name)
	assert.NotEqual(t, "ch.root", again.Signature.Axes[ontology.AxisChakra])
}

func TestStore_UpdateFields(t *testing.T) {
	s, _ := newTestStore(t)

	node := mustCreate(t, s, "before", "")
	name := "after"
	content := "fresh content"
	updated, err := s.Update(context.Background(), node.ID, UpdateRequest{
		Name:    &name,
		Content: &content,
	})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Name)
	assert.Equal(t, "fresh content", updated.Content)
	assert.True(t, updated.UpdatedAt.After(node.UpdatedAt) || updated.UpdatedAt.Equal(node.UpdatedAt))
}

func TestStore_UpdateRevalidatesSignature(t *testing.T) {
	s, _ := newTestStore(t)

	node := mustCreate(t, s, "n", "")
	_, err := s.Update(context.Background(), node.ID, UpdateRequest{
		Signature: map[string]string{ontology.AxisWaterState: "ws.frozen"},
	})
	assert.ErrorIs(t, err, ontology.ErrInvalidAxisValue)

	// Valid override goes through and re-derives scores.
	updated, err := s.Update(context.Background(), node.ID, UpdateRequest{
		Signature: map[string]string{ontology.AxisResonancePattern: ontology.ResonanceDestructive},
	})
	require.NoError(t, err)
	assert.Equal(t, ontology.ResonanceDestructive, updated.Signature.Axes[ontology.AxisResonancePattern])
}

func TestStore_ReparentIntoDescendantRejected(t *testing.T) {
	s, _ := newTestStore(t)

	root := mustCreate(t, s, "root", "")
	mid := mustCreate(t, s, "mid", root.ID)
	leaf := mustCreate(t, s, "leaf", mid.ID)

	_, err := s.Update(context.Background(), mid.ID, UpdateRequest{ParentID: &leaf.ID})
	assert.ErrorIs(t, err, ErrCycleDetected)

	_, err = s.Update(context.Background(), mid.ID, UpdateRequest{ParentID: &mid.ID})
	assert.ErrorIs(t, err, ErrCycleDetected)

	// State unchanged after the rejected mutations.
	got, err := s.Get(mid.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, got.ParentID)
	assert.Equal(t, 1, got.Structure.FractalDepth)
}

func TestStore_ConcurrentReparentsCannotFormCycle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 40; i++ {
		a := mustCreate(t, s, "a", "")
		aChild := mustCreate(t, s, "a-child", a.ID)
		b := mustCreate(t, s, "b", "")
		bChild := mustCreate(t, s, "b-child", b.ID)

		// Each re-parent is legal on its own; committing both would
		// close a loop. The two per-id lock sets are disjoint, so only
		// the re-check under the write lock can stop the loser.
		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = s.Update(ctx, a.ID, UpdateRequest{ParentID: &bChild.ID})
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = s.Update(ctx, b.ID, UpdateRequest{ParentID: &aChild.ID})
		}()
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, ErrCycleDetected)
			}
		}
		require.False(t, errs[0] == nil && errs[1] == nil,
			"both re-parents committed; topology now has a cycle")

		// Every parent chain must still terminate at a root.
		for _, id := range []string{a.ID, aChild.ID, b.ID, bChild.ID} {
			seen := map[string]bool{}
			for cur := id; cur != ""; {
				require.False(t, seen[cur], "parent chain loops through %s", cur)
				seen[cur] = true
				node, err := s.Get(cur)
				require.NoError(t, err)
				cur = node.ParentID
			}
		}
	}
}

func TestStore_ReparentRecomputesSubtreeDepths(t *testing.T) {
	s, _ := newTestStore(t)

	rootA := mustCreate(t, s, "root-a", "")
	rootB := mustCreate(t, s, "root-b", "")
	deep := mustCreate(t, s, "deep", rootB.ID)
	mid := mustCreate(t, s, "mid", rootA.ID)
	leaf := mustCreate(t, s, "leaf", mid.ID)

	// Move mid under deep: depths must shift from 1/2 to 2/3.
	_, err := s.Update(context.Background(), mid.ID, UpdateRequest{ParentID: &deep.ID})
	require.NoError(t, err)

	gotMid, err := s.Get(mid.ID)
	require.NoError(t, err)
	assert.Equal(t, deep.ID, gotMid.ParentID)
	assert.Equal(t, 2, gotMid.Structure.FractalDepth)

	gotLeaf, err := s.Get(leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, gotLeaf.Structure.FractalDepth)

	// Old parent no longer lists the moved node.
	gotA, err := s.Get(rootA.ID)
	require.NoError(t, err)
	assert.NotContains(t, gotA.Children, mid.ID)
}

func TestStore_DetachToRootViaUpdate(t *testing.T) {
	s, _ := newTestStore(t)

	root := mustCreate(t, s, "root", "")
	child := mustCreate(t, s, "child", root.ID)

	empty := ""
	updated, err := s.Update(context.Background(), child.ID, UpdateRequest{ParentID: &empty})
	require.NoError(t, err)
	assert.Empty(t, updated.ParentID)
	assert.Equal(t, 0, updated.Structure.FractalDepth)
}

func TestStore_DeleteDefaultPolicyRejectsWithChildren(t *testing.T) {
	s, _ := newTestStore(t)

	root := mustCreate(t, s, "root", "")
	child := mustCreate(t, s, "child", root.ID)

	err := s.Delete(context.Background(), root.ID, "")
	assert.ErrorIs(t, err, ErrConflict)

	// Node and children unchanged.
	got, err := s.Get(root.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Children, child.ID)
}

func TestStore_DeleteLeaf(t *testing.T) {
	s, _ := newTestStore(t)

	root := mustCreate(t, s, "root", "")
	child := mustCreate(t, s, "child", root.ID)

	require.NoError(t, s.Delete(context.Background(), child.ID, ""))
	_, err := s.Get(child.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.Get(root.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Children)
}

func TestStore_DeleteReparentToGrandparent(t *testing.T) {
	s, _ := newTestStore(t)

	grand := mustCreate(t, s, "grand", "")
	parent := mustCreate(t, s, "parent", grand.ID)
	c1 := mustCreate(t, s, "c1", parent.ID)
	c2 := mustCreate(t, s, "c2", parent.ID)
	leaf := mustCreate(t, s, "leaf", c1.ID)

	require.NoError(t, s.Delete(context.Background(), parent.ID, OrphanReparent))

	for _, id := range []string{c1.ID, c2.ID} {
		got, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, grand.ID, got.ParentID)
		assert.Equal(t, 1, got.Structure.FractalDepth)
	}

	// Grandchildren follow their subtree up one level.
	gotLeaf, err := s.Get(leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, gotLeaf.Structure.FractalDepth)

	gotGrand, err := s.Get(grand.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{c1.ID, c2.ID}, gotGrand.Children)
}

func TestStore_DeleteDetachToRoot(t *testing.T) {
	s, _ := newTestStore(t)

	root := mustCreate(t, s, "root", "")
	parent := mustCreate(t, s, "parent", root.ID)
	child := mustCreate(t, s, "child", parent.ID)

	require.NoError(t, s.Delete(context.Background(), parent.ID, OrphanDetach))

	got, err := s.Get(child.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ParentID)
	assert.Equal(t, 0, got.Structure.FractalDepth)
}

func TestStore_DeleteUnknownPolicy(t *testing.T) {
	s, _ := newTestStore(t)
	node := mustCreate(t, s, "n", "")

	err := s.Delete(context.Background(), node.ID, OrphanPolicy("shrug"))
	assert.ErrorIs(t, err, ErrInvalidOrphanPolicy)
}

func TestStore_AncestorsAndDescendants(t *testing.T) {
	s, _ := newTestStore(t)

	root := mustCreate(t, s, "root", "")
	mid := mustCreate(t, s, "mid", root.ID)
	leaf := mustCreate(t, s, "leaf", mid.ID)

	ancestors, err := s.Ancestors(leaf.ID, 0)
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, mid.ID, ancestors[0].ID)
	assert.Equal(t, root.ID, ancestors[1].ID)

	limited, err := s.Ancestors(leaf.ID, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	descendants, err := s.Descendants(root.ID, 0)
	require.NoError(t, err)
	assert.Len(t, descendants, 2)

	shallow, err := s.Descendants(root.ID, 1)
	require.NoError(t, err)
	require.Len(t, shallow, 1)
	assert.Equal(t, mid.ID, shallow[0].ID)
}

func TestStore_Hierarchy(t *testing.T) {
	s, _ := newTestStore(t)

	root := mustCreate(t, s, "root", "")
	mustCreate(t, s, "mid", root.ID)

	nodes, err := s.Hierarchy(root.ID, 0)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, root.ID, nodes[0].ID)
}

func TestStore_RehydratesFromDisk(t *testing.T) {
	s, db := newTestStore(t)

	root := mustCreate(t, s, "root", "")
	child := mustCreate(t, s, "child", root.ID)

	reloaded, err := NewStore(context.Background(), db, ontology.NewRegistry(), Config{})
	require.NoError(t, err)

	got, err := reloaded.Get(root.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{child.ID}, got.Children)

	gotChild, err := reloaded.Get(child.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotChild.Structure.FractalDepth)
}

func TestStore_ValidateAll(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "root", "")

	report := s.ValidateAll()
	assert.Equal(t, 1, report.Total)
	assert.Zero(t, report.Invalid)
}
