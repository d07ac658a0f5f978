// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"testing"
	"time"

	badgerv4 "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codexgraph/services/codex/datatypes"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testNode(id, nodeType, parentID string) *datatypes.Node {
	now := time.Now().UTC()
	return &datatypes.Node{
		ID:       id,
		Type:     nodeType,
		Name:     "node " + id,
		ParentID: parentID,
		Signature: datatypes.Signature{
			Axes: map[string]string{"water_state": "ws.liquid"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOpen_RequiresPathForPersistent(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestDB_PutGetDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	node := testNode("n1", "data_node", "")
	require.NoError(t, db.PutNode(ctx, node, nil))

	got, err := db.GetNode(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, node.Name, got.Name)
	assert.Equal(t, node.Signature.Axes, got.Signature.Axes)

	require.NoError(t, db.DeleteNode(ctx, node))
	_, err = db.GetNode(ctx, "n1")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestDB_SecondaryIndexes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.PutNode(ctx, testNode("root", "system_component", ""), nil))
	require.NoError(t, db.PutNode(ctx, testNode("a", "data_node", "root"), nil))
	require.NoError(t, db.PutNode(ctx, testNode("b", "data_node", "root"), nil))

	byType, err := db.IDsByType(ctx, "data_node")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, byType)

	byParent, err := db.IDsByParent(ctx, "root")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, byParent)
}

func TestDB_PutNodeClearsStaleIndexEntries(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.PutNode(ctx, testNode("root", "system_component", ""), nil))
	require.NoError(t, db.PutNode(ctx, testNode("other", "system_component", ""), nil))

	prev := testNode("a", "data_node", "root")
	require.NoError(t, db.PutNode(ctx, prev, nil))

	moved := testNode("a", "concept", "other")
	require.NoError(t, db.PutNode(ctx, moved, prev))

	byOld, err := db.IDsByParent(ctx, "root")
	require.NoError(t, err)
	assert.Empty(t, byOld)

	byNew, err := db.IDsByParent(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, byNew)

	byType, err := db.IDsByType(ctx, "data_node")
	require.NoError(t, err)
	assert.Empty(t, byType)
}

func TestDB_ForEachNode(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.PutNode(ctx, testNode("n1", "data_node", ""), nil))
	require.NoError(t, db.PutNode(ctx, testNode("n2", "data_node", "n1"), nil))

	seen := map[string]string{}
	err := db.ForEachNode(ctx, func(n *datatypes.Node) error {
		seen[n.ID] = n.ParentID
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"n1": "", "n2": "n1"}, seen)
}

func TestDB_WithTxnRespectsCancelledContext(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := db.WithTxn(ctx, func(txn *badgerv4.Txn) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
