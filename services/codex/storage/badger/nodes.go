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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/codexgraph/services/codex/datatypes"
)

// Key scheme:
//
//	node/<id>                  → JSON-encoded node record
//	idx/type/<type>/<id>       → empty (secondary index on type)
//	idx/parent/<parent>/<id>   → empty (secondary index on parent_id)
//
// Index entries carry no value; the id suffix of the key is the answer.
const (
	nodePrefix   = "node/"
	typePrefix   = "idx/type/"
	parentPrefix = "idx/parent/"
)

// ErrRecordNotFound is returned by GetNode for unknown ids.
var ErrRecordNotFound = errors.New("node record not found")

func nodeKey(id string) []byte {
	return []byte(nodePrefix + id)
}

func typeKey(nodeType, id string) []byte {
	return []byte(typePrefix + nodeType + "/" + id)
}

func parentKey(parentID, id string) []byte {
	return []byte(parentPrefix + parentID + "/" + id)
}

// PutNode writes a node record and its secondary index entries in one
// transaction. prev supplies the previously stored version so stale index
// entries can be cleared; pass nil on first insert.
func (d *DB) PutNode(ctx context.Context, node *datatypes.Node, prev *datatypes.Node) error {
	payload, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("encode node %s: %w", node.ID, err)
	}
	return d.WithTxn(ctx, func(txn *badger.Txn) error {
		if prev != nil {
			if prev.Type != node.Type {
				if err := txn.Delete(typeKey(prev.Type, prev.ID)); err != nil {
					return err
				}
			}
			if prev.ParentID != node.ParentID && prev.ParentID != "" {
				if err := txn.Delete(parentKey(prev.ParentID, prev.ID)); err != nil {
					return err
				}
			}
		}
		if err := txn.Set(nodeKey(node.ID), payload); err != nil {
			return err
		}
		if err := txn.Set(typeKey(node.Type, node.ID), nil); err != nil {
			return err
		}
		if node.ParentID != "" {
			if err := txn.Set(parentKey(node.ParentID, node.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetNode reads one node record by id.
func (d *DB) GetNode(ctx context.Context, id string) (*datatypes.Node, error) {
	var node datatypes.Node
	err := d.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &node)
		})
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// DeleteNode removes a node record and its index entries.
func (d *DB) DeleteNode(ctx context.Context, node *datatypes.Node) error {
	return d.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Delete(nodeKey(node.ID)); err != nil {
			return err
		}
		if err := txn.Delete(typeKey(node.Type, node.ID)); err != nil {
			return err
		}
		if node.ParentID != "" {
			return txn.Delete(parentKey(node.ParentID, node.ID))
		}
		return nil
	})
}

// ForEachNode streams every stored node record to fn. Used by the node
// store to rebuild its in-memory indexes at startup. Iteration stops on
// the first error from fn.
func (d *DB) ForEachNode(ctx context.Context, fn func(*datatypes.Node) error) error {
	return d.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(nodePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var node datatypes.Node
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &node)
			})
			if err != nil {
				return err
			}
			if err := fn(&node); err != nil {
				return err
			}
		}
		return nil
	})
}

// IDsByType returns the ids of all nodes with the given type tag, using
// the secondary index only.
func (d *DB) IDsByType(ctx context.Context, nodeType string) ([]string, error) {
	return d.idsByPrefix(ctx, typePrefix+nodeType+"/")
}

// IDsByParent returns the ids of all nodes whose parent_id matches,
// using the secondary index only.
func (d *DB) IDsByParent(ctx context.Context, parentID string) ([]string, error) {
	return d.idsByPrefix(ctx, parentPrefix+parentID+"/")
}

func (d *DB) idsByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	err := d.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, key[len(prefix):])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
