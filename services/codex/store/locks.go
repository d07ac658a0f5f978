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
	"sort"
	"sync"
)

// lockTable provides per-node-id mutual exclusion for mutations.
//
// Multi-id acquisition always locks in sorted id order, so two re-parents
// touching overlapping id sets cannot deadlock against each other.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*idLock)}
}

// lock acquires the mutation locks for the given ids, deduplicated and in
// sorted order. Returns an unlock function releasing them in reverse order.
func (t *lockTable) lock(ids ...string) func() {
	unique := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			unique[id] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(unique))
	for id := range unique {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	acquired := make([]*idLock, 0, len(sorted))
	for _, id := range sorted {
		l := t.acquire(id)
		l.mu.Lock()
		acquired = append(acquired, l)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].mu.Unlock()
		}
		t.mu.Lock()
		for _, id := range sorted {
			t.release(id)
		}
		t.mu.Unlock()
	}
}

func (t *lockTable) acquire(id string) *idLock {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[id]
	if !ok {
		l = &idLock{}
		t.locks[id] = l
	}
	l.refs++
	return l
}

// release drops one reference; the entry is reclaimed once unused.
// Caller holds t.mu.
func (t *lockTable) release(id string) {
	l, ok := t.locks[id]
	if !ok {
		return
	}
	l.refs--
	if l.refs <= 0 {
		delete(t.locks, id)
	}
}
