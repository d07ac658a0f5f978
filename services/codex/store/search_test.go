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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_RanksNameMatchesFirst(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	nameHit, err := s.Create(ctx, CreateRequest{Type: "data_node", Name: "water cycle", Content: "rain"})
	require.NoError(t, err)
	contentHit, err := s.Create(ctx, CreateRequest{Type: "data_node", Name: "clouds", Content: "water vapor rising"})
	require.NoError(t, err)
	_, err = s.Create(ctx, CreateRequest{Type: "data_node", Name: "granite", Content: "igneous rock"})
	require.NoError(t, err)

	results := s.Search(ctx, SearchQuery{Query: "water"})
	require.Len(t, results, 2)
	assert.Equal(t, nameHit.ID, results[0].Node.ID)
	assert.Equal(t, contentHit.ID, results[1].Node.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestSearch_TypeFilter(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	keep, err := s.Create(ctx, CreateRequest{Type: "concept", Name: "flow"})
	require.NoError(t, err)
	_, err = s.Create(ctx, CreateRequest{Type: "data_node", Name: "flow"})
	require.NoError(t, err)

	results := s.Search(ctx, SearchQuery{Query: "flow", Type: "concept"})
	require.Len(t, results, 1)
	assert.Equal(t, keep.ID, results[0].Node.ID)
}

func TestSearch_EmptyQueryListsByType(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, CreateRequest{Type: "concept", Name: "a"})
	require.NoError(t, err)
	_, err = s.Create(ctx, CreateRequest{Type: "concept", Name: "b"})
	require.NoError(t, err)
	_, err = s.Create(ctx, CreateRequest{Type: "data_node", Name: "c"})
	require.NoError(t, err)

	results := s.Search(ctx, SearchQuery{Type: "concept"})
	assert.Len(t, results, 2)
}

func TestSearch_Limit(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"echo one", "echo two", "echo three"} {
		_, err := s.Create(ctx, CreateRequest{Type: "data_node", Name: name})
		require.NoError(t, err)
	}

	results := s.Search(ctx, SearchQuery{Query: "echo", Limit: 2})
	assert.Len(t, results, 2)
}

type staticEnricher struct {
	terms []string
	err   error
}

func (e *staticEnricher) Enrich(_ context.Context, _ string) ([]string, error) {
	return e.terms, e.err
}

func TestSearch_EnricherExpandsQuery(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	hidden, err := s.Create(ctx, CreateRequest{Type: "data_node", Name: "aquifer"})
	require.NoError(t, err)

	results := s.Search(ctx, SearchQuery{Query: "groundwater"})
	assert.Empty(t, results)

	s.SetEnricher(&staticEnricher{terms: []string{"aquifer"}})
	results = s.Search(ctx, SearchQuery{Query: "groundwater"})
	require.Len(t, results, 1)
	assert.Equal(t, hidden.ID, results[0].Node.ID)
}

func TestSearch_EnricherFailureIsNonFatal(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	node, err := s.Create(ctx, CreateRequest{Type: "data_node", Name: "river"})
	require.NoError(t, err)

	s.SetEnricher(&staticEnricher{err: errors.New("upstream down")})
	results := s.Search(ctx, SearchQuery{Query: "river"})
	require.Len(t, results, 1)
	assert.Equal(t, node.ID, results[0].Node.ID)
}

func TestSearch_DefaultAxisValuesDoNotResonate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// The factory fills programming_layer with "water" on nodes that
	// never chose it. That filler must not make an unrelated node match
	// a query for "water".
	_, err := s.Create(ctx, CreateRequest{Type: "data_node", Name: "granite", Content: "igneous rock"})
	require.NoError(t, err)

	results := s.Search(ctx, SearchQuery{Query: "water"})
	assert.Empty(t, results)

	// An explicitly chosen value still resonates.
	chosen, err := s.Create(ctx, CreateRequest{
		Type:      "data_node",
		Name:      "basalt",
		Signature: map[string]string{"water_state": "ws.ice"},
	})
	require.NoError(t, err)

	results = s.Search(ctx, SearchQuery{Query: "ice"})
	require.Len(t, results, 1)
	assert.Equal(t, chosen.ID, results[0].Node.ID)
}

func TestSearch_SignatureMatch(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	node, err := s.Create(ctx, CreateRequest{
		Type:      "data_node",
		Name:      "nameless",
		Signature: map[string]string{"water_state": "ws.plasma"},
	})
	require.NoError(t, err)

	results := s.Search(ctx, SearchQuery{Query: "plasma"})
	require.Len(t, results, 1)
	assert.Equal(t, node.ID, results[0].Node.ID)
}
