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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalytics_FractalDimension(t *testing.T) {
	s, _ := newTestStore(t)

	root := mustCreate(t, s, "root", "")
	report, err := s.Analytics(root.ID)
	require.NoError(t, err)
	assert.Zero(t, report.FractalDimension)

	mustCreate(t, s, "c1", root.ID)
	mustCreate(t, s, "c2", root.ID)
	mustCreate(t, s, "c3", root.ID)
	mustCreate(t, s, "c4", root.ID)

	report, err = s.Analytics(root.ID)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, report.FractalDimension, 1e-9)
}

func TestAnalytics_Distances(t *testing.T) {
	s, _ := newTestStore(t)

	root := mustCreate(t, s, "root", "")
	child := mustCreate(t, s, "child", root.ID)

	report, err := s.Analytics(child.ID)
	require.NoError(t, err)
	require.NotNil(t, report.ParentDistance)
	assert.GreaterOrEqual(t, *report.ParentDistance, 0.0)

	rootReport, err := s.Analytics(root.ID)
	require.NoError(t, err)
	assert.Nil(t, rootReport.ParentDistance)
	require.Contains(t, rootReport.ChildDistances, child.ID)
	assert.InDelta(t, *report.ParentDistance, rootReport.ChildDistances[child.ID], 1e-9)
}

func TestAnalytics_ScoresBounded(t *testing.T) {
	s, _ := newTestStore(t)

	root := mustCreate(t, s, "root", "")
	mustCreate(t, s, "child", root.ID)

	report, err := s.Analytics(root.ID)
	require.NoError(t, err)
	assert.Greater(t, report.SymmetryScore, 0.0)
	assert.LessOrEqual(t, report.SymmetryScore, 1.0)
	assert.Greater(t, report.CoherenceScore, 0.0)
	assert.LessOrEqual(t, report.CoherenceScore, 1.0)
}

func TestAnalytics_UnknownNode(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Analytics("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSymmetryScore(t *testing.T) {
	assert.InDelta(t, 1.0, symmetryScore([]float64{0.3, 0.9, 0.3}), 1e-9)
	assert.InDelta(t, 1/(1+0.5), symmetryScore([]float64{0.0, 0.5}), 1e-9)
	assert.InDelta(t, 1.0, symmetryScore([]float64{0.7}), 1e-9)
	assert.Zero(t, symmetryScore(nil))
}

func TestCoherenceScore(t *testing.T) {
	assert.InDelta(t, 1.0, coherenceScore([]float64{0.5, 0.5, 0.5}), 1e-9)
	uniform := coherenceScore([]float64{0.2, 0.2})
	spread := coherenceScore([]float64{0.0, 1.0})
	assert.Greater(t, uniform, spread)
	assert.Zero(t, coherenceScore(nil))
}

func TestEuclideanDistance(t *testing.T) {
	assert.InDelta(t, 5.0, euclideanDistance([]float64{0, 0}, []float64{3, 4}), 1e-9)
	assert.InDelta(t, math.Sqrt(2), euclideanDistance([]float64{1, 1}, nil), 1e-9)
	assert.Zero(t, euclideanDistance(nil, nil))
}
