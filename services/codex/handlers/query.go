// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/codexgraph/pkg/validation"
	"github.com/AleutianAI/codexgraph/services/codex/store"
)

// SearchNodes ranks nodes by resonance against a free-text query.
//
// Query parameters: q (text), type (filter), limit (max results).
func SearchNodes(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}
		results := st.Search(c.Request.Context(), store.SearchQuery{
			Query: c.Query("q"),
			Type:  c.Query("type"),
			Limit: limit,
		})
		c.JSON(http.StatusOK, gin.H{"count": len(results), "results": results})
	}
}

// NodeChildren returns the direct children of a node.
func NodeChildren(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := validation.ValidateNodeID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		children, err := st.Children(id)
		if err != nil {
			writeStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(children), "nodes": children})
	}
}

// NodeAncestors returns the chain from a node toward its root,
// nearest first. "depth" bounds the walk; absent means unbounded.
func NodeAncestors(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := validation.ValidateNodeID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		depth, ok := depthParam(c)
		if !ok {
			return
		}
		nodes, err := st.Ancestors(id, depth)
		if err != nil {
			writeStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(nodes), "nodes": nodes})
	}
}

// NodeDescendants returns the subtree below a node, breadth first.
func NodeDescendants(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := validation.ValidateNodeID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		depth, ok := depthParam(c)
		if !ok {
			return
		}
		nodes, err := st.Descendants(id, depth)
		if err != nil {
			writeStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(nodes), "nodes": nodes})
	}
}

// NodeHierarchy returns a node together with its subtree.
func NodeHierarchy(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := validation.ValidateNodeID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		depth, ok := depthParam(c)
		if !ok {
			return
		}
		nodes, err := st.Hierarchy(id, depth)
		if err != nil {
			writeStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(nodes), "nodes": nodes})
	}
}

// ListRoots returns every node without a parent.
func ListRoots(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		roots := st.Roots()
		c.JSON(http.StatusOK, gin.H{"count": len(roots), "nodes": roots})
	}
}

// NodeAnalytics returns the derived geometry of a node: fractal
// dimension, coordinate distances, symmetry and coherence scores.
func NodeAnalytics(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := validation.ValidateNodeID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		report, err := st.Analytics(id)
		if err != nil {
			writeStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// ValidateGraph re-runs full validation over every stored node.
func ValidateGraph(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, st.ValidateAll())
	}
}

// depthParam parses the optional "depth" query parameter. Zero or
// absent means unbounded. Returns false after writing the 400.
func depthParam(c *gin.Context) (int, bool) {
	raw := c.Query("depth")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "depth must be a non-negative integer"})
		return 0, false
	}
	return n, true
}
