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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/codexgraph/pkg/validation"
	"github.com/AleutianAI/codexgraph/services/codex/observability"
	"github.com/AleutianAI/codexgraph/services/codex/store"
	codexsync "github.com/AleutianAI/codexgraph/services/codex/sync"
)

// CreateNodeRequest is the POST /v1/nodes body.
type CreateNodeRequest struct {
	Type      string            `json:"type" binding:"required"`
	Name      string            `json:"name" binding:"required"`
	Content   string            `json:"content"`
	ParentID  string            `json:"parent_id"`
	Signature map[string]string `json:"signature"`
	Context   map[string]any    `json:"context"`
}

// UpdateNodeRequest is the PUT /v1/nodes/:id body. Absent fields stay
// untouched; parent_id set to "" detaches the node to root.
type UpdateNodeRequest struct {
	Name      *string           `json:"name"`
	Content   *string           `json:"content"`
	Type      *string           `json:"type"`
	ParentID  *string           `json:"parent_id"`
	Signature map[string]string `json:"signature"`
	Context   map[string]any    `json:"context"`
}

// CreateNode persists a new node and replicates it best effort.
//
// Description:
//
//	The local write is authoritative. Replication happens after the
//	commit; a failed push never rolls the node back and is visible
//	only through the sync history.
func CreateNode(st *store.Store, mgr *codexsync.Manager, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateNodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		nodeType, err := validation.SanitizeNodeType(req.Type)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.ParentID != "" {
			if err := validation.ValidateNodeID(req.ParentID); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		node, err := st.Create(c.Request.Context(), store.CreateRequest{
			Type:      nodeType,
			Name:      req.Name,
			Content:   req.Content,
			ParentID:  req.ParentID,
			Signature: req.Signature,
			Context:   req.Context,
		})
		if err != nil {
			countMutation(metrics, "create", "error")
			writeStoreError(c, err)
			return
		}
		countMutation(metrics, "create", "ok")
		observeNodeCount(metrics, st)
		slog.Info("node created", "node_id", node.ID, "type", node.Type, "depth", node.Structure.FractalDepth)

		if mgr != nil {
			mgr.PushNode(c.Request.Context(), node.ID)
		}
		c.JSON(http.StatusCreated, node)
	}
}

// GetNode returns one node by id.
func GetNode(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := validation.ValidateNodeID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		node, err := st.Get(id)
		if err != nil {
			writeStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, node)
	}
}

// ListNodes returns every node, optionally filtered by type.
func ListNodes(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		nodes := st.All()
		if t := c.Query("type"); t != "" {
			filtered := nodes[:0]
			for _, n := range nodes {
				if n.Type == t {
					filtered = append(filtered, n)
				}
			}
			nodes = filtered
		}
		c.JSON(http.StatusOK, gin.H{"count": len(nodes), "nodes": nodes})
	}
}

// UpdateNode applies a partial mutation, including re-parenting.
func UpdateNode(st *store.Store, mgr *codexsync.Manager, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := validation.ValidateNodeID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req UpdateNodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.ParentID != nil && *req.ParentID != "" {
			if err := validation.ValidateNodeID(*req.ParentID); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		node, err := st.Update(c.Request.Context(), id, store.UpdateRequest{
			Name:      req.Name,
			Content:   req.Content,
			Type:      req.Type,
			ParentID:  req.ParentID,
			Signature: req.Signature,
			Context:   req.Context,
		})
		if err != nil {
			countMutation(metrics, "update", "error")
			writeStoreError(c, err)
			return
		}
		countMutation(metrics, "update", "ok")
		slog.Info("node updated", "node_id", id)

		if mgr != nil {
			mgr.PushNode(c.Request.Context(), id)
		}
		c.JSON(http.StatusOK, node)
	}
}

// DeleteNode removes a node under an orphan policy.
//
// The policy comes from the "orphan_policy" query parameter; absent
// means the configured default.
func DeleteNode(st *store.Store, mgr *codexsync.Manager, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := validation.ValidateNodeID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		policy, err := store.ParseOrphanPolicy(c.Query("orphan_policy"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := st.Delete(c.Request.Context(), id, policy); err != nil {
			countMutation(metrics, "delete", "error")
			writeStoreError(c, err)
			return
		}
		countMutation(metrics, "delete", "ok")
		observeNodeCount(metrics, st)
		slog.Info("node deleted", "node_id", id)

		if mgr != nil {
			mgr.PushDelete(c.Request.Context(), id)
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted", "node_id": id})
	}
}

func countMutation(m *observability.Metrics, op, outcome string) {
	if m != nil {
		m.MutationsTotal.WithLabelValues(op, outcome).Inc()
	}
}

func observeNodeCount(m *observability.Metrics, st *store.Store) {
	if m != nil {
		m.NodesTotal.Set(float64(st.Count()))
	}
}
