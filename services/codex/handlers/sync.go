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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/codexgraph/pkg/validation"
	"github.com/AleutianAI/codexgraph/services/codex/datatypes"
	"github.com/AleutianAI/codexgraph/services/codex/neo4j"
	codexsync "github.com/AleutianAI/codexgraph/services/codex/sync"
)

// SyncStatus returns replication counters and backend health.
func SyncStatus(mgr *codexsync.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, mgr.Status(c.Request.Context()))
	}
}

// SyncHistory returns the retained sync records, oldest first.
func SyncHistory(mgr *codexsync.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		records := mgr.History()
		if records == nil {
			records = []datatypes.SyncRecord{}
		}
		c.JSON(http.StatusOK, gin.H{"count": len(records), "records": records})
	}
}

// PushNode forces a replication attempt for one node.
func PushNode(mgr *codexsync.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := validation.ValidateNodeID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, mgr.PushNode(c.Request.Context(), id))
	}
}

// PullNode materializes a remote node locally, hydrating remote
// ancestors first.
func PullNode(mgr *codexsync.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := validation.ValidateNodeID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		node, err := mgr.PullNode(c.Request.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, neo4j.ErrRemoteNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, neo4j.ErrConnectorUnavailable):
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			default:
				writeStoreError(c, err)
			}
			return
		}
		c.JSON(http.StatusOK, node)
	}
}

// TraverseRequest is the POST /v1/sync/traverse body.
type TraverseRequest struct {
	StartID  string   `json:"start_id" binding:"required"`
	MaxDepth int      `json:"max_depth"`
	RelTypes []string `json:"rel_types"`
}

// Traverse walks the graph outward from a node, remotely when the
// backend is reachable and locally otherwise. The response reports
// which source answered.
func Traverse(mgr *codexsync.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TraverseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := validation.ValidateNodeID(req.StartID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.MaxDepth <= 0 {
			req.MaxDepth = 1
		}

		nodes, fromRemote, err := mgr.Traverse(c.Request.Context(), req.StartID, req.MaxDepth, req.RelTypes)
		if err != nil {
			writeStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"count":  len(nodes),
			"nodes":  nodes,
			"source": traverseSource(fromRemote),
		})
	}
}

func traverseSource(remote bool) string {
	if remote {
		return "backend"
	}
	return "local"
}
