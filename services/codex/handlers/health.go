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

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/codexgraph/services/codex/store"
	codexsync "github.com/AleutianAI/codexgraph/services/codex/sync"
)

// Health reports liveness. The service is healthy whenever the local
// store answers; a degraded backend only changes the reported mode.
func Health(st *store.Store, mgr *codexsync.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		mode := "local-only"
		if mgr != nil && mgr.Status(c.Request.Context()).BackendHealthy {
			mode = "replicating"
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"mode":   mode,
			"nodes":  st.Count(),
		})
	}
}
