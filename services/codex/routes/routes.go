// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/codexgraph/services/codex/handlers"
	"github.com/AleutianAI/codexgraph/services/codex/observability"
	"github.com/AleutianAI/codexgraph/services/codex/store"
	codexsync "github.com/AleutianAI/codexgraph/services/codex/sync"
)

// SetupRoutes wires every endpoint onto the router.
//
// mgr and metrics may be nil; the node API then runs local-only with
// the sync and metrics surfaces absent.
func SetupRoutes(router *gin.Engine, st *store.Store, mgr *codexsync.Manager,
	metrics *observability.Metrics, registry *prometheus.Registry) {

	router.GET("/health", handlers.Health(st, mgr))
	if registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	{
		nodes := v1.Group("/nodes")
		{
			nodes.POST("", handlers.CreateNode(st, mgr, metrics))
			nodes.GET("", handlers.ListNodes(st))
			nodes.GET("/:id", handlers.GetNode(st))
			nodes.PUT("/:id", handlers.UpdateNode(st, mgr, metrics))
			nodes.DELETE("/:id", handlers.DeleteNode(st, mgr, metrics))
			nodes.GET("/:id/children", handlers.NodeChildren(st))
			nodes.GET("/:id/ancestors", handlers.NodeAncestors(st))
			nodes.GET("/:id/descendants", handlers.NodeDescendants(st))
			nodes.GET("/:id/hierarchy", handlers.NodeHierarchy(st))
			nodes.GET("/:id/analytics", handlers.NodeAnalytics(st))
		}
		v1.GET("/roots", handlers.ListRoots(st))
		v1.GET("/search", handlers.SearchNodes(st))
		v1.GET("/validate", handlers.ValidateGraph(st))

		if mgr != nil {
			syncGroup := v1.Group("/sync")
			{
				syncGroup.GET("/status", handlers.SyncStatus(mgr))
				syncGroup.GET("/history", handlers.SyncHistory(mgr))
				syncGroup.POST("/push/:id", handlers.PushNode(mgr))
				syncGroup.POST("/pull/:id", handlers.PullNode(mgr))
				syncGroup.POST("/traverse", handlers.Traverse(mgr))
			}
		}
	}
}
