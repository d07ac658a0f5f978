// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the gin handlers for the node graph API.
//
// Every handler is a constructor closure over its dependencies, so
// tests can stand up a router with fakes and no network.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/codexgraph/services/codex/ontology"
	"github.com/AleutianAI/codexgraph/services/codex/store"
)

// writeStoreError maps store and ontology errors onto HTTP statuses.
//
// 404 missing node, 409 structural conflict (cycle, children present),
// 422 failed hard validation with the full check report, 400 malformed
// input, 500 otherwise.
func writeStoreError(c *gin.Context, err error) {
	var ve *store.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrCycleDetected), errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"result": ve.Result,
		})
	case errors.Is(err, store.ErrInvalidOrphanPolicy),
		errors.Is(err, ontology.ErrUnknownAxis),
		errors.Is(err, ontology.ErrInvalidAxisValue):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
