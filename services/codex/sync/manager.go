// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sync replicates nodes between the local store and the external
// graph backend.
//
// Replication is best effort and never blocks a local mutation: a push
// against an unavailable backend returns a failed SyncRecord immediately
// and the system degrades to local-only. There are no automatic retries
// anywhere in this package; retry policy belongs to external callers.
//
// # Concurrency Model
//
// No local lock is held across a backend call. A push snapshots the node
// (the store hands out deep copies), performs the network round trip, and
// then briefly takes the manager's own mutex to record the outcome. Local
// writes complete strictly before or after the network call, so a
// cancelled sync can never leave the store partially mutated.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/codexgraph/services/codex/datatypes"
	"github.com/AleutianAI/codexgraph/services/codex/neo4j"
	"github.com/AleutianAI/codexgraph/services/codex/observability"
	"github.com/AleutianAI/codexgraph/services/codex/store"
)

// Backend is the narrow surface the manager needs from the graph backend.
// *neo4j.Repository satisfies it; tests substitute a fake.
type Backend interface {
	UpsertNode(ctx context.Context, node *datatypes.Node) (neo4j.UpsertOutcome, error)
	FetchNode(ctx context.Context, id string) (*datatypes.Node, error)
	Traverse(ctx context.Context, startID string, maxDepth int, relTypes []string) ([]*datatypes.Node, error)
	DeleteNode(ctx context.Context, id string) error
	IsHealthy(ctx context.Context) bool
}

// Config holds manager configuration.
type Config struct {
	// OpTimeout bounds every backend round trip. Default 30s.
	OpTimeout time.Duration

	// HistorySize is the number of SyncRecords retained. Default 256.
	HistorySize int

	// Logger for sync events. Default slog.Default().
	Logger *slog.Logger

	// Metrics is optional; nil disables instrumentation.
	Metrics *observability.Metrics
}

func (c *Config) applyDefaults() {
	if c.OpTimeout <= 0 {
		c.OpTimeout = 30 * time.Second
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 256
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Status is the aggregate view served by /sync/status.
type Status struct {
	PushSuccess int64 `json:"push_success"`
	PushFailure int64 `json:"push_failure"`
	PullSuccess int64 `json:"pull_success"`
	PullFailure int64 `json:"pull_failure"`

	// LastSync is the timestamp of the most recent attempt, zero if
	// none happened yet.
	LastSync time.Time `json:"last_sync"`

	// BackendHealthy mirrors the connector's last probe.
	BackendHealthy bool `json:"backend_healthy"`
}

// Manager coordinates bidirectional replication.
//
// Thread Safety: Safe for concurrent use.
type Manager struct {
	store   *store.Store
	backend Backend
	cfg     Config
	logger  *slog.Logger

	mu      stdsync.Mutex
	status  Status
	history []datatypes.SyncRecord
	next    int
	filled  bool
}

// NewManager builds a manager over the store and backend.
func NewManager(st *store.Store, backend Backend, cfg Config) *Manager {
	cfg.applyDefaults()
	return &Manager{
		store:   st,
		backend: backend,
		cfg:     cfg,
		logger:  cfg.Logger.With(slog.String("component", "sync_manager")),
		history: make([]datatypes.SyncRecord, cfg.HistorySize),
	}
}

// PushNode replicates one local node to the backend.
//
// Description:
//
//	Snapshots the node, upserts it remotely (idempotent by id), and
//	returns the audit record. When the backend is unavailable the
//	record reports failure immediately; nothing blocks and nothing
//	retries. A remote copy that is newer under last-write-wins yields
//	outcome "skipped" with the divergence flagged.
func (m *Manager) PushNode(ctx context.Context, id string) datatypes.SyncRecord {
	ctx, span := otel.Tracer("sync").Start(ctx, "sync.PushNode",
		trace.WithAttributes(attribute.String("node_id", id)))
	defer span.End()

	record := datatypes.SyncRecord{
		NodeID:    id,
		Direction: datatypes.SyncPush,
		Timestamp: time.Now().UTC(),
	}

	node, err := m.store.Get(id)
	if err != nil {
		record.Outcome = datatypes.SyncFailure
		record.Error = err.Error()
		span.SetStatus(codes.Error, "node not local")
		return m.record(record)
	}

	if !m.backend.IsHealthy(ctx) {
		record.Outcome = datatypes.SyncFailure
		record.Error = neo4j.ErrConnectorUnavailable.Error()
		span.SetStatus(codes.Error, "backend unavailable")
		return m.record(record)
	}

	opCtx, cancel := context.WithTimeout(ctx, m.cfg.OpTimeout)
	defer cancel()

	start := time.Now()
	outcome, err := m.backend.UpsertNode(opCtx, node)
	record.Latency = time.Since(start)

	switch {
	case err != nil:
		record.Outcome = datatypes.SyncFailure
		record.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
	case !outcome.Applied:
		record.Outcome = datatypes.SyncSkipped
		record.Divergent = outcome.Divergent
		span.SetStatus(codes.Ok, "remote newer, skipped")
	default:
		record.Outcome = datatypes.SyncSuccess
		record.Divergent = outcome.Divergent
		span.SetStatus(codes.Ok, "pushed")
	}
	return m.record(record)
}

// PushDelete propagates a local delete to the backend, best effort.
func (m *Manager) PushDelete(ctx context.Context, id string) datatypes.SyncRecord {
	record := datatypes.SyncRecord{
		NodeID:    id,
		Direction: datatypes.SyncPush,
		Timestamp: time.Now().UTC(),
	}
	if !m.backend.IsHealthy(ctx) {
		record.Outcome = datatypes.SyncFailure
		record.Error = neo4j.ErrConnectorUnavailable.Error()
		return m.record(record)
	}

	opCtx, cancel := context.WithTimeout(ctx, m.cfg.OpTimeout)
	defer cancel()

	start := time.Now()
	err := m.backend.DeleteNode(opCtx, id)
	record.Latency = time.Since(start)
	if err != nil {
		record.Outcome = datatypes.SyncFailure
		record.Error = err.Error()
	} else {
		record.Outcome = datatypes.SyncSuccess
	}
	return m.record(record)
}

// PullNode materializes a remote node locally.
//
// Description:
//
//	Fetches the remote node, hydrates any remote ancestors that are not
//	yet local (parents import before children), and imports the node.
//	When a local copy is newer under last-write-wins the pull is
//	skipped and the divergence recorded.
//
// Outputs:
//
//	*datatypes.Node - The local node after the pull (the imported copy,
//	                  or the surviving newer local copy on a skip).
//	error - Non-nil when the fetch or import fails. The SyncRecord
//	        history reflects the outcome either way.
func (m *Manager) PullNode(ctx context.Context, remoteID string) (*datatypes.Node, error) {
	ctx, span := otel.Tracer("sync").Start(ctx, "sync.PullNode",
		trace.WithAttributes(attribute.String("node_id", remoteID)))
	defer span.End()

	record := datatypes.SyncRecord{
		NodeID:    remoteID,
		Direction: datatypes.SyncPull,
		Timestamp: time.Now().UTC(),
	}

	if !m.backend.IsHealthy(ctx) {
		record.Outcome = datatypes.SyncFailure
		record.Error = neo4j.ErrConnectorUnavailable.Error()
		m.record(record)
		span.SetStatus(codes.Error, "backend unavailable")
		return nil, fmt.Errorf("pull %s: %w", remoteID, neo4j.ErrConnectorUnavailable)
	}

	start := time.Now()
	node, err := m.fetchWithAncestors(ctx, remoteID, make(map[string]bool))
	record.Latency = time.Since(start)
	if err != nil {
		record.Outcome = datatypes.SyncFailure
		record.Error = err.Error()
		m.record(record)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	// Last-write-wins against any local copy. The network call is done;
	// from here only local state moves.
	if local, err := m.store.Get(remoteID); err == nil && local.UpdatedAt.After(node.UpdatedAt) {
		record.Outcome = datatypes.SyncSkipped
		record.Divergent = true
		m.record(record)
		span.SetStatus(codes.Ok, "local newer, skipped")
		return local, nil
	}

	imported, err := m.store.Import(ctx, node)
	if err != nil {
		record.Outcome = datatypes.SyncFailure
		record.Error = err.Error()
		m.record(record)
		span.RecordError(err)
		span.SetStatus(codes.Error, "import failed")
		return nil, err
	}

	record.Outcome = datatypes.SyncSuccess
	m.record(record)
	span.SetStatus(codes.Ok, "pulled")
	return imported, nil
}

// fetchWithAncestors fetches a remote node after making sure its remote
// ancestor chain exists locally. The visited set guards against malformed
// remote graphs.
func (m *Manager) fetchWithAncestors(ctx context.Context, id string, visited map[string]bool) (*datatypes.Node, error) {
	if visited[id] {
		return nil, fmt.Errorf("remote parent chain loops at %s", id)
	}
	visited[id] = true

	opCtx, cancel := context.WithTimeout(ctx, m.cfg.OpTimeout)
	node, err := m.backend.FetchNode(opCtx, id)
	cancel()
	if err != nil {
		return nil, err
	}

	if node.ParentID != "" {
		if _, err := m.store.Get(node.ParentID); err != nil {
			parent, err := m.fetchWithAncestors(ctx, node.ParentID, visited)
			if err != nil {
				return nil, fmt.Errorf("hydrate parent %s: %w", node.ParentID, err)
			}
			if _, err := m.store.Import(ctx, parent); err != nil {
				return nil, fmt.Errorf("import parent %s: %w", node.ParentID, err)
			}
		}
	}
	return node, nil
}

// Traverse walks outward from a node, remotely when possible.
//
// Description:
//
//	Delegates to backend traversal while connected. Falls back to a
//	local descendant walk otherwise; the fallback ignores the
//	relationship filter since local edges are implicitly parent/child.
//
// Outputs:
//
//	[]*datatypes.Node - Reached nodes, nearest first.
//	bool - True when the result came from the backend.
//	error - Non-nil when both sources fail.
func (m *Manager) Traverse(ctx context.Context, startID string, maxDepth int, relTypes []string) ([]*datatypes.Node, bool, error) {
	if m.backend.IsHealthy(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, m.cfg.OpTimeout)
		nodes, err := m.backend.Traverse(opCtx, startID, maxDepth, relTypes)
		cancel()
		if err == nil {
			return nodes, true, nil
		}
		m.logger.Warn("remote traversal failed, falling back to local walk",
			slog.String("start_id", startID),
			slog.String("error", err.Error()))
	}

	nodes, err := m.store.Descendants(startID, maxDepth)
	if err != nil {
		return nil, false, err
	}
	return nodes, false, nil
}

// Status returns the aggregate counters and backend health.
func (m *Manager) Status(ctx context.Context) Status {
	m.mu.Lock()
	out := m.status
	m.mu.Unlock()
	out.BackendHealthy = m.backend.IsHealthy(ctx)
	return out
}

// History returns the retained sync records, oldest first.
func (m *Manager) History() []datatypes.SyncRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []datatypes.SyncRecord
	if m.filled {
		out = append(out, m.history[m.next:]...)
	}
	out = append(out, m.history[:m.next]...)
	return out
}

// record stores the outcome and bumps counters. The only lock taken after
// a network call, held just long enough to write the audit entry.
func (m *Manager) record(r datatypes.SyncRecord) datatypes.SyncRecord {
	m.mu.Lock()
	m.history[m.next] = r
	m.next = (m.next + 1) % len(m.history)
	if m.next == 0 {
		m.filled = true
	}
	m.status.LastSync = r.Timestamp
	success := r.Outcome != datatypes.SyncFailure
	if r.Direction == datatypes.SyncPush {
		if success {
			m.status.PushSuccess++
		} else {
			m.status.PushFailure++
		}
	} else {
		if success {
			m.status.PullSuccess++
		} else {
			m.status.PullFailure++
		}
	}
	m.mu.Unlock()

	if m.cfg.Metrics != nil {
		m.cfg.Metrics.SyncAttemptsTotal.
			WithLabelValues(string(r.Direction), string(r.Outcome)).Inc()
		if r.Latency > 0 {
			m.cfg.Metrics.SyncLatency.
				WithLabelValues(string(r.Direction)).Observe(r.Latency.Seconds())
		}
	}
	if r.Outcome == datatypes.SyncFailure {
		m.logger.Warn("sync attempt failed",
			slog.String("node_id", r.NodeID),
			slog.String("direction", string(r.Direction)),
			slog.String("error", r.Error))
	}
	return r
}
