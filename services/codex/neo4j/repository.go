// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package neo4j

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/AleutianAI/codexgraph/services/codex/datatypes"
)

// ErrRemoteNotFound is returned when a remote node id does not exist.
var ErrRemoteNotFound = errors.New("remote node not found")

// UpsertOutcome reports the result of one idempotent upsert.
type UpsertOutcome struct {
	// Applied is false when the remote copy was newer under
	// last-write-wins and was left untouched.
	Applied bool

	// Divergent is true when local and remote disagreed on updated_at.
	Divergent bool

	// RemoteUpdatedAt is the remote timestamp observed before the
	// write, zero if the node did not exist remotely.
	RemoteUpdatedAt time.Time
}

// Repository runs node replication queries against the graph backend.
//
// Every node is stored as a (:CodexNode) with signature and structure
// serialized to JSON string properties, and a CHILD_OF relationship to
// its parent. Upserts merge by id, so repeating a push can never create a
// duplicate remote node.
type Repository struct {
	conn *Connector
}

// NewRepository builds a repository over an open connector.
func NewRepository(conn *Connector) *Repository {
	return &Repository{conn: conn}
}

// IsHealthy delegates to the connector's state, never the network.
func (r *Repository) IsHealthy(ctx context.Context) bool {
	return r.conn.IsHealthy()
}

func (r *Repository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.conn.Driver().NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: r.conn.Database(),
	})
}

// UpsertNode replicates one node to the backend, idempotent by id.
//
// Description:
//
//	Reads the remote updated_at first. If the remote copy is strictly
//	newer, nothing is written and the outcome reports Applied=false
//	with Divergent=true (last-write-wins, never a field merge). The
//	CHILD_OF relationship is rewritten to mirror the local parent_id.
//
// Outputs:
//
//	UpsertOutcome - What happened and what the remote clock said.
//	error - ErrConnectorUnavailable wrapped around transport failures.
func (r *Repository) UpsertNode(ctx context.Context, node *datatypes.Node) (UpsertOutcome, error) {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	outcome := UpsertOutcome{}

	result, err := session.Run(ctx, `
		MATCH (n:CodexNode {id: $id})
		RETURN n.updated_at AS updated_at
	`, map[string]any{"id": node.ID})
	if err != nil {
		return outcome, r.failed("read remote timestamp", err)
	}
	if result.Next(ctx) {
		remote, ok := parseTimestamp(getStringFromRecord(result.Record(), "updated_at"))
		if ok {
			outcome.RemoteUpdatedAt = remote
			if !remote.Equal(node.UpdatedAt) {
				outcome.Divergent = true
			}
			if remote.After(node.UpdatedAt) {
				// Remote wins; leave it alone.
				return outcome, nil
			}
		}
	}

	signature, err := json.Marshal(node.Signature)
	if err != nil {
		return outcome, fmt.Errorf("encode signature for %s: %w", node.ID, err)
	}
	structure, err := json.Marshal(node.Structure)
	if err != nil {
		return outcome, fmt.Errorf("encode structure for %s: %w", node.ID, err)
	}

	query := `
		MERGE (n:CodexNode {id: $id})
		ON CREATE SET n.created_at = $created_at
		SET n.type = $type,
		    n.name = $name,
		    n.content = $content,
		    n.parent_id = $parent_id,
		    n.signature = $signature,
		    n.structure = $structure,
		    n.fractal_depth = $fractal_depth,
		    n.updated_at = $updated_at
		WITH n
		OPTIONAL MATCH (n)-[old:CHILD_OF]->()
		DELETE old
		WITH n
		OPTIONAL MATCH (p:CodexNode {id: $parent_id})
		FOREACH (_ IN CASE WHEN p IS NULL THEN [] ELSE [1] END |
			MERGE (n)-[:CHILD_OF]->(p))
	`
	_, err = session.Run(ctx, query, map[string]any{
		"id":            node.ID,
		"type":          node.Type,
		"name":          node.Name,
		"content":       node.Content,
		"parent_id":     node.ParentID,
		"signature":     string(signature),
		"structure":     string(structure),
		"fractal_depth": node.Structure.FractalDepth,
		"created_at":    formatTimestamp(node.CreatedAt),
		"updated_at":    formatTimestamp(node.UpdatedAt),
	})
	if err != nil {
		return outcome, r.failed("upsert node", err)
	}

	outcome.Applied = true
	return outcome, nil
}

// FetchNode reads one remote node by id.
func (r *Repository) FetchNode(ctx context.Context, id string) (*datatypes.Node, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (n:CodexNode {id: $id})
		RETURN n.id AS id, n.type AS type, n.name AS name,
		       n.content AS content, n.parent_id AS parent_id,
		       n.signature AS signature, n.structure AS structure,
		       n.created_at AS created_at, n.updated_at AS updated_at
	`, map[string]any{"id": id})
	if err != nil {
		return nil, r.failed("fetch node", err)
	}
	if !result.Next(ctx) {
		return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, id)
	}
	return nodeFromRecord(result.Record())
}

// Traverse walks the remote graph outward from a start node.
//
// Description:
//
//	Follows up to maxDepth hops over the given relationship types
//	(CHILD_OF only when relTypes is empty) and returns the reached
//	nodes, nearest first. The start node itself is excluded.
func (r *Repository) Traverse(ctx context.Context, startID string, maxDepth int, relTypes []string) ([]*datatypes.Node, error) {
	if maxDepth <= 0 {
		maxDepth = 1
	}
	relPattern := "CHILD_OF"
	if len(relTypes) > 0 {
		relPattern = ""
		for i, rel := range relTypes {
			if !validRelType(rel) {
				return nil, fmt.Errorf("invalid relationship type %q", rel)
			}
			if i > 0 {
				relPattern += "|"
			}
			relPattern += rel
		}
	}

	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	// Depth and relationship types cannot be parameterized in a
	// variable-length pattern; both are validated above.
	query := fmt.Sprintf(`
		MATCH (start:CodexNode {id: $id})
		MATCH path = (start)<-[:%s*1..%d]-(n:CodexNode)
		RETURN n.id AS id, n.type AS type, n.name AS name,
		       n.content AS content, n.parent_id AS parent_id,
		       n.signature AS signature, n.structure AS structure,
		       n.created_at AS created_at, n.updated_at AS updated_at,
		       min(length(path)) AS hops
		ORDER BY hops, id
	`, relPattern, maxDepth)

	result, err := session.Run(ctx, query, map[string]any{"id": startID})
	if err != nil {
		return nil, r.failed("traverse", err)
	}

	var out []*datatypes.Node
	for result.Next(ctx) {
		node, err := nodeFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	if err := result.Err(); err != nil {
		return nil, r.failed("traverse", err)
	}
	return out, nil
}

// DeleteNode removes a remote node and its relationships.
func (r *Repository) DeleteNode(ctx context.Context, id string) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MATCH (n:CodexNode {id: $id})
		DETACH DELETE n
	`, map[string]any{"id": id})
	if err != nil {
		return r.failed("delete node", err)
	}
	return nil
}

// failed reports the error to the connector state machine and wraps it.
func (r *Repository) failed(op string, err error) error {
	r.conn.ReportFailure(err)
	return fmt.Errorf("%w: %s: %v", ErrConnectorUnavailable, op, err)
}

func nodeFromRecord(record *db.Record) (*datatypes.Node, error) {
	node := &datatypes.Node{
		ID:       getStringFromRecord(record, "id"),
		Type:     getStringFromRecord(record, "type"),
		Name:     getStringFromRecord(record, "name"),
		Content:  getStringFromRecord(record, "content"),
		ParentID: getStringFromRecord(record, "parent_id"),
	}
	if raw := getStringFromRecord(record, "signature"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &node.Signature); err != nil {
			return nil, fmt.Errorf("decode signature for %s: %w", node.ID, err)
		}
	}
	if raw := getStringFromRecord(record, "structure"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &node.Structure); err != nil {
			return nil, fmt.Errorf("decode structure for %s: %w", node.ID, err)
		}
	}
	if ts, ok := parseTimestamp(getStringFromRecord(record, "created_at")); ok {
		node.CreatedAt = ts
	}
	if ts, ok := parseTimestamp(getStringFromRecord(record, "updated_at")); ok {
		node.UpdatedAt = ts
	}
	return node, nil
}

func getStringFromRecord(record *db.Record, key string) string {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

// formatTimestamp uses a fixed-width RFC3339 form so remote comparisons
// stay exact across round trips.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func parseTimestamp(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02T15:04:05.000000000Z07:00", time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// validRelType permits only identifier-safe relationship names, since the
// type cannot be passed as a query parameter.
func validRelType(rel string) bool {
	if rel == "" {
		return false
	}
	for _, r := range rel {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
