// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "time"

// SyncDirection identifies which way a replication attempt flowed.
type SyncDirection string

const (
	// SyncPush replicates a local node to the external graph backend.
	SyncPush SyncDirection = "push"

	// SyncPull materializes a remote node into the local store.
	SyncPull SyncDirection = "pull"
)

// SyncOutcome is the terminal state of one replication attempt.
type SyncOutcome string

const (
	SyncSuccess SyncOutcome = "success"
	SyncFailure SyncOutcome = "failure"

	// SyncSkipped means the remote copy was newer under last-write-wins
	// and the attempt deliberately did not overwrite it.
	SyncSkipped SyncOutcome = "skipped"
)

// SyncRecord is the audit entry for one local/remote replication attempt.
//
// Sync failures are never surfaced synchronously to store mutations; this
// record and the /sync/status endpoint are the only observation channels.
type SyncRecord struct {
	NodeID    string        `json:"node_id"`
	Direction SyncDirection `json:"direction"`
	Timestamp time.Time     `json:"timestamp"`
	Outcome   SyncOutcome   `json:"outcome"`

	// Divergent is true when the two stores disagreed on updated_at and
	// last-write-wins had to pick a side.
	Divergent bool `json:"divergent,omitempty"`

	// Error holds the failure reason when Outcome is SyncFailure.
	Error string `json:"error,omitempty"`

	// Latency is the wall-clock duration of the backend call.
	Latency time.Duration `json:"latency_ns"`
}
