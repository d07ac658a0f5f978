// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability exposes Prometheus metrics for the codex services.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors for one service instance.
type Metrics struct {
	// NodesTotal tracks the current node count.
	NodesTotal prometheus.Gauge

	// MutationsTotal counts store mutations by operation and outcome.
	MutationsTotal *prometheus.CounterVec

	// SyncAttemptsTotal counts replication attempts by direction and
	// outcome.
	SyncAttemptsTotal *prometheus.CounterVec

	// SyncLatency observes backend round-trip time by direction.
	SyncLatency *prometheus.HistogramVec

	// BackendUp is 1 while the graph backend answers health probes.
	BackendUp prometheus.Gauge
}

// New builds and registers the collectors on the given registerer. Pass
// prometheus.DefaultRegisterer in production; a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "codexgraph",
			Name:      "nodes_total",
			Help:      "Current number of locally stored nodes.",
		}),
		MutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codexgraph",
			Name:      "mutations_total",
			Help:      "Store mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		SyncAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codexgraph",
			Name:      "sync_attempts_total",
			Help:      "Replication attempts by direction and outcome.",
		}, []string{"direction", "outcome"}),
		SyncLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "codexgraph",
			Name:      "sync_latency_seconds",
			Help:      "Backend round-trip time by direction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),
		BackendUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "codexgraph",
			Name:      "backend_up",
			Help:      "1 while the graph backend answers health probes.",
		}),
	}
	reg.MustRegister(
		m.NodesTotal,
		m.MutationsTotal,
		m.SyncAttemptsTotal,
		m.SyncLatency,
		m.BackendUp,
	)
	return m
}
