// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8350", cfg.Server.ListenAddr)
	assert.Equal(t, 16, cfg.Store.MaxDepth)
	assert.Equal(t, "reject-if-has-children", cfg.Store.DefaultOrphanPolicy)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.True(t, cfg.Neo4j.AllowStartDegraded)
	assert.Equal(t, 256, cfg.Sync.HistorySize)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, ":8350", cfg.Server.ListenAddr)
}

func TestLoad_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codex.toml")
	body := `
[server]
listen_addr = ":9000"

[store]
max_depth = 8
default_orphan_policy = "detach-to-root"

[neo4j]
uri = "bolt://graph:7687"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
	assert.Equal(t, 8, cfg.Store.MaxDepth)
	assert.Equal(t, "detach-to-root", cfg.Store.DefaultOrphanPolicy)
	assert.Equal(t, "bolt://graph:7687", cfg.Neo4j.URI)
	// Keys the file never set keep their defaults.
	assert.Equal(t, 10, cfg.Neo4j.PoolSize)
	assert.Equal(t, 30*time.Second, cfg.Sync.OpTimeout)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codex.toml")
	require.NoError(t, os.WriteFile(path, []byte("[neo4j]\nuri = \"bolt://file:7687\"\n"), 0o600))

	t.Setenv("NEO4J_URI", "bolt://env:7687")
	t.Setenv("NEO4J_PASSWORD", "s3cret")
	t.Setenv("CODEX_MAX_DEPTH", "5")
	t.Setenv("CODEX_IN_MEMORY", "true")
	t.Setenv("CODEX_SYNC_OP_TIMEOUT", "45s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bolt://env:7687", cfg.Neo4j.URI)
	assert.Equal(t, "s3cret", cfg.Neo4j.Password)
	assert.Equal(t, 5, cfg.Store.MaxDepth)
	assert.True(t, cfg.Store.InMemory)
	assert.Equal(t, 45*time.Second, cfg.Sync.OpTimeout)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codex.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad orphan policy", func(c *Config) { c.Store.DefaultOrphanPolicy = "cascade" }},
		{"zero max depth", func(c *Config) { c.Store.MaxDepth = 0 }},
		{"empty listen addr", func(c *Config) { c.Server.ListenAddr = "" }},
		{"empty uri", func(c *Config) { c.Neo4j.URI = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"no data path on disk store", func(c *Config) {
			c.Store.InMemory = false
			c.Store.DataPath = "  "
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
