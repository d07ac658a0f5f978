// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads service configuration with priority env > file >
// defaults. The file layer is TOML; unset keys never clobber defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Config is the top-level service configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after Load.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Neo4j   Neo4jConfig   `toml:"neo4j"`
	Sync    SyncConfig    `toml:"sync"`
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	ListenAddr      string        `toml:"listen_addr" validate:"required"`
	ReadTimeout     time.Duration `toml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `toml:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" validate:"gt=0"`
}

// StoreConfig holds local store settings.
type StoreConfig struct {
	// DataPath is the Badger directory. Ignored when InMemory is set.
	DataPath string `toml:"data_path"`
	InMemory bool   `toml:"in_memory"`

	// MaxDepth bounds the hierarchy.
	MaxDepth int `toml:"max_depth" validate:"gt=0"`

	// DefaultOrphanPolicy applies to deletes that do not name one.
	DefaultOrphanPolicy string `toml:"default_orphan_policy" validate:"oneof=reject-if-has-children reparent-to-grandparent detach-to-root"`
}

// Neo4jConfig holds graph backend connection settings.
type Neo4jConfig struct {
	URI      string `toml:"uri" validate:"required"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Database string `toml:"database"`

	PoolSize            int           `toml:"pool_size" validate:"gt=0"`
	ConnTimeout         time.Duration `toml:"conn_timeout" validate:"gt=0"`
	HealthCheckInterval time.Duration `toml:"health_check_interval" validate:"gt=0"`

	// AllowStartDegraded lets the service come up local-only when the
	// backend is unreachable at boot.
	AllowStartDegraded bool `toml:"allow_start_degraded"`
}

// SyncConfig holds replication settings.
type SyncConfig struct {
	OpTimeout   time.Duration `toml:"op_timeout" validate:"gt=0"`
	HistorySize int           `toml:"history_size" validate:"gt=0"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" validate:"oneof=debug info warn error"`

	// Format is "json" or "text".
	Format string `toml:"format" validate:"oneof=json text"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:      ":8350",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			DataPath:            "./data/codexgraph",
			MaxDepth:            16,
			DefaultOrphanPolicy: "reject-if-has-children",
		},
		Neo4j: Neo4jConfig{
			URI:                 "bolt://localhost:7687",
			Username:            "neo4j",
			Database:            "neo4j",
			PoolSize:            10,
			ConnTimeout:         5 * time.Second,
			HealthCheckInterval: 10 * time.Second,
			AllowStartDegraded:  true,
		},
		Sync: SyncConfig{
			OpTimeout:   30 * time.Second,
			HistorySize: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load merges configuration with priority env > file > defaults.
//
// Description:
//
//	Starts from Default, overlays the TOML file at path when one is
//	given and exists, overlays environment variables, then validates
//	the result. A missing file is not an error; a malformed one is.
//
// Inputs:
//
//	path - Optional TOML file path. Empty skips the file layer.
//
// Outputs:
//
//	Config - The merged configuration.
//	error - Non-nil when the file is malformed or validation fails.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	loadEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return err
	}
	return nil
}

func loadEnv(cfg *Config) {
	setString(&cfg.Server.ListenAddr, "CODEX_LISTEN_ADDR")
	setDuration(&cfg.Server.ReadTimeout, "CODEX_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "CODEX_WRITE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "CODEX_SHUTDOWN_TIMEOUT")

	setString(&cfg.Store.DataPath, "CODEX_DATA_PATH")
	setBool(&cfg.Store.InMemory, "CODEX_IN_MEMORY")
	setInt(&cfg.Store.MaxDepth, "CODEX_MAX_DEPTH")
	setString(&cfg.Store.DefaultOrphanPolicy, "CODEX_ORPHAN_POLICY")

	setString(&cfg.Neo4j.URI, "NEO4J_URI")
	setString(&cfg.Neo4j.Username, "NEO4J_USERNAME")
	setString(&cfg.Neo4j.Password, "NEO4J_PASSWORD")
	setString(&cfg.Neo4j.Database, "NEO4J_DATABASE")
	setInt(&cfg.Neo4j.PoolSize, "CODEX_NEO4J_POOL_SIZE")
	setDuration(&cfg.Neo4j.ConnTimeout, "CODEX_NEO4J_CONN_TIMEOUT")
	setDuration(&cfg.Neo4j.HealthCheckInterval, "CODEX_NEO4J_HEALTH_INTERVAL")
	setBool(&cfg.Neo4j.AllowStartDegraded, "CODEX_ALLOW_START_DEGRADED")

	setDuration(&cfg.Sync.OpTimeout, "CODEX_SYNC_OP_TIMEOUT")
	setInt(&cfg.Sync.HistorySize, "CODEX_SYNC_HISTORY_SIZE")

	setString(&cfg.Logging.Level, "CODEX_LOG_LEVEL")
	setString(&cfg.Logging.Format, "CODEX_LOG_FORMAT")
}

// Validate checks the merged configuration.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			first := errs[0]
			return fmt.Errorf("field %s failed %q validation", first.Namespace(), first.Tag())
		}
		return err
	}
	if !c.Store.InMemory && strings.TrimSpace(c.Store.DataPath) == "" {
		return fmt.Errorf("store data_path is required unless in_memory is set")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
