// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// codexgraph serves the fractal node graph API: a locally authoritative
// node store with best-effort replication into Neo4j.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AleutianAI/codexgraph/pkg/logging"
	"github.com/AleutianAI/codexgraph/services/codex/config"
	"github.com/AleutianAI/codexgraph/services/codex/neo4j"
	"github.com/AleutianAI/codexgraph/services/codex/observability"
	"github.com/AleutianAI/codexgraph/services/codex/ontology"
	"github.com/AleutianAI/codexgraph/services/codex/routes"
	storage "github.com/AleutianAI/codexgraph/services/codex/storage/badger"
	"github.com/AleutianAI/codexgraph/services/codex/store"
	codexsync "github.com/AleutianAI/codexgraph/services/codex/sync"
)

// backendGauge mirrors connector state transitions into the metric.
type backendGauge struct {
	metrics *observability.Metrics
	logger  *slog.Logger
}

func (g *backendGauge) OnDegraded(reason string) {
	g.metrics.BackendUp.Set(0)
	g.logger.Warn("graph backend degraded", slog.String("reason", reason))
}

func (g *backendGauge) OnRecovered() {
	g.metrics.BackendUp.Set(1)
	g.logger.Info("graph backend recovered")
}

func main() {
	configPath := flag.String("config", "", "Path to TOML config file")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("configuration rejected", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *debug {
		cfg.Logging.Level = "debug"
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Service: "codexgraph",
	})
	defer logger.Close()
	slog.SetDefault(logger.Logger)

	if err := run(cfg, logger.Logger, *debug); err != nil {
		logger.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger, debug bool) error {
	// Local store is authoritative and must open; the graph backend is
	// optional at boot.
	dbCfg := storage.DefaultConfig()
	dbCfg.Path = cfg.Store.DataPath
	if cfg.Store.InMemory {
		dbCfg = storage.InMemoryConfig()
	}
	dbCfg.Logger = logger
	db, err := storage.Open(dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	policy, err := store.ParseOrphanPolicy(cfg.Store.DefaultOrphanPolicy)
	if err != nil {
		return err
	}
	st, err := store.NewStore(context.Background(), db, ontology.NewRegistry(), store.Config{
		MaxDepth:            cfg.Store.MaxDepth,
		DefaultOrphanPolicy: policy,
		Logger:              logger,
	})
	if err != nil {
		return err
	}
	logger.Info("store ready", slog.Int("nodes", st.Count()))

	registry := prometheus.NewRegistry()
	metrics := observability.New(registry)
	metrics.NodesTotal.Set(float64(st.Count()))

	mgr, connector := connectBackend(cfg, logger, st, metrics)
	if connector != nil {
		defer connector.Close(context.Background())
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if debug {
		router.Use(gin.Logger())
	}
	routes.SetupRoutes(router, st, mgr, metrics, registry)

	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	errCh := make(chan error, 1)

	go func() {
		logger.Info("starting codexgraph server", slog.String("address", cfg.Server.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-quit:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// connectBackend dials Neo4j once. A failed connect with
// AllowStartDegraded unset is fatal to the caller via nil manager plus
// log; with it set the service runs local-only and the health checker
// keeps probing for recovery.
func connectBackend(cfg config.Config, logger *slog.Logger, st *store.Store,
	metrics *observability.Metrics) (*codexsync.Manager, *neo4j.Connector) {

	connector, err := neo4j.Connect(context.Background(), neo4j.Config{
		URI:                 cfg.Neo4j.URI,
		Username:            cfg.Neo4j.Username,
		Password:            cfg.Neo4j.Password,
		Database:            cfg.Neo4j.Database,
		PoolSize:            cfg.Neo4j.PoolSize,
		ConnTimeout:         cfg.Neo4j.ConnTimeout,
		HealthCheckInterval: cfg.Neo4j.HealthCheckInterval,
		AllowStartDegraded:  cfg.Neo4j.AllowStartDegraded,
		Logger:              logger,
	})
	if err != nil {
		logger.Warn("graph backend unavailable, running local-only",
			slog.String("uri", cfg.Neo4j.URI),
			slog.String("error", err.Error()))
		return nil, nil
	}

	connector.RegisterHandler(&backendGauge{metrics: metrics, logger: logger})
	repo := neo4j.NewRepository(connector)
	mgr := codexsync.NewManager(st, repo, codexsync.Config{
		OpTimeout:   cfg.Sync.OpTimeout,
		HistorySize: cfg.Sync.HistorySize,
		Logger:      logger,
		Metrics:     metrics,
	})
	return mgr, connector
}
