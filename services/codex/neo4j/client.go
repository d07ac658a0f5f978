// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package neo4j provides the graph backend connector: a pooled Neo4j
// driver with health checking and graceful degradation.
//
// The connector makes a single connection attempt and never retries on
// its own. Replication policy, including what to do while the backend is
// down, belongs to the sync manager; the connector only reports state.
//
// Features:
//   - Connection pooling via the official driver
//   - Health checking with adaptive intervals
//   - Degradation notifications when the backend drops out
//   - OpenTelemetry tracing integration
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrConnectorUnavailable is returned when the backend is not
	// reachable. Non-fatal locally: sync degrades to failed-and-logged.
	ErrConnectorUnavailable = errors.New("graph backend is not available")

	// ErrConnectorClosed is returned for operations on a closed
	// connector.
	ErrConnectorClosed = errors.New("graph backend connector is closed")
)

// ConnectionState represents the current state of the backend connection.
type ConnectionState int32

const (
	// StateConnected indicates normal operation.
	StateConnected ConnectionState = iota
	// StateDegraded indicates the backend is unavailable; the local
	// store remains fully functional.
	StateDegraded
)

// String returns the string representation of ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// DegradationHandler receives notifications when the backend drops out of
// or returns to service.
type DegradationHandler interface {
	// OnDegraded is called once when the connector loses the backend.
	OnDegraded(reason string)

	// OnRecovered is called once when the backend comes back.
	OnRecovered()
}

// Config configures the graph backend connector.
type Config struct {
	// URI is the bolt endpoint (e.g. "bolt://localhost:7687").
	URI string

	// Username and Password authenticate against the backend.
	Username string
	Password string

	// Database selects the target database. Empty uses the server
	// default.
	Database string

	// PoolSize is the maximum connection pool size.
	// Default: 10
	PoolSize int

	// MaxConnLifetime bounds how long a pooled connection lives.
	// Default: 1h
	MaxConnLifetime time.Duration

	// ConnTimeout bounds the initial socket connect.
	// Default: 30s
	ConnTimeout time.Duration

	// HealthCheckInterval is how often to probe when connected.
	// Default: 10s
	HealthCheckInterval time.Duration

	// DegradedCheckInterval is how often to probe when degraded.
	// Default: 5s
	DegradedCheckInterval time.Duration

	// HealthCheckTimeout prevents probes from blocking.
	// Default: 5s
	HealthCheckTimeout time.Duration

	// AllowStartDegraded allows starting even if the backend is
	// unavailable at boot.
	// Default: false
	AllowStartDegraded bool

	// Logger for connector events.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults for production use.
func DefaultConfig() Config {
	return Config{
		PoolSize:              10,
		MaxConnLifetime:       time.Hour,
		ConnTimeout:           30 * time.Second,
		HealthCheckInterval:   10 * time.Second,
		DegradedCheckInterval: 5 * time.Second,
		HealthCheckTimeout:    5 * time.Second,
		Logger:                slog.Default(),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.URI == "" {
		return errors.New("uri must not be empty")
	}
	if c.PoolSize < 1 {
		return errors.New("pool_size must be at least 1")
	}
	if c.MaxConnLifetime <= 0 {
		return errors.New("max_conn_lifetime must be positive")
	}
	if c.ConnTimeout <= 0 {
		return errors.New("conn_timeout must be positive")
	}
	if c.HealthCheckTimeout <= 0 {
		return errors.New("health_check_timeout must be positive")
	}
	return nil
}

// applyDefaults fills in zero values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.PoolSize == 0 {
		c.PoolSize = defaults.PoolSize
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = defaults.MaxConnLifetime
	}
	if c.ConnTimeout == 0 {
		c.ConnTimeout = defaults.ConnTimeout
	}
	if c.HealthCheckInterval == 0 {
		c.HealthCheckInterval = defaults.HealthCheckInterval
	}
	if c.DegradedCheckInterval == 0 {
		c.DegradedCheckInterval = defaults.DegradedCheckInterval
	}
	if c.HealthCheckTimeout == 0 {
		c.HealthCheckTimeout = defaults.HealthCheckTimeout
	}
	if c.Logger == nil {
		c.Logger = defaults.Logger
	}
}

// Connector wraps the pooled driver with state tracking.
//
// Thread Safety: Safe for concurrent use from multiple goroutines.
type Connector struct {
	driver neo4j.DriverWithContext
	config Config
	logger *slog.Logger

	state  atomic.Int32
	closed atomic.Bool

	healthCtx    context.Context
	healthCancel context.CancelFunc
	healthWg     sync.WaitGroup

	handlers   []DegradationHandler
	handlersMu sync.RWMutex
}

// Connect creates the connector with a single connection attempt.
//
// Description:
//
//	Builds the pooled driver and verifies connectivity once. There is
//	no internal retry loop; if the backend is down and
//	AllowStartDegraded is false, the call fails immediately.
//
// Inputs:
//
//	ctx - Context bounding the initial connectivity check.
//	config - Connector configuration. URI is required.
//
// Outputs:
//
//	*Connector - Ready-to-use connector. Call Close() when done.
//	error - Non-nil if configuration is invalid or (when
//	        AllowStartDegraded is false) the backend is unreachable.
//
// Thread Safety: Safe for concurrent use.
func Connect(ctx context.Context, config Config) (*Connector, error) {
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	driver, err := neo4j.NewDriverWithContext(
		config.URI,
		neo4j.BasicAuth(config.Username, config.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = config.PoolSize
			c.MaxConnectionLifetime = config.MaxConnLifetime
			c.SocketConnectTimeout = config.ConnTimeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	healthCtx, healthCancel := context.WithCancel(context.Background())
	c := &Connector{
		driver:       driver,
		config:       config,
		logger:       config.Logger.With(slog.String("component", "neo4j_connector")),
		healthCtx:    healthCtx,
		healthCancel: healthCancel,
	}
	c.state.Store(int32(StateDegraded)) // until proven healthy

	if err := c.checkHealth(ctx); err != nil {
		if !config.AllowStartDegraded {
			healthCancel()
			_ = driver.Close(ctx)
			return nil, fmt.Errorf("%w: %v", ErrConnectorUnavailable, err)
		}
		c.logger.Warn("graph backend unavailable at startup, starting degraded",
			slog.String("uri", config.URI),
			slog.String("error", err.Error()))
	} else {
		c.transitionState(StateConnected)
	}

	c.healthWg.Add(1)
	go c.runHealthChecker()

	c.logger.Info("graph backend connector initialized",
		slog.String("uri", config.URI),
		slog.String("state", c.GetState().String()))
	return c, nil
}

// Driver returns the underlying pooled driver for direct session use.
func (c *Connector) Driver() neo4j.DriverWithContext {
	return c.driver
}

// Database returns the configured target database name.
func (c *Connector) Database() string {
	return c.config.Database
}

// IsHealthy reports whether the backend answered the last probe. This is
// the cheap state read; it never touches the network.
func (c *Connector) IsHealthy() bool {
	return !c.closed.Load() && c.GetState() == StateConnected
}

// GetState returns the current connection state.
func (c *Connector) GetState() ConnectionState {
	return ConnectionState(c.state.Load())
}

// RegisterHandler registers a degradation handler. A handler registered
// while already degraded is told so immediately.
func (c *Connector) RegisterHandler(handler DegradationHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers = append(c.handlers, handler)

	if c.GetState() == StateDegraded {
		handler.OnDegraded("initial state: graph backend unavailable")
	}
}

// ReportFailure tells the connector an operation just failed against the
// backend, flipping it to degraded without waiting for the next probe.
func (c *Connector) ReportFailure(err error) {
	if err == nil || c.closed.Load() {
		return
	}
	if c.GetState() == StateConnected {
		c.transitionState(StateDegraded)
	}
}

// ReportSuccess tells the connector an operation just succeeded.
func (c *Connector) ReportSuccess() {
	if c.closed.Load() {
		return
	}
	if c.GetState() == StateDegraded {
		c.transitionState(StateConnected)
	}
}

// Close stops the health checker and releases the driver pool.
func (c *Connector) Close(ctx context.Context) error {
	if c.closed.Swap(true) {
		return nil
	}
	c.logger.Info("closing graph backend connector")
	c.healthCancel()
	c.healthWg.Wait()
	return c.driver.Close(ctx)
}

// transitionState changes state and notifies handlers on edges.
func (c *Connector) transitionState(newState ConnectionState) {
	oldState := ConnectionState(c.state.Swap(int32(newState)))
	if oldState == newState {
		return
	}

	c.logger.Info("graph backend state transition",
		slog.String("from", oldState.String()),
		slog.String("to", newState.String()))

	c.handlersMu.RLock()
	handlers := c.handlers
	c.handlersMu.RUnlock()

	if newState == StateDegraded {
		for _, h := range handlers {
			h.OnDegraded("graph backend became unreachable")
		}
	} else if oldState == StateDegraded {
		for _, h := range handlers {
			h.OnRecovered()
		}
	}
}

// checkHealth performs one connectivity probe with timeout.
func (c *Connector) checkHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.HealthCheckTimeout)
	defer cancel()

	ctx, span := otel.Tracer("neo4j").Start(ctx, "neo4j.health_check")
	defer span.End()

	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "health check failed")
		return fmt.Errorf("health check failed: %w", err)
	}
	span.SetStatus(codes.Ok, "healthy")
	return nil
}

// runHealthChecker probes the backend periodically, faster while degraded.
func (c *Connector) runHealthChecker() {
	defer c.healthWg.Done()

	for {
		interval := c.config.HealthCheckInterval
		if c.GetState() == StateDegraded {
			interval = c.config.DegradedCheckInterval
		}

		select {
		case <-c.healthCtx.Done():
			return
		case <-time.After(interval):
			if err := c.checkHealth(c.healthCtx); err != nil {
				if c.GetState() == StateConnected {
					c.transitionState(StateDegraded)
				}
			} else if c.GetState() == StateDegraded {
				c.transitionState(StateConnected)
			}
		}
	}
}
