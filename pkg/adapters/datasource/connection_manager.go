package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/logging"
	"github.com/ekaya-inc/query-estimator/pkg/retry"
)

const (
	DefaultConnectionTTLMinutes = 5
	DefaultCleanupInterval      = 1 * time.Minute
	DefaultMaxConnections       = 20
)

// ConnectionManagerConfig holds configuration for the connection manager
type ConnectionManagerConfig struct {
	TTLMinutes     int
	MaxConnections int
	// HealthRetry controls the ping retried before a cached executor is reused.
	// Nil uses retry.DefaultConfig.
	HealthRetry *retry.Config
}

// OpenFunc opens a new executor for a cache miss.
type OpenFunc func(ctx context.Context) (Executor, error)

// ConnectionManager caches one Executor per database with TTL-based expiry
// and a health check before reuse.
type ConnectionManager struct {
	mu              sync.RWMutex
	connections     map[string]*ManagedConnection // key: database id
	ttl             time.Duration
	maxConnections  int
	healthRetry     *retry.Config
	cleanupInterval time.Duration
	stopped         bool
	stopChan        chan struct{}
	logger          *zap.Logger
}

// ManagedConnection is a cached executor and its last use.
type ManagedConnection struct {
	executor Executor
	lastUsed time.Time
	mu       sync.Mutex
}

// NewConnectionManager creates a connection manager with the given configuration.
// Starts a background cleanup goroutine that runs until Close() is called.
func NewConnectionManager(cfg ConnectionManagerConfig, logger *zap.Logger) *ConnectionManager {
	if cfg.TTLMinutes <= 0 {
		cfg.TTLMinutes = DefaultConnectionTTLMinutes
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultMaxConnections
	}
	if cfg.HealthRetry == nil {
		cfg.HealthRetry = retry.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	manager := &ConnectionManager{
		connections:     make(map[string]*ManagedConnection),
		ttl:             time.Duration(cfg.TTLMinutes) * time.Minute,
		maxConnections:  cfg.MaxConnections,
		healthRetry:     cfg.HealthRetry,
		cleanupInterval: DefaultCleanupInterval,
		stopChan:        make(chan struct{}),
		logger:          logger,
	}

	go manager.cleanupExpiredConnections()
	return manager
}

// GetOrCreateExecutor returns the cached executor for key, opening one with
// open when none is cached or the cached one fails its health check.
func (m *ConnectionManager) GetOrCreateExecutor(ctx context.Context, key string, open OpenFunc) (Executor, error) {
	m.mu.RLock()
	managed, exists := m.connections[key]
	m.mu.RUnlock()

	if exists {
		managed.mu.Lock()

		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err := retry.Do(healthCtx, m.healthRetry, func() error {
			return managed.executor.Ping(healthCtx)
		})

		if err != nil {
			m.logger.Warn("connection unhealthy, recreating",
				zap.String("key", key),
				zap.String("error", logging.SanitizeError(err)),
			)
			managed.mu.Unlock()
			m.removeConnection(key)
			return m.createExecutor(ctx, key, open)
		}

		managed.lastUsed = time.Now()
		managed.mu.Unlock()
		return managed.executor, nil
	}

	return m.createExecutor(ctx, key, open)
}

// createExecutor opens and caches a new executor.
// Caller must NOT hold any locks (this method acquires write lock).
func (m *ConnectionManager) createExecutor(ctx context.Context, key string, open OpenFunc) (Executor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil, fmt.Errorf("connection manager is closed")
	}

	// Double-check after acquiring write lock (another goroutine may have created it)
	if managed, exists := m.connections[key]; exists && managed != nil {
		managed.mu.Lock()
		defer managed.mu.Unlock()
		managed.lastUsed = time.Now()
		return managed.executor, nil
	}

	if len(m.connections) >= m.maxConnections {
		m.logger.Warn("reached max connections limit",
			zap.Int("current", len(m.connections)),
			zap.Int("max", m.maxConnections),
		)
		return nil, fmt.Errorf("maximum connections limit reached (%d)", m.maxConnections)
	}

	var executor Executor
	err := retry.DoIfRetryable(ctx, m.healthRetry, func() error {
		var openErr error
		executor, openErr = open(ctx)
		return openErr
	})
	if err != nil {
		m.logger.Error("failed to open executor",
			zap.String("key", key),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, fmt.Errorf("failed to open connection for %s: %w", key, err)
	}

	m.connections[key] = &ManagedConnection{
		executor: executor,
		lastUsed: time.Now(),
	}

	m.logger.Info("created new connection",
		zap.String("key", key),
		zap.Int("totalConnections", len(m.connections)),
	)

	return executor, nil
}

// removeConnection removes an executor from the cache and closes it.
// Caller must NOT hold m.mu lock (this method acquires write lock).
func (m *ConnectionManager) removeConnection(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if managed, exists := m.connections[key]; exists && managed != nil {
		m.closeExecutor(key, managed)
		delete(m.connections, key)
		m.logger.Debug("removed connection",
			zap.String("key", key),
		)
	}
}

func (m *ConnectionManager) closeExecutor(key string, managed *ManagedConnection) {
	if managed.executor == nil {
		return
	}
	if err := managed.executor.Close(); err != nil {
		m.logger.Warn("failed to close connection",
			zap.String("key", key),
			zap.String("error", logging.SanitizeError(err)),
		)
	}
}

// cleanupExpiredConnections runs periodically to remove expired connections.
// Runs in a background goroutine until stopChan is closed.
func (m *ConnectionManager) cleanupExpiredConnections() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performCleanup(time.Now())
		case <-m.stopChan:
			return
		}
	}
}

// performCleanup removes connections that haven't been used within TTL.
// Lock order is manager lock, then connection lock.
func (m *ConnectionManager) performCleanup(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}

	expiredKeys := []string{}

	for key, managed := range m.connections {
		if managed != nil {
			managed.mu.Lock()
			idleTime := now.Sub(managed.lastUsed)
			managed.mu.Unlock()

			if idleTime > m.ttl {
				expiredKeys = append(expiredKeys, key)
				m.logger.Debug("marking connection for cleanup",
					zap.String("key", key),
					zap.Duration("idleTime", idleTime),
					zap.Duration("ttl", m.ttl),
				)
			}
		}
	}

	for _, key := range expiredKeys {
		if managed, exists := m.connections[key]; exists && managed != nil {
			m.closeExecutor(key, managed)
			delete(m.connections, key)
		}
	}

	if len(expiredKeys) > 0 {
		m.logger.Info("cleaned up expired connections",
			zap.Int("count", len(expiredKeys)),
			zap.Int("remaining", len(m.connections)),
		)
	}
}

// Close closes all connections in the manager and stops the cleanup goroutine.
// This method is idempotent and safe to call multiple times.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil
	}

	m.stopped = true
	close(m.stopChan)

	for key, managed := range m.connections {
		if managed != nil {
			m.closeExecutor(key, managed)
		}
	}

	m.connections = make(map[string]*ManagedConnection)
	m.logger.Info("connection manager closed")
	return nil
}

// GetStats returns statistics about the connection manager.
// Safe to call concurrently.
func (m *ConnectionManager) GetStats() ConnectionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	stats := ConnectionStats{
		TotalConnections: len(m.connections),
		MaxConnections:   m.maxConnections,
		TTLMinutes:       int(m.ttl.Minutes()),
	}

	for _, managed := range m.connections {
		if managed != nil {
			managed.mu.Lock()
			idleSeconds := int(now.Sub(managed.lastUsed).Seconds())
			managed.mu.Unlock()
			if idleSeconds > stats.OldestIdleSeconds {
				stats.OldestIdleSeconds = idleSeconds
			}
		}
	}

	return stats
}

// ConnectionStats contains statistics about the connection manager state.
type ConnectionStats struct {
	TotalConnections  int `json:"total_connections"`
	MaxConnections    int `json:"max_connections"`
	TTLMinutes        int `json:"ttl_minutes"`
	OldestIdleSeconds int `json:"oldest_idle_seconds"`
}
