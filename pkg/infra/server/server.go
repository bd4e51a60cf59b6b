package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Manager starts servers in registration order and stops them in reverse.
type Manager struct {
	shutdownTimeout time.Duration
	servers         []Runnable
	mu              sync.Mutex
	started         bool
}

// NewManager creates a new server manager.
func NewManager(shutdownTimeout time.Duration) *Manager {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	return &Manager{shutdownTimeout: shutdownTimeout}
}

// AddServer adds a server to the manager.
func (m *Manager) AddServer(server Runnable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append(m.servers, server)
}

// Start starts all servers. If one fails, those already started are stopped.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("server manager already started")
	}

	for i, server := range m.servers {
		if err := server.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = m.servers[j].Stop(ctx)
			}
			return fmt.Errorf("failed to start server %s: %w", server.Name(), err)
		}
		logger.Infow("server started", "name", server.Name())
	}

	m.started = true
	return nil
}

// Stop stops all servers gracefully in reverse order.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}
	m.started = false

	var errs []error
	for i := len(m.servers) - 1; i >= 0; i-- {
		server := m.servers[i]
		if err := server.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop server %s: %w", server.Name(), err))
			continue
		}
		logger.Infow("server stopped", "name", server.Name())
	}
	return utilerrors.NewAggregate(errs)
}

// Run starts all servers, blocks until ctx is done and then shuts down
// within the configured shutdown timeout.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()

	return m.Stop(shutdownCtx)
}
