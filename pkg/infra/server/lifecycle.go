// Package server runs the process' servers under one lifecycle.
package server

import "context"

// Lifecycle defines the lifecycle interface for servers.
type Lifecycle interface {
	// Start starts the server. It must return once the server accepts work.
	Start(ctx context.Context) error
	// Stop stops the server gracefully.
	Stop(ctx context.Context) error
}

// Runnable represents a component that can be started and stopped.
type Runnable interface {
	Lifecycle
	// Name returns the server name for identification.
	Name() string
}
