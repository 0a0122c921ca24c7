// Package storage defines the base abstractions shared by storage clients.
// A storage client wraps a backend connection (Redis today) and exposes a
// uniform surface for connectivity checks and graceful shutdown.
package storage

import (
	"context"
	"time"
)

// Client is the base interface that all storage clients implement.
type Client interface {
	// Name returns a lowercase storage type identifier, e.g. "redis".
	// The name is used for logging and health check reporting.
	Name() string

	// Ping checks if the connection to the backend is alive. It should
	// perform a lightweight operation and honor the context deadline.
	Ping(ctx context.Context) error

	// Close closes the connection and releases resources.
	// Close is idempotent and safe to call multiple times.
	Close() error

	// Health returns a HealthChecker bound to this client, for
	// integration with health check endpoints.
	Health() HealthChecker
}

// HealthChecker performs a health check without direct access to the client.
type HealthChecker func() error

// HealthStatus is the result of a health check operation.
type HealthStatus struct {
	// Name identifies the storage instance, matching Client.Name().
	Name string

	// Healthy indicates whether the backend responded normally.
	Healthy bool

	// Latency is how long the health check took. Useful for spotting
	// degradation even when the backend is technically healthy.
	Latency time.Duration

	// Error holds the failure details; nil when Healthy is true.
	Error error
}

// Factory creates storage clients. It allows dependency injection and
// testing with mock implementations.
type Factory interface {
	// Create creates and initializes a new client. The returned client
	// is connected and verified.
	Create(ctx context.Context) (Client, error)
}
