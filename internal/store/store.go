// Package store provides durable storage for the dynamic gateway
// configuration. A single capability interface covers the persisted
// gateway blob and its version marker; the Redis implementation is the
// one concrete backend, selected at startup configuration time.
package store

import (
	"context"
)

// ConfigStore is the persistence capability for the dynamic gateway
// configuration.
type ConfigStore interface {
	// GetGateway fetches the persisted gateway configuration tree. It
	// returns util.ErrNotFound when nothing has been stored yet.
	GetGateway(ctx context.Context) (map[string]any, error)

	// SetGateway persists the gateway configuration tree.
	SetGateway(ctx context.Context, raw map[string]any) error

	// Version returns the gateway configuration version marker, or
	// util.ErrNotFound when no marker has been registered.
	Version(ctx context.Context) (string, error)

	// SetVersion registers a version marker for the current gateway
	// configuration generation.
	SetVersion(ctx context.Context, version string) error

	// Close releases backend connections.
	Close() error
}
