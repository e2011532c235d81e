// Package store provides the key/value store backing the response cache
// and server-side sessions. Three backends exist: redis (production),
// sqlite (single-node deployments without redis) and memory (tests, dev).
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or has expired.
var ErrNotFound = errors.New("store: key not found")

// Store is a byte-oriented key/value store with per-key expiry.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Key namespaces. The original store kept raw keys in a dedicated redis
// database; prefixes keep the namespaces apart when backends are shared.
const (
	PrefixSession = "session:"
	PrefixPage    = "page:"
	PrefixStats   = "stats:"
	KeyAppToken   = "apptoken"
)
