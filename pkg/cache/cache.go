// Package cache provides pluggable byte caching for CLI usage.
//
// The Cache interface abstracts the storage backend (file-based or
// disabled), while Keyer generates stable, collision-free cache keys for
// the different things the engine caches: HTTP responses, resolved git
// references, and raw file content.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys with optional TTL.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys for the engine's cacheable artifacts.
type Keyer interface {
	// HTTPKey generates a key for a raw HTTP response.
	HTTPKey(namespace, key string) string

	// RefKey generates a key for a resolved git reference.
	RefKey(repoURL, ref string) string

	// ContentKey generates a key for file content at a pinned revision.
	ContentKey(repoURL, ref, path string) string
}

// DefaultKeyer generates hash-based keys with type prefixes.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// HTTPKey generates a key for HTTP response caching. Namespace and key
// are kept readable since they are already filesystem-safe after hashing
// by the storage backend.
func (k *DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// RefKey generates a key for resolved reference caching.
func (k *DefaultKeyer) RefKey(repoURL, ref string) string {
	return hashKey("ref", repoURL, ref)
}

// ContentKey generates a key for file content caching.
func (k *DefaultKeyer) ContentKey(repoURL, ref, path string) string {
	return hashKey("content", repoURL, ref, path)
}
