// Package httputil provides HTTP utilities for git host API clients.
//
// # Overview
//
// This package provides infrastructure used by all host API clients:
//
//   - [Cache]: File-based HTTP response caching
//   - [Retry]: Automatic retry with exponential backoff
//
// # Caching
//
// [Cache] stores HTTP responses in the filesystem (~/.cache/agentpm/)
// with configurable TTL. This speeds up repeated installs and keeps
// ref lookups from hammering the host APIs.
//
// Usage:
//
//	cache, err := httputil.NewCache("", 24*time.Hour)
//	var meta repoMetadata
//	ok, err := cache.Get("github:owner/repo", &meta)
//	if !ok {
//	    meta = fetchFromAPI()
//	    cache.Set("github:owner/repo", meta)
//	}
//
// Cache keys should be namespaced by host to avoid collisions.
//
// # Retry
//
// [Retry] wraps HTTP requests with automatic retry for transient failures:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// It uses exponential backoff with jitter to avoid thundering herd:
//
//	resp, err := httputil.Retry(func() (*http.Response, error) {
//	    return http.Get(url)
//	})
//
// # Configuration
//
// Default settings are suitable for most use cases:
//
//   - Cache directory: $XDG_CACHE_HOME/agentpm or ~/.cache/agentpm/
//   - Default TTL: 24 hours
//   - Max retries: 3
//   - Base backoff: 1 second
//
// The cache can be cleared via `agentpm cache clear` or by deleting
// the cache directory.
package httputil
