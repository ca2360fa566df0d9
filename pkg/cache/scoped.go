package cache

// ScopedKeyer wraps a Keyer with a prefix for isolation between
// contexts that share a cache directory, such as separate hosts or
// authenticated versus anonymous fetches.
//
// Example usage:
//
//	// Keys scoped to an enterprise host
//	hostKeyer := NewScopedKeyer(NewDefaultKeyer(), "ghe.example.com:")
//
//	// Global keys for github.com
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// RefKey generates a prefixed key for resolved reference caching.
func (k *ScopedKeyer) RefKey(repoURL, ref string) string {
	return k.prefix + k.inner.RefKey(repoURL, ref)
}

// ContentKey generates a prefixed key for file content caching.
func (k *ScopedKeyer) ContentKey(repoURL, ref, path string) string {
	return k.prefix + k.inner.ContentKey(repoURL, ref, path)
}
