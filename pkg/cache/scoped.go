package cache

// ScopedKeyer wraps a Keyer with a prefix so several record sets can share
// one backend without colliding.
//
// Example usage:
//
//	// Keep records of two hosts apart in a shared Redis
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "host:build-01:")
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

// RecordsKey generates a prefixed key for record list caching.
func (k *ScopedKeyer) RecordsKey(source string, opts RecordsKeyOpts) string {
	return k.prefix + k.inner.RecordsKey(source, opts)
}

// RenderKey generates a prefixed key for rendered output caching.
func (k *ScopedKeyer) RenderKey(recordsHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(recordsHash, opts)
}
