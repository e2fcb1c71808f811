// Package replay tracks request identifiers so retried endorsement
// submissions are applied at most once.
package replay

// Option applies a configuration option to the in-memory guard.
type Option func(*inMemoryGuard)

// WithMaxSize sets the maximum number of IDs to keep in memory.
// A positive value bounds the guard with oldest-first eviction; zero or
// a negative value disables eviction entirely.
func WithMaxSize(maxSize int) Option {
	return func(g *inMemoryGuard) {
		g.maxSize = maxSize
	}
}
