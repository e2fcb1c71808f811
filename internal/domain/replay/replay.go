// Package replay tracks request identifiers so retried endorsement
// submissions are applied at most once.
package replay

import (
	"context"
	"sync"
	"sync/atomic"
)

// Guard records request IDs that have already been accepted.
type Guard interface {
	// SeenAndRecord atomically checks whether id was seen and records it
	// if not. Returns true if id was already seen, false if it was newly
	// recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an ID so the request can be retried. Call it when
	// a recorded request failed downstream and the client should be
	// allowed to resubmit.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// node is a single entry in the eviction list.
type node struct {
	id   string
	next *node
}

func (n *node) reset() {
	n.id = ""
	n.next = nil
}

// inMemoryGuard keeps seen IDs in memory. With maxSize > 0 it holds a
// linked list evicting the oldest entry once full, reusing nodes
// through a sync.Pool. With maxSize <= 0 it degrades to a plain map
// that never evicts.
type inMemoryGuard struct {
	mu       sync.RWMutex
	seen     map[string]*node
	head     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryGuard creates an in-memory replay guard.
func NewInMemoryGuard(opts ...Option) Guard {
	g := &inMemoryGuard{
		maxSize: 50000,
	}

	for _, opt := range opts {
		opt(g)
	}

	g.seen = make(map[string]*node)

	if g.maxSize > 0 {
		g.nodePool = sync.Pool{
			New: func() interface{} {
				return &node{}
			},
		}
	}

	return g
}

// SeenAndRecord atomically checks whether id was seen and records it if not.
func (g *inMemoryGuard) SeenAndRecord(_ context.Context, id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.seen[id]; exists {
		return true
	}

	if g.maxSize > 0 {
		if len(g.seen) >= g.maxSize {
			g.evictOldest()
		}

		n := g.nodePool.Get().(*node)
		n.id = id
		n.next = g.head

		g.head = n
		g.seen[id] = n
	} else {
		g.seen[id] = nil
	}
	g.size.Add(1)
	return false
}

// Unrecord forgets an ID so the request can be retried.
func (g *inMemoryGuard) Unrecord(_ context.Context, id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, exists := g.seen[id]
	if !exists {
		return
	}
	delete(g.seen, id)
	g.size.Add(-1)

	if g.maxSize <= 0 {
		return
	}

	if g.head == entry {
		g.head = entry.next
	} else {
		current := g.head
		for current != nil && current.next != entry {
			current = current.next
		}
		if current != nil {
			current.next = entry.next
		}
	}

	entry.reset()
	g.nodePool.Put(entry)
}

// evictOldest drops the entry at the tail of the list. Must be called
// with g.mu held.
func (g *inMemoryGuard) evictOldest() {
	if len(g.seen) == 0 || g.head == nil {
		return
	}

	var prev *node
	current := g.head

	if current.next == nil {
		delete(g.seen, current.id)
		current.reset()
		g.nodePool.Put(current)
		g.head = nil
		g.size.Add(-1)
		return
	}

	for current.next != nil {
		prev = current
		current = current.next
	}

	prev.next = nil
	delete(g.seen, current.id)
	current.reset()
	g.nodePool.Put(current)
	g.size.Add(-1)
}

// Size returns the current number of tracked IDs.
func (g *inMemoryGuard) Size() int64 {
	return g.size.Load()
}
