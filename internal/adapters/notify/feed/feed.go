// Package feed buffers ledger notices for asynchronous consumption.
//
// Publishing never blocks a ledger operation: a full or closed feed
// drops the notice instead of stalling the caller.
package feed

import (
	"context"
	"sync"

	"github.com/okian/vouch/internal/domain/model"
	"github.com/okian/vouch/pkg/metrics"
)

// Default feed configuration constants.
const (
	defaultFeedCapacity = 10000
	defaultBufferSize   = 10000
)

// Notice is the payload type flowing through the feed.
type Notice = model.Notice

// Feed provides non-blocking publish and channel-based subscribe semantics.
type Feed interface {
	// Publish adds a notice to the feed.
	// Returns false if the feed is full or closed and the notice was dropped.
	Publish(ctx context.Context, n Notice) bool

	// Subscribe returns a channel that receives notices as they become
	// available. The channel is closed when the feed is closed.
	Subscribe(ctx context.Context) <-chan Notice

	// Len returns the current number of buffered notices.
	Len(ctx context.Context) int

	// Close gracefully shuts down the feed.
	// After closing, no new notices are accepted and subscriber channels close.
	Close() error

	// IsClosed returns true if the feed has been closed.
	IsClosed() bool
}

// InMemoryFeed implements Feed using a buffered channel.
type InMemoryFeed struct {
	notices    chan Notice
	capacity   int
	bufferSize int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryFeed creates a new in-memory feed with configuration options.
func NewInMemoryFeed(opts ...Option) *InMemoryFeed {
	f := &InMemoryFeed{
		capacity:   defaultFeedCapacity,
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(f)
	}

	f.notices = make(chan Notice, f.bufferSize)

	metrics.UpdateFeedCapacity(f.capacity)
	metrics.UpdateFeedSize(0)
	metrics.UpdateFeedUtilization(0.0)

	return f
}

// Publish adds a notice to the feed.
func (f *InMemoryFeed) Publish(ctx context.Context, n Notice) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		metrics.RecordNoticeDropped()
		return false
	}

	if len(f.notices) >= f.capacity {
		metrics.RecordNoticeDropped()
		return false
	}

	select {
	case f.notices <- n:
		metrics.RecordNoticePublished()
		size := len(f.notices)
		metrics.UpdateFeedSize(size)
		metrics.UpdateFeedUtilization(float64(size) / float64(f.capacity))
		return true
	case <-ctx.Done():
		metrics.RecordNoticeDropped()
		return false
	default:
		metrics.RecordNoticeDropped()
		return false
	}
}

// Subscribe returns a channel that receives notices as they become available.
func (f *InMemoryFeed) Subscribe(ctx context.Context) <-chan Notice {
	out := make(chan Notice)
	go func() {
		defer close(out)
		for n := range f.notices {
			select {
			case out <- n:
				size := len(f.notices)
				metrics.UpdateFeedSize(size)
				metrics.UpdateFeedUtilization(float64(size) / float64(f.capacity))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of buffered notices.
func (f *InMemoryFeed) Len(_ context.Context) int {
	size := len(f.notices)
	metrics.UpdateFeedSize(size)
	metrics.UpdateFeedUtilization(float64(size) / float64(f.capacity))
	return size
}

// Close gracefully shuts down the feed.
func (f *InMemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}

	close(f.notices)
	f.closed = true

	return nil
}

// IsClosed returns true if the feed has been closed.
func (f *InMemoryFeed) IsClosed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.closed
}
