// Package feed buffers ledger notices for asynchronous consumption.
package feed

// Option applies a configuration option to the InMemoryFeed.
type Option func(*InMemoryFeed)

// WithCapacity sets the maximum number of buffered notices.
func WithCapacity(capacity int) Option {
	return func(f *InMemoryFeed) {
		if capacity > 0 {
			f.capacity = capacity
		}
	}
}

// WithBufferSize sets the buffer size for the notices channel.
func WithBufferSize(size int) Option {
	return func(f *InMemoryFeed) {
		if size > 0 {
			f.bufferSize = size
		}
	}
}
