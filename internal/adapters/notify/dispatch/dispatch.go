// Package dispatch drains the notice feed and fans each notice out to
// registered sinks.
package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/vouch/internal/domain/model"
	"github.com/okian/vouch/pkg/logger"
	"github.com/okian/vouch/pkg/metrics"
)

// Default dispatcher configuration constants.
const (
	defaultDispatcherMultiplier = 2 // multiplier for runtime.NumCPU()
	metricsUpdateInterval       = 5 * time.Second
	dispatcherShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout         = 30 * time.Second
)

// Notice abstracts what dispatchers read off the feed.
type Notice = model.Notice

// Sink consumes notices delivered by a dispatcher.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Handle processes a single notice. Errors are logged and counted
	// but do not stop delivery to other sinks.
	Handle(ctx context.Context, n Notice) error
}

// Source defines how dispatchers receive notices.
type Source interface {
	Subscribe(ctx context.Context) <-chan Notice
}

// Dispatcher drains a source and delivers every notice to all sinks.
type Dispatcher struct {
	source Source
	sinks  []Sink
	name   string

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(source Source, sinks []Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		source:   source,
		sinks:    sinks,
		name:     "dispatcher", // default name
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("dispatcher"),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.name != "dispatcher" {
		d.logger = d.logger.Named(d.name)
	}

	return d
}

// Run starts the dispatch loop until the context is canceled, the
// dispatcher is shut down, or the source closes.
func (d *Dispatcher) Run(ctx context.Context) {
	defer func() {
		close(d.done)
	}()

	notices := d.source.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case n, ok := <-notices:
			if !ok {
				return
			}
			d.deliver(ctx, n)
		}
	}
}

// Shutdown gracefully stops the dispatcher.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.stopOnce.Do(func() {
		close(d.shutdown)
	})

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// deliver hands one notice to every sink.
func (d *Dispatcher) deliver(ctx context.Context, n Notice) {
	start := time.Now()
	defer func() {
		metrics.RecordDispatchLatency(float64(time.Since(start).Milliseconds()))
	}()

	for _, s := range d.sinks {
		if err := s.Handle(ctx, n); err != nil {
			metrics.RecordSinkError(s.Name())
			d.logger.Error(ctx, "sink failed to handle notice",
				logger.String("sink", s.Name()),
				logger.String("kind", string(n.Kind)),
				logger.String("notice_id", n.ID),
				logger.Error(err),
			)
		}
	}
	metrics.RecordNoticeDispatched()
}

// Pool manages multiple dispatchers draining the same source.
type Pool struct {
	dispatchers []*Dispatcher
	source      Source

	stopOnce sync.Once
	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a dispatcher pool. A count below one falls back to a
// multiple of the CPU count.
func NewPool(count int, source Source, sinks ...Sink) *Pool {
	if count < 1 {
		count = runtime.NumCPU() * defaultDispatcherMultiplier
	}

	pool := &Pool{
		dispatchers: make([]*Dispatcher, count),
		source:      source,
		shutdown:    make(chan struct{}),
		logger:      logger.Get().Named("dispatch-pool"),
	}

	for i := 0; i < count; i++ {
		pool.dispatchers[i] = NewDispatcher(
			source,
			sinks,
			WithName("dispatcher-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateDispatcherCount(count)

	return pool
}

// Start starts all dispatchers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, d := range p.dispatchers {
		go d.Run(ctx)
	}

	go p.startMetricsUpdater(ctx)
}

// startMetricsUpdater periodically refreshes feed gauges while the
// pool is running.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			// Len refreshes the size and utilization gauges as a side effect.
			if lener, ok := p.source.(interface{ Len(context.Context) int }); ok {
				lener.Len(ctx)
			}
		}
	}
}

// Stop gracefully stops all dispatchers without closing the source.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.shutdown)
	})

	ctx, cancel := context.WithTimeout(context.Background(), dispatcherShutdownTimeout)
	defer cancel()

	for _, d := range p.dispatchers {
		if err := d.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "dispatcher stop timed out",
				logger.String("dispatcher", d.name),
			)
		}
	}
}

// Shutdown closes the source and waits for the dispatchers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing feed", logger.Error(err))
		}
	}

	p.stopOnce.Do(func() {
		close(p.shutdown)
	})

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, d := range p.dispatchers {
		select {
		case <-d.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "dispatcher shutdown timed out", logger.Int("dispatcher_id", i))
		}
	}

	return nil
}
