// Package worker delivers queued events to a Deliverer on a small pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/goalsensor/internal/adapters/mq/queue"
	"github.com/okian/goalsensor/pkg/logger"
	"github.com/okian/goalsensor/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 2
	defaultTimeout      = 5 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Event abstracts what workers read off the queue.
type Event = queue.Event

// Deliverer hands one event to its destination.
type Deliverer interface {
	Deliver(ctx context.Context, e Event) error
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, e Event) error

// Deliver calls f.
func (f DelivererFunc) Deliver(ctx context.Context, e Event) error { return f(ctx, e) }

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events until its queue is drained or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for delivering events.
type InMemoryWorker struct {
	queue     Queue
	deliverer Deliverer
	name      string
	timeout   time.Duration

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	delivered atomic.Uint64
	failed    atomic.Uint64

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, deliverer Deliverer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		deliverer: deliverer,
		name:      "worker",
		timeout:   defaultTimeout,
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				// Channel closed, worker should stop
				return
			}
			if err := w.process(ctx, e); err != nil {
				w.logger.Warn(ctx, "delivery failed",
					logger.String("kind", string(e.Kind)),
					logger.String("team", e.Team),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Delivered returns how many events this worker delivered.
func (w *InMemoryWorker) Delivered() uint64 { return w.delivered.Load() }

// Failed returns how many deliveries failed.
func (w *InMemoryWorker) Failed() uint64 { return w.failed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	deliverCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.deliverer.Deliver(deliverCtx, e); err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordNotification(string(e.Kind), "failed")
		metrics.RecordErrorByComponent("worker", "delivery_error")
		return fmt.Errorf("deliver %s event for %s: %w", e.Kind, e.Team, err)
	}

	w.delivered.Add(1)
	metrics.RecordNotification(string(e.Kind), "delivered")
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	started atomic.Bool

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, deliverer Deliverer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, deliverer, workerOpts...)
	}

	metrics.UpdateWorkerActiveCount(workerCount)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Delivered returns the total delivered count across workers.
func (p *Pool) Delivered() uint64 {
	var n uint64
	for _, w := range p.workers {
		n += w.Delivered()
	}
	return n
}

// Failed returns the total failed count across workers.
func (p *Pool) Failed() uint64 {
	var n uint64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new events
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if !p.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}

	return nil
}
