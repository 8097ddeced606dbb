package notify

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/goalsensor/internal/adapters/mq/queue"
	"github.com/okian/goalsensor/internal/adapters/mq/worker"
	"github.com/okian/goalsensor/internal/domain/event"
	"github.com/okian/goalsensor/pkg/logger"
	"github.com/okian/goalsensor/pkg/metrics"
)

// Default notifier configuration constants.
const (
	defaultQueueSize = 64
	defaultWorkers   = 1
)

// Notifier is an event.Sink that hands selected events to a worker pool.
// Record never blocks: when the queue is full the event is dropped and counted.
type Notifier struct {
	kinds     map[event.Kind]bool
	queueSize int
	workers   int
	timeout   time.Duration
	newID     func() string
	logger    logger.Logger

	queue *queue.InMemoryQueue
	pool  *worker.Pool

	accepted atomic.Uint64
	dropped  atomic.Uint64
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithKinds selects which event kinds are forwarded. Defaults to goals only.
func WithKinds(kinds ...event.Kind) Option {
	return func(n *Notifier) {
		if len(kinds) == 0 {
			return
		}
		n.kinds = make(map[event.Kind]bool, len(kinds))
		for _, k := range kinds {
			n.kinds[k] = true
		}
	}
}

// WithQueueSize sets how many notifications may wait for delivery.
func WithQueueSize(size int) Option {
	return func(n *Notifier) {
		if size > 0 {
			n.queueSize = size
		}
	}
}

// WithWorkers sets the number of delivery goroutines.
func WithWorkers(count int) Option {
	return func(n *Notifier) {
		if count > 0 {
			n.workers = count
		}
	}
}

// WithDeliveryTimeout bounds a single delivery.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithLogger sets the logger used for dropped notifications.
func WithLogger(l logger.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithIDGenerator overrides how event ids are assigned.
func WithIDGenerator(newID func() string) Option {
	return func(n *Notifier) {
		if newID != nil {
			n.newID = newID
		}
	}
}

// New builds a notifier delivering through d.
func New(d worker.Deliverer, opts ...Option) *Notifier {
	n := &Notifier{
		kinds:     map[event.Kind]bool{event.KindGoal: true},
		queueSize: defaultQueueSize,
		workers:   defaultWorkers,
		timeout:   defaultWebhookTimeout,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = logger.Get().Named("notify")
	}

	n.queue = queue.NewInMemoryQueue(queue.WithCapacity(n.queueSize))
	n.pool = worker.NewPool(n.workers, n.queue, d,
		worker.WithTimeout(n.timeout),
		worker.WithLogger(n.logger),
	)
	return n
}

// Record enqueues e if its kind is selected.
func (n *Notifier) Record(ctx context.Context, e event.Event) { //nolint:gocritic // hugeParam: event.Sink signature
	if !n.kinds[e.Kind] {
		return
	}
	if e.ID == "" {
		e.ID = n.newID()
	}
	if n.queue.Enqueue(context.WithoutCancel(ctx), e) {
		n.accepted.Add(1)
		return
	}
	n.dropped.Add(1)
	metrics.RecordNotification(string(e.Kind), "dropped")
	n.logger.Warn(ctx, "notification dropped",
		logger.String("kind", string(e.Kind)),
		logger.String("team", e.Team),
		logger.String("id", e.ID),
	)
}

// Start launches the delivery workers.
func (n *Notifier) Start(ctx context.Context) {
	n.pool.Start(ctx)
}

// Shutdown stops accepting notifications and waits for queued ones to be delivered.
func (n *Notifier) Shutdown(ctx context.Context) error {
	return n.pool.Shutdown(ctx)
}

// Stats reports notifier counters.
func (n *Notifier) Stats() map[string]interface{} {
	return map[string]interface{}{
		"accepted":  n.accepted.Load(),
		"dropped":   n.dropped.Load(),
		"delivered": n.pool.Delivered(),
		"failed":    n.pool.Failed(),
		"queued":    n.queue.Len(context.Background()),
		"capacity":  n.queue.Capacity(),
		"workers":   n.pool.Size(),
	}
}
