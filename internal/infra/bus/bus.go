// Package bus broadcasts domain events to in-process subscribers and,
// optionally, to a RabbitMQ fanout exchange for other processes.
// Delivery is advisory and at-most-once: a publish never blocks the
// caller and never fails the operation that produced the event.
package bus

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/observability"
)

const subscriberBuffer = 16

// Local fans events out to in-process subscribers over buffered channels.
// A slow subscriber whose buffer is full misses events rather than
// blocking the publisher.
type Local struct {
	mu      sync.RWMutex
	subs    map[int]chan domain.Event
	nextID  int
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewLocal returns an in-process event bus.
func NewLocal(logger *zap.Logger, metrics *observability.Metrics) *Local {
	return &Local{
		subs:    make(map[int]chan domain.Event),
		logger:  logger,
		metrics: metrics,
	}
}

// Publish delivers event to every current subscriber without blocking.
func (b *Local) Publish(_ context.Context, event domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.Warn("event dropped for slow subscriber",
				zap.Int("subscriber", id),
				zap.String("type", event.Type),
			)
		}
	}
	if b.metrics != nil {
		b.metrics.IncrEventPublished("local")
	}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called to release the subscription; the channel is closed by cancel.
func (b *Local) Subscribe() (<-chan domain.Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan domain.Event, subscriberBuffer)
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Composite publishes to several publishers in order.
type Composite struct {
	publishers []Publisher
}

// Publisher is the minimal publish interface the composite fans out to.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// NewComposite returns a publisher that forwards to each of pubs.
func NewComposite(pubs ...Publisher) *Composite {
	return &Composite{publishers: pubs}
}

// Publish forwards the event to every configured publisher.
func (c *Composite) Publish(ctx context.Context, event domain.Event) {
	for _, p := range c.publishers {
		p.Publish(ctx, event)
	}
}
