package events

import (
	"sync"
	"sync/atomic"

	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/telemetry"
)

// DefaultCapacity is the per-subscriber queue size.
const DefaultCapacity = 256

// Bus is an in-process broadcaster of ChangeEvents.
//
// Publish never blocks on subscribers: each one owns a bounded
// drop-oldest queue. Publishes are serialised, so every subscriber
// observes events in the same global order.
type Bus struct {
	publishMu sync.Mutex

	mu            sync.RWMutex
	subscriptions map[uint64]*Subscription
	nextID        atomic.Uint64
	closed        bool

	capacity int
	log      logger.Logger
}

// NewBus creates a bus whose subscriptions buffer capacity events each.
// A capacity below 1 falls back to DefaultCapacity.
func NewBus(capacity int, log logger.Logger) *Bus {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Bus{
		subscriptions: make(map[uint64]*Subscription),
		capacity:      capacity,
		log:           log,
	}
}

// Publish delivers ev to every attached subscription whose filter matches.
func (b *Bus) Publish(ev ChangeEvent) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	telemetry.EventsPublishedTotal.With(ev.Kind.String()).Inc()

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscriptions {
		if !sub.matches(ev.Kind) {
			continue
		}
		if sub.enqueue(ev) {
			telemetry.EventsDroppedTotal.Inc()
			b.log.Debug("subscriber queue full, dropped oldest event",
				logger.Uint64("subscription", sub.id),
				logger.String("kind", ev.Kind.String()),
				logger.Int64("bookmark_id", ev.BookmarkID),
			)
		}
		telemetry.EventsDeliveredTotal.Inc()
	}
}

// Subscribe attaches a new subscription. A nil filter receives every kind.
// Only events published after Subscribe returns are delivered.
// On a closed bus the returned subscription is already closed.
func (b *Bus) Subscribe(filter *Kind) *Subscription {
	sub := newSubscription(b.nextID.Add(1), filter, b.capacity, b.remove)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.Close()
		return sub
	}
	b.subscriptions[sub.id] = sub
	b.mu.Unlock()

	telemetry.Subscribers.Inc()
	return sub
}

// Unsubscribe detaches sub. It is idempotent and equivalent to sub.Close().
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub != nil {
		sub.Close()
	}
}

// SubscriberCount returns the number of attached subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}

// Close detaches every subscription and refuses new ones.
// Blocked Next calls return ErrClosed. Close is idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	_, ok := b.subscriptions[sub.id]
	delete(b.subscriptions, sub.id)
	b.mu.Unlock()

	if ok {
		telemetry.Subscribers.Dec()
	}
}
