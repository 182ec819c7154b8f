package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Next once the subscription has been closed.
var ErrClosed = errors.New("subscription closed")

// Subscription is one subscriber's bounded queue on a Bus.
//
// The queue is a ring of fixed capacity. When it is full, enqueueing
// evicts the oldest buffered event, so the publisher never waits.
type Subscription struct {
	id     uint64
	filter *Kind

	mu      sync.Mutex
	ring    []ChangeEvent
	head    int // index of the oldest buffered event
	size    int
	dropped uint64

	notify chan struct{} // cap 1, signalled on every enqueue
	done   chan struct{}
	closed atomic.Bool

	detach func(*Subscription)
}

func newSubscription(id uint64, filter *Kind, capacity int, detach func(*Subscription)) *Subscription {
	var f *Kind
	if filter != nil {
		k := *filter
		f = &k
	}
	return &Subscription{
		id:     id,
		filter: f,
		ring:   make([]ChangeEvent, capacity),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		detach: detach,
	}
}

// matches checks the event kind against the subscription filter.
// A nil filter accepts everything.
func (s *Subscription) matches(k Kind) bool {
	return s.filter == nil || *s.filter == k
}

// enqueue appends ev, evicting the oldest event when full.
// It reports whether an event was evicted.
func (s *Subscription) enqueue(ev ChangeEvent) (evicted bool) {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return false
	}

	capacity := len(s.ring)
	if s.size == capacity {
		s.ring[s.head] = ChangeEvent{}
		s.head = (s.head + 1) % capacity
		s.size--
		s.dropped++
		evicted = true
	}
	s.ring[(s.head+s.size)%capacity] = ev
	s.size++
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return evicted
}

// TryNext pops the oldest buffered event without waiting.
func (s *Subscription) TryNext() (ChangeEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size == 0 || s.closed.Load() {
		return ChangeEvent{}, false
	}
	ev := s.ring[s.head]
	s.ring[s.head] = ChangeEvent{}
	s.head = (s.head + 1) % len(s.ring)
	s.size--
	return ev, true
}

// Next blocks until an event is available, ctx is done, or the
// subscription is closed. Buffered events are discarded on close.
func (s *Subscription) Next(ctx context.Context) (ChangeEvent, error) {
	for {
		if s.closed.Load() {
			return ChangeEvent{}, ErrClosed
		}
		if ev, ok := s.TryNext(); ok {
			return ev, nil
		}

		select {
		case <-ctx.Done():
			return ChangeEvent{}, ctx.Err()
		case <-s.done:
			return ChangeEvent{}, ErrClosed
		case <-s.notify:
		}
	}
}

// Len returns the number of buffered events.
func (s *Subscription) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Cap returns the queue capacity.
func (s *Subscription) Cap() int {
	return len(s.ring)
}

// Dropped returns how many events were evicted by overflow.
func (s *Subscription) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Done is closed when the subscription is closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close detaches the subscription from its bus and releases its queue.
// It is idempotent.
func (s *Subscription) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.detach != nil {
		s.detach(s)
	}

	s.mu.Lock()
	s.ring = nil
	s.head, s.size = 0, 0
	s.mu.Unlock()

	close(s.done)
}
