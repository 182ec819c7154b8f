package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// View names one of the projections a client can attach to.
type View string

const (
	ViewChanged View = "changed"
	ViewCreated View = "created"
	ViewUpdated View = "updated"
	ViewDeleted View = "deleted"
)

// ParseView validates a view name, case-insensitively.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewChanged, ViewCreated, ViewUpdated, ViewDeleted:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown subscription view %q", domain.ErrValidation, s)
	}
}

// Stream is a typed view over one subscription.
type Stream[T any] struct {
	sub     *Subscription
	project func(ChangeEvent) (T, bool)
}

func newStream[T any](sub *Subscription, project func(ChangeEvent) (T, bool)) *Stream[T] {
	return &Stream[T]{sub: sub, project: project}
}

// Next blocks until the next projected value. Events the projection
// rejects are consumed and skipped.
func (s *Stream[T]) Next(ctx context.Context) (T, error) {
	for {
		ev, err := s.sub.Next(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		if v, ok := s.project(ev); ok {
			return v, nil
		}
	}
}

// Dropped returns how many events the underlying queue evicted.
func (s *Stream[T]) Dropped() uint64 { return s.sub.Dropped() }

// Done is closed once the stream is closed.
func (s *Stream[T]) Done() <-chan struct{} { return s.sub.Done() }

// Close detaches the stream from the bus.
func (s *Stream[T]) Close() { s.sub.Close() }

// visibleSnapshot yields the event snapshot if principal may see it.
func visibleSnapshot(principal *domain.Principal) func(ChangeEvent) (*domain.Bookmark, bool) {
	return func(ev ChangeEvent) (*domain.Bookmark, bool) {
		if !ev.HasSnapshot() || !domain.CanView(ev.Bookmark, principal) {
			return nil, false
		}
		return ev.Bookmark, true
	}
}

func recordID(ev ChangeEvent) (int64, bool) {
	return ev.BookmarkID, ev.Kind == KindDeleted
}

func kindPtr(k Kind) *Kind { return &k }

// Changed streams every event that carries a snapshot visible to principal.
// Deleted events carry none and are skipped.
func Changed(bus *Bus, principal *domain.Principal) *Stream[*domain.Bookmark] {
	return newStream(bus.Subscribe(nil), visibleSnapshot(principal))
}

// Created streams newly created records visible to principal.
func Created(bus *Bus, principal *domain.Principal) *Stream[*domain.Bookmark] {
	return newStream(bus.Subscribe(kindPtr(KindCreated)), visibleSnapshot(principal))
}

// Updated streams updated records visible to principal.
func Updated(bus *Bus, principal *domain.Principal) *Stream[*domain.Bookmark] {
	return newStream(bus.Subscribe(kindPtr(KindUpdated)), visibleSnapshot(principal))
}

// Deleted streams the ids of deleted records. Ids carry no content,
// so they are not filtered by visibility.
func Deleted(bus *Bus) *Stream[int64] {
	return newStream(bus.Subscribe(kindPtr(KindDeleted)), recordID)
}

// Open attaches to view and erases the element type, for transports
// that encode every view the same way.
func Open(bus *Bus, view View, principal *domain.Principal) (*Stream[any], error) {
	switch view {
	case ViewChanged:
		return erase(Changed(bus, principal)), nil
	case ViewCreated:
		return erase(Created(bus, principal)), nil
	case ViewUpdated:
		return erase(Updated(bus, principal)), nil
	case ViewDeleted:
		return erase(Deleted(bus)), nil
	default:
		return nil, fmt.Errorf("%w: unknown subscription view %q", domain.ErrValidation, view)
	}
}

func erase[T any](s *Stream[T]) *Stream[any] {
	return newStream(s.sub, func(ev ChangeEvent) (any, bool) {
		v, ok := s.project(ev)
		return v, ok
	})
}
