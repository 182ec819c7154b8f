// Package events fans committed bookmark mutations out to in-process
// subscribers and projects them into the views clients attach to.
package events

import (
	"fmt"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// Kind is the type of mutation a ChangeEvent reports.
type Kind int

const (
	KindCreated Kind = iota + 1
	KindUpdated
	KindDeleted
)

func (k Kind) String() string {
	switch k {
	case KindCreated:
		return "created"
	case KindUpdated:
		return "updated"
	case KindDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ChangeEvent is published once per committed mutation.
//
// Bookmark is a snapshot taken at publish time and is nil for Deleted.
// Subscribers share it and must treat it as read-only.
type ChangeEvent struct {
	Kind       Kind
	Bookmark   *domain.Bookmark
	BookmarkID int64
}

// NewCreated builds a Created event carrying a copy of b.
func NewCreated(b *domain.Bookmark) ChangeEvent {
	return ChangeEvent{Kind: KindCreated, Bookmark: b.Clone(), BookmarkID: b.ID}
}

// NewUpdated builds an Updated event carrying a copy of b.
func NewUpdated(b *domain.Bookmark) ChangeEvent {
	return ChangeEvent{Kind: KindUpdated, Bookmark: b.Clone(), BookmarkID: b.ID}
}

// NewDeleted builds a Deleted event for id.
func NewDeleted(id int64) ChangeEvent {
	return ChangeEvent{Kind: KindDeleted, BookmarkID: id}
}

// HasSnapshot reports whether the event carries a record.
func (e ChangeEvent) HasSnapshot() bool {
	return e.Bookmark != nil
}
