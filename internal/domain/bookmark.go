package domain

import "time"

// Bookmark is the canonical bookmark record as owned by the persistence layer.
//
// The read/notification core only ever reads it: pagination orders by ID,
// visibility looks at Public and OwnerID, and change events carry a copy.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is assigned by the store at creation.
	// It is strictly increasing and never reused, pagination relies on it.
	ID int64 `json:"id" msgpack:"id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	Title       string `json:"title" msgpack:"title"`
	URL         string `json:"url" msgpack:"url"`
	Description string `json:"description,omitempty" msgpack:"description,omitempty"`

	// ─────────────────────────────
	// Ownership & visibility
	// ─────────────────────────────

	// Public records are visible to everyone, private ones only to OwnerID.
	Public bool `json:"public" msgpack:"public"`

	// OwnerID is nil for legacy/unowned records.
	OwnerID *int64 `json:"owner_id,omitempty" msgpack:"owner_id,omitempty"`

	// ─────────────────────────────
	// Favorites, rating & visits
	// ─────────────────────────────

	Favorite      bool       `json:"favorite" msgpack:"favorite"`
	Rating        *int       `json:"rating,omitempty" msgpack:"rating,omitempty"` // 1-5
	VisitCount    int64      `json:"visit_count" msgpack:"visit_count"`
	LastVisitedAt *time.Time `json:"last_visited_at,omitempty" msgpack:"last_visited_at,omitempty"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `json:"updated_at" msgpack:"updated_at"`
}

// Clone returns a deep copy, so that snapshots handed to subscribers
// are not mutated by later writes.
func (b *Bookmark) Clone() *Bookmark {
	if b == nil {
		return nil
	}
	c := *b
	if b.OwnerID != nil {
		owner := *b.OwnerID
		c.OwnerID = &owner
	}
	if b.Rating != nil {
		rating := *b.Rating
		c.Rating = &rating
	}
	if b.LastVisitedAt != nil {
		at := *b.LastVisitedAt
		c.LastVisitedAt = &at
	}
	return &c
}

// OwnedBy reports whether the record has an owner equal to userID.
func (b *Bookmark) OwnedBy(userID int64) bool {
	return b.OwnerID != nil && *b.OwnerID == userID
}

// RecordVisit bumps the visit counter.
func (b *Bookmark) RecordVisit(now time.Time) {
	b.VisitCount++
	b.LastVisitedAt = &now
}
