// Package store declares the persistence contract the read path and the
// command layer depend on. Backends live in index (memory), store/redis
// and store/sqlite.
package store

import (
	"context"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// Fetcher returns up to limit records with ID strictly greater than afterID,
// ascending by ID.
type Fetcher interface {
	FetchOrderedAfter(ctx context.Context, afterID int64, limit int) ([]*domain.Bookmark, error)
}

// Store is the full persistence contract.
type Store interface {
	Fetcher

	// Get returns domain.ErrNotFound when no record has this id.
	Get(ctx context.Context, id int64) (*domain.Bookmark, error)

	// Create assigns the next id (never reused) and returns the stored record.
	Create(ctx context.Context, b *domain.Bookmark) (*domain.Bookmark, error)

	// Update replaces an existing record, domain.ErrNotFound if absent.
	Update(ctx context.Context, b *domain.Bookmark) error

	// Delete removes a record, domain.ErrNotFound if absent.
	Delete(ctx context.Context, id int64) error

	// Count returns the number of stored records, regardless of visibility.
	Count(ctx context.Context) (int64, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
