package index

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// MemoryIndex is the in-process bookmark store.
// It keeps ids sorted so ordered fetches are a binary search plus a slice.
type MemoryIndex struct {
	mu        sync.RWMutex
	bookmarks map[int64]*domain.Bookmark // ID -> Bookmark
	ids       []int64                    // ascending, mirrors bookmarks keys
	lastID    int64                      // last assigned id, never decreases
	now       func() time.Time
}

// NewMemoryIndex creates a new memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		bookmarks: make(map[int64]*domain.Bookmark),
		now:       time.Now,
	}
}

// FetchOrderedAfter returns up to limit bookmarks with ID > afterID, ascending.
func (idx *MemoryIndex) FetchOrderedAfter(_ context.Context, afterID int64, limit int) ([]*domain.Bookmark, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if limit <= 0 {
		return []*domain.Bookmark{}, nil
	}

	start := sort.Search(len(idx.ids), func(i int) bool { return idx.ids[i] > afterID })
	end := start + limit
	if end > len(idx.ids) {
		end = len(idx.ids)
	}

	out := make([]*domain.Bookmark, 0, end-start)
	for _, id := range idx.ids[start:end] {
		out = append(out, idx.bookmarks[id].Clone())
	}
	return out, nil
}

// Get retrieves a bookmark by ID
func (idx *MemoryIndex) Get(_ context.Context, id int64) (*domain.Bookmark, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	b, ok := idx.bookmarks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b.Clone(), nil
}

// Create stores a new bookmark under the next id
func (idx *MemoryIndex) Create(_ context.Context, b *domain.Bookmark) (*domain.Bookmark, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.lastID++
	stored := b.Clone()
	stored.ID = idx.lastID
	now := idx.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	idx.bookmarks[stored.ID] = stored
	// ids are handed out in increasing order, so appending keeps the slice sorted
	idx.ids = append(idx.ids, stored.ID)

	return stored.Clone(), nil
}

// Update replaces an existing bookmark
func (idx *MemoryIndex) Update(_ context.Context, b *domain.Bookmark) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	existing, ok := idx.bookmarks[b.ID]
	if !ok {
		return domain.ErrNotFound
	}

	stored := b.Clone()
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = idx.now()
	idx.bookmarks[b.ID] = stored
	b.UpdatedAt = stored.UpdatedAt
	return nil
}

// Delete removes a bookmark from the index
func (idx *MemoryIndex) Delete(_ context.Context, id int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.bookmarks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(idx.bookmarks, id)

	i := sort.Search(len(idx.ids), func(i int) bool { return idx.ids[i] >= id })
	idx.ids = append(idx.ids[:i], idx.ids[i+1:]...)
	return nil
}

// Count returns the number of bookmarks in the index
func (idx *MemoryIndex) Count(_ context.Context) (int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return int64(len(idx.bookmarks)), nil
}

// Ping always succeeds for the memory index.
func (idx *MemoryIndex) Ping(_ context.Context) error { return nil }
