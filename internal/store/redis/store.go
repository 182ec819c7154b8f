// Package redis is the Redis-backed bookmark store.
//
// Records are msgpack blobs under shelf:bookmark:<id>. A sorted set scored
// by id gives ordered, resumable scans, and INCR on a sequence key hands
// out ids that are never reused, even after deletes.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// Store handles Redis operations for bookmarks
type Store struct {
	client *redis.Client
	now    func() time.Time
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		now:    time.Now,
	}
}

func encode(b *domain.Bookmark) ([]byte, error) {
	data, err := msgpack.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bookmark %d: %w", b.ID, err)
	}
	return data, nil
}

func decode(data []byte) (*domain.Bookmark, error) {
	var b domain.Bookmark
	if err := msgpack.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookmark: %w", err)
	}
	return &b, nil
}

// FetchOrderedAfter returns up to limit bookmarks with ID > afterID, ascending.
func (s *Store) FetchOrderedAfter(ctx context.Context, afterID int64, limit int) ([]*domain.Bookmark, error) {
	return fillAfter(afterID, limit, func(after int64, n int) ([]int64, []*domain.Bookmark, error) {
		return s.window(ctx, after, n)
	})
}

// windowFunc ranges over up to n ids after after. It returns the ids it
// saw and, aligned with them, the records still present (nil for a record
// deleted between ZRANGE and MGET).
type windowFunc func(after int64, n int) ([]int64, []*domain.Bookmark, error)

// fillAfter keeps reading windows until limit records are collected or
// the id range is exhausted, so concurrent deletes never shorten a page.
func fillAfter(afterID int64, limit int, window windowFunc) ([]*domain.Bookmark, error) {
	out := make([]*domain.Bookmark, 0, max(limit, 0))
	for len(out) < limit {
		want := limit - len(out)
		ids, records, err := window(afterID, want)
		if err != nil {
			return nil, err
		}
		for _, b := range records {
			if b != nil {
				out = append(out, b)
			}
		}
		if len(ids) < want {
			break
		}
		afterID = ids[len(ids)-1]
	}
	return out, nil
}

func (s *Store) window(ctx context.Context, afterID int64, n int) ([]int64, []*domain.Bookmark, error) {
	members, err := s.client.ZRangeArgs(ctx, redis.ZRangeArgs{
		Key:     KeyBookmarkIDs,
		Start:   scoreAfter(afterID),
		Stop:    "+inf",
		ByScore: true,
		Count:   int64(n),
	}).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to range bookmark ids: %w", err)
	}
	if len(members) == 0 {
		return nil, nil, nil
	}

	ids := make([]int64, len(members))
	keys := make([]string, len(members))
	for i, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid member %q in %s: %w", m, KeyBookmarkIDs, err)
		}
		ids[i] = id
		keys[i] = BookmarkKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}

	records := make([]*domain.Bookmark, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		b, err := decode([]byte(raw))
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", keys[i], err)
		}
		records[i] = b
	}
	return ids, records, nil
}

// Get retrieves a bookmark from Redis by ID
func (s *Store) Get(ctx context.Context, id int64) (*domain.Bookmark, error) {
	data, err := s.client.Get(ctx, BookmarkKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}
	return decode(data)
}

// Create stores a bookmark under the next sequence id
func (s *Store) Create(ctx context.Context, b *domain.Bookmark) (*domain.Bookmark, error) {
	id, err := s.client.Incr(ctx, KeyBookmarkSeq).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate bookmark id: %w", err)
	}

	stored := b.Clone()
	stored.ID = id
	now := s.now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	data, err := encode(stored)
	if err != nil {
		return nil, err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, BookmarkKey(id), data, 0)
		pipe.ZAdd(ctx, KeyBookmarkIDs, redis.Z{Score: float64(id), Member: id})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save bookmark: %w", err)
	}
	return stored, nil
}

// Update replaces an existing bookmark, keeping its creation time
func (s *Store) Update(ctx context.Context, b *domain.Bookmark) error {
	current, err := s.Get(ctx, b.ID)
	if err != nil {
		return err
	}

	stored := b.Clone()
	stored.CreatedAt = current.CreatedAt
	stored.UpdatedAt = s.now().UTC()

	data, err := encode(stored)
	if err != nil {
		return err
	}

	ok, err := s.client.SetXX(ctx, BookmarkKey(b.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to update bookmark: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a bookmark from Redis
func (s *Store) Delete(ctx context.Context, id int64) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, BookmarkKey(id))
		pipe.ZRem(ctx, KeyBookmarkIDs, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	if del.Val() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the number of stored bookmarks
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, KeyBookmarkIDs).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	return n, nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
