// Package stats computes per-principal aggregates over the visible
// bookmarks and caches them until the next change event.
package stats

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/events"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/store"
	"github.com/MrSnakeDoc/shelf/internal/telemetry"
)

// scanBatch is the number of records read per store round trip.
const scanBatch = 500

type Statistics struct {
	TotalBookmarks int64    `json:"totalBookmarks"`
	TotalFavorites int64    `json:"totalFavorites"`
	TotalVisits    int64    `json:"totalVisits"`
	AverageRating  *float64 `json:"averageRating"`
}

type cached struct {
	stats      Statistics
	computedAt time.Time
}

type Service struct {
	fetcher store.Fetcher
	cache   *lru.Cache[string, cached]
	ttl     time.Duration
	now     func() time.Time
	log     logger.Logger

	// generation is bumped on every purge; a computation that raced
	// with a purge is not cached.
	generation atomic.Uint64
}

// NewService creates the statistics service. Entries older than ttl
// are recomputed even without a change event.
func NewService(fetcher store.Fetcher, size int, ttl time.Duration, log logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.NewNop()
	}
	cache, err := lru.New[string, cached](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats cache: %w", err)
	}
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		now:     time.Now,
		log:     log,
	}, nil
}

// Overall returns aggregates over the records principal can see.
func (s *Service) Overall(ctx context.Context, principal *domain.Principal) (Statistics, error) {
	key := principal.Key()
	if entry, ok := s.cache.Get(key); ok && (s.ttl <= 0 || s.now().Sub(entry.computedAt) < s.ttl) {
		telemetry.StatsCacheTotal.With("hit").Inc()
		return entry.stats, nil
	}
	telemetry.StatsCacheTotal.With("miss").Inc()

	gen := s.generation.Load()
	st, err := s.compute(ctx, principal)
	if err != nil {
		return Statistics{}, err
	}
	if s.generation.Load() == gen {
		s.cache.Add(key, cached{stats: st, computedAt: s.now()})
	}
	return st, nil
}

func (s *Service) compute(ctx context.Context, principal *domain.Principal) (Statistics, error) {
	var (
		st      Statistics
		rated   int64
		ratings int64
		after   int64
	)
	for {
		batch, err := s.fetcher.FetchOrderedAfter(ctx, after, scanBatch)
		if err != nil {
			return Statistics{}, fmt.Errorf("scan after %d: %w", after, err)
		}
		for _, b := range domain.FilterVisible(batch, principal) {
			st.TotalBookmarks++
			st.TotalVisits += b.VisitCount
			if b.Favorite {
				st.TotalFavorites++
			}
			if b.Rating != nil {
				rated++
				ratings += int64(*b.Rating)
			}
		}
		if len(batch) < scanBatch {
			break
		}
		after = batch[len(batch)-1].ID
	}
	if rated > 0 {
		avg := float64(ratings) / float64(rated)
		st.AverageRating = &avg
	}
	return st, nil
}

// Invalidate drops every cached entry.
func (s *Service) Invalidate() {
	s.generation.Add(1)
	s.cache.Purge()
}

// Run purges the cache on every change event until ctx is done or the
// bus is closed.
func (s *Service) Run(ctx context.Context, bus *events.Bus) {
	sub := bus.Subscribe(nil)
	defer sub.Close()

	s.log.Info("📊 stats invalidator started")
	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if !errors.Is(err, events.ErrClosed) && !errors.Is(err, context.Canceled) {
				s.log.Warn("stats invalidator stopped", logger.Error(err))
			}
			s.log.Info("📊 stats invalidator stopped")
			return
		}
		s.Invalidate()
		s.log.Debug("stats cache purged",
			logger.String("kind", ev.Kind.String()),
			logger.Int64("bookmark_id", ev.BookmarkID),
		)
	}
}
