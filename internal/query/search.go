package query

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

const (
	// DefaultTopN is the size of the most/recently visited lists when
	// the caller does not ask for one.
	DefaultTopN = 10

	scanBatch = 500
)

// Filter narrows Search. Zero values match everything.
type Filter struct {
	// Query matches titles case-insensitively as a substring.
	Query     string
	Favorite  *bool
	MinRating *int
}

func (f Filter) match(b *domain.Bookmark) bool {
	if f.Query != "" && !strings.Contains(strings.ToLower(b.Title), strings.ToLower(f.Query)) {
		return false
	}
	if f.Favorite != nil && b.Favorite != *f.Favorite {
		return false
	}
	if f.MinRating != nil && (b.Rating == nil || *b.Rating < *f.MinRating) {
		return false
	}
	return true
}

func validMinRating(r *int) error {
	if r != nil && (*r < 1 || *r > 5) {
		return domain.ErrInvalidRating
	}
	return nil
}

// TopN resolves a requested list size the same way PageSize does,
// with DefaultTopN as the default.
func TopN(limit *int) int {
	if limit == nil || *limit < 1 {
		return DefaultTopN
	}
	return min(*limit, MaxPageSize)
}

// scan walks the whole store in id order and keeps the records principal
// can see that keep accepts.
func (s *Service) scan(ctx context.Context, principal *domain.Principal, keep func(*domain.Bookmark) bool) ([]*domain.Bookmark, error) {
	var (
		out   []*domain.Bookmark
		after int64
	)
	for {
		batch, err := s.reader.FetchOrderedAfter(ctx, after, scanBatch)
		if err != nil {
			return nil, fmt.Errorf("scan after %d: %w", after, err)
		}
		for _, b := range domain.FilterVisible(batch, principal) {
			if keep(b) {
				out = append(out, b)
			}
		}
		if len(batch) < scanBatch {
			return out, nil
		}
		after = batch[len(batch)-1].ID
	}
}

// Search returns the visible records matching f, ascending by id.
func (s *Service) Search(ctx context.Context, principal *domain.Principal, f Filter) ([]*domain.Bookmark, error) {
	if err := validMinRating(f.MinRating); err != nil {
		return nil, err
	}
	out, err := s.scan(ctx, principal, f.match)
	if err != nil {
		return nil, err
	}
	s.log.Debug("search served",
		logger.String("principal", principal.Key()),
		logger.String("query", f.Query),
		logger.Int("hits", len(out)),
	)
	return out, nil
}

// Favorites returns the visible favorite records, ascending by id.
func (s *Service) Favorites(ctx context.Context, principal *domain.Principal) ([]*domain.Bookmark, error) {
	fav := true
	return s.Search(ctx, principal, Filter{Favorite: &fav})
}

// TopRated returns the visible records rated at least minRating,
// best first. Ties keep id order.
func (s *Service) TopRated(ctx context.Context, principal *domain.Principal, minRating int) ([]*domain.Bookmark, error) {
	out, err := s.Search(ctx, principal, Filter{MinRating: &minRating})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b *domain.Bookmark) int {
		return cmp.Compare(*b.Rating, *a.Rating)
	})
	return out, nil
}

// MostVisited returns up to limit visible records by descending visit
// count. Ties keep id order.
func (s *Service) MostVisited(ctx context.Context, principal *domain.Principal, limit *int) ([]*domain.Bookmark, error) {
	out, err := s.scan(ctx, principal, func(*domain.Bookmark) bool { return true })
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b *domain.Bookmark) int {
		return cmp.Compare(b.VisitCount, a.VisitCount)
	})
	return truncate(out, TopN(limit)), nil
}

// RecentlyVisited returns up to limit visible records that were visited
// at least once, most recent visit first.
func (s *Service) RecentlyVisited(ctx context.Context, principal *domain.Principal, limit *int) ([]*domain.Bookmark, error) {
	out, err := s.scan(ctx, principal, func(b *domain.Bookmark) bool { return b.LastVisitedAt != nil })
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b *domain.Bookmark) int {
		return b.LastVisitedAt.Compare(*a.LastVisitedAt)
	})
	return truncate(out, TopN(limit)), nil
}

func truncate(records []*domain.Bookmark, n int) []*domain.Bookmark {
	if len(records) > n {
		return records[:n]
	}
	return records
}
