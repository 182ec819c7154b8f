// Package query serves the read side: cursor pagination and single lookups,
// both filtered by visibility.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/cursor"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/store"
	"github.com/MrSnakeDoc/shelf/internal/telemetry"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Reader is the part of the store the read side needs.
type Reader interface {
	store.Fetcher
	Get(ctx context.Context, id int64) (*domain.Bookmark, error)
	Count(ctx context.Context) (int64, error)
}

type Service struct {
	reader Reader
	log    logger.Logger
}

func NewService(reader Reader, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{reader: reader, log: log}
}

// PageSize resolves the requested page size.
// Absent or non-positive values use the default, larger ones are capped.
func PageSize(first *int) int {
	if first == nil || *first < 1 {
		return DefaultPageSize
	}
	if *first > MaxPageSize {
		return MaxPageSize
	}
	return *first
}

// Page returns up to first records after the after cursor, ascending by id,
// visible to principal.
//
// One extra record is fetched to detect a next page, then the window is
// filtered. Private records in the window can leave the page short; it is
// returned as is.
func (s *Service) Page(ctx context.Context, principal *domain.Principal, first *int, after *string) (*Connection, error) {
	start := time.Now()
	defer func() { telemetry.PageDurationSeconds.Observe(time.Since(start).Seconds()) }()

	size := PageSize(first)

	var floor int64
	if after != nil {
		id, err := cursor.Decode(*after)
		if err != nil {
			telemetry.PageRequestsTotal.With("invalid_cursor").Inc()
			return nil, err
		}
		floor = id
	}

	window, err := s.reader.FetchOrderedAfter(ctx, floor, size+1)
	if err != nil {
		telemetry.PageRequestsTotal.With("error").Inc()
		return nil, fmt.Errorf("fetch after %d: %w", floor, err)
	}

	visible := domain.FilterVisible(window, principal)
	hasNext := len(visible) > size
	if hasNext {
		visible = visible[:size]
	}

	total, err := s.reader.Count(ctx)
	if err != nil {
		telemetry.PageRequestsTotal.With("error").Inc()
		return nil, fmt.Errorf("count: %w", err)
	}

	conn := &Connection{
		Edges: make([]Edge, 0, len(visible)),
		PageInfo: PageInfo{
			HasNextPage:     hasNext,
			HasPreviousPage: after != nil,
		},
		TotalCount: total,
	}
	for _, b := range visible {
		conn.Edges = append(conn.Edges, Edge{Node: b, Cursor: cursor.Encode(b.ID)})
	}
	if n := len(conn.Edges); n > 0 {
		startCursor := conn.Edges[0].Cursor
		endCursor := conn.Edges[n-1].Cursor
		conn.PageInfo.StartCursor = &startCursor
		conn.PageInfo.EndCursor = &endCursor
	}

	telemetry.PageRequestsTotal.With("ok").Inc()
	s.log.Debug("page served",
		logger.String("principal", principal.Key()),
		logger.Int64("after", floor),
		logger.Int("size", size),
		logger.Int("edges", len(conn.Edges)),
		logger.Bool("has_next", hasNext),
	)
	return conn, nil
}

// Get returns a single record. Private records the principal does not own
// are reported as domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, principal *domain.Principal, id int64) (*domain.Bookmark, error) {
	b, err := s.reader.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get %d: %w", id, err)
	}
	if !domain.CanView(b, principal) {
		return nil, domain.ErrNotFound
	}
	return b, nil
}
