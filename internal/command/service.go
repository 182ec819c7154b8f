// Package command is the write side. Every successful mutation is
// published on the change event bus once the store has accepted it.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/events"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/store"
	"github.com/MrSnakeDoc/shelf/internal/telemetry"
)

// Publisher receives committed changes.
type Publisher interface {
	Publish(events.ChangeEvent)
}

type Service struct {
	// mu serialises mutations so publish order matches commit order
	// and read-modify-write cycles do not interleave.
	mu sync.Mutex

	store store.Store
	bus   Publisher
	log   logger.Logger
	now   func() time.Time
}

func NewService(st store.Store, bus Publisher, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{store: st, bus: bus, log: log, now: time.Now}
}

// Create stores a new bookmark owned by principal.
func (s *Service) Create(ctx context.Context, principal *domain.Principal, in CreateInput) (*domain.Bookmark, error) {
	if principal == nil {
		s.record("create", domain.ErrForbidden)
		return nil, domain.ErrForbidden
	}
	owner := principal.ID
	return s.create(ctx, in, &owner)
}

// Import stores a bookmark with an explicit owner, nil meaning unowned.
// It is used by the startup seeder, which acts on behalf of no principal.
func (s *Service) Import(ctx context.Context, in CreateInput, owner *int64) (*domain.Bookmark, error) {
	return s.create(ctx, in, owner)
}

func (s *Service) create(ctx context.Context, in CreateInput, owner *int64) (*domain.Bookmark, error) {
	if err := in.validate(); err != nil {
		s.record("create", err)
		return nil, err
	}

	b := &domain.Bookmark{
		Title:       strings.TrimSpace(in.Title),
		URL:         strings.TrimSpace(in.URL),
		Description: in.Description,
		Public:      in.Public,
		OwnerID:     owner,
		Favorite:    in.Favorite,
		Rating:      in.Rating,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.store.Create(ctx, b)
	if err != nil {
		s.record("create", err)
		return nil, fmt.Errorf("create bookmark: %w", err)
	}

	s.bus.Publish(events.NewCreated(created))
	s.record("create", nil)
	s.log.Info("bookmark created", logger.Int64("id", created.ID), logger.String("url", created.URL))
	return created, nil
}

// Update applies a partial update. Only the owner may update an owned record.
func (s *Service) Update(ctx context.Context, principal *domain.Principal, id int64, in UpdateInput) (*domain.Bookmark, error) {
	if err := in.validate(); err != nil {
		s.record("update", err)
		return nil, err
	}
	return s.mutate(ctx, "update", principal, id, domain.CanModify, func(b *domain.Bookmark) {
		in.apply(b)
	})
}

// ToggleFavorite flips the favorite flag.
func (s *Service) ToggleFavorite(ctx context.Context, principal *domain.Principal, id int64) (*domain.Bookmark, error) {
	return s.mutate(ctx, "toggle_favorite", principal, id, domain.CanModify, func(b *domain.Bookmark) {
		b.Favorite = !b.Favorite
	})
}

// SetRating sets a 1..5 rating.
func (s *Service) SetRating(ctx context.Context, principal *domain.Principal, id int64, rating int) (*domain.Bookmark, error) {
	if err := ValidateRating(rating); err != nil {
		s.record("set_rating", err)
		return nil, err
	}
	return s.mutate(ctx, "set_rating", principal, id, domain.CanModify, func(b *domain.Bookmark) {
		b.Rating = &rating
	})
}

// RecordVisit bumps the visit counter. Anyone who can see the record may visit it.
func (s *Service) RecordVisit(ctx context.Context, principal *domain.Principal, id int64) (*domain.Bookmark, error) {
	return s.mutate(ctx, "record_visit", principal, id, domain.CanView, func(b *domain.Bookmark) {
		b.RecordVisit(s.now())
	})
}

// Delete removes a record. Only the owner may delete an owned record.
func (s *Service) Delete(ctx context.Context, principal *domain.Principal, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.authorize(ctx, principal, id, domain.CanModify); err != nil {
		s.record("delete", err)
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.record("delete", err)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete bookmark %d: %w", id, err)
	}

	s.bus.Publish(events.NewDeleted(id))
	s.record("delete", nil)
	s.log.Info("bookmark deleted", logger.Int64("id", id))
	return nil
}

// mutate loads the record, checks allowed, applies change, stores it and
// publishes an Updated event.
func (s *Service) mutate(
	ctx context.Context,
	op string,
	principal *domain.Principal,
	id int64,
	allowed func(*domain.Bookmark, *domain.Principal) bool,
	change func(*domain.Bookmark),
) (*domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.authorize(ctx, principal, id, allowed)
	if err != nil {
		s.record(op, err)
		return nil, err
	}

	change(b)
	if err := s.store.Update(ctx, b); err != nil {
		s.record(op, err)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s bookmark %d: %w", op, id, err)
	}

	// Re-read so the event carries store-assigned fields such as UpdatedAt.
	updated, err := s.store.Get(ctx, id)
	if err != nil {
		updated = b
	}

	s.bus.Publish(events.NewUpdated(updated))
	s.record(op, nil)
	s.log.Debug("bookmark updated", logger.String("op", op), logger.Int64("id", id))
	return updated, nil
}

// authorize returns the record if principal may act on it.
// Records the principal cannot see are reported as not found.
func (s *Service) authorize(
	ctx context.Context,
	principal *domain.Principal,
	id int64,
	allowed func(*domain.Bookmark, *domain.Principal) bool,
) (*domain.Bookmark, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load bookmark %d: %w", id, err)
	}
	if !domain.CanView(b, principal) {
		return nil, domain.ErrNotFound
	}
	if !allowed(b, principal) {
		return nil, domain.ErrForbidden
	}
	return b, nil
}

func (s *Service) record(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		result = "not_found"
	case errors.Is(err, domain.ErrForbidden):
		result = "forbidden"
	case errors.Is(err, domain.ErrValidation):
		result = "invalid"
	default:
		result = "error"
	}
	telemetry.MutationsTotal.With(op, result).Inc()
}
