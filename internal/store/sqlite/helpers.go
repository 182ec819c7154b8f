package sqlite

import (
	"database/sql"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// Times are stored as unix nanoseconds in UTC.

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func int64PtrToNull(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func intPtrToNull(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func timePtrToNull(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}

// bookmarkRow holds all columns from a bookmark query for scanning.
// Field order MUST match columns.
type bookmarkRow struct {
	ID            int64
	Title         string
	URL           string
	Description   string
	Public        bool
	OwnerID       sql.NullInt64
	Favorite      bool
	Rating        sql.NullInt64
	VisitCount    int64
	LastVisitedAt sql.NullInt64
	CreatedAt     int64
	UpdatedAt     int64
}

var columns = []any{
	"id", "title", "url", "description", "public", "owner_id",
	"favorite", "rating", "visit_count", "last_visited_at", "created_at", "updated_at",
}

func (r *bookmarkRow) scanArgs() []any {
	return []any{
		&r.ID, &r.Title, &r.URL, &r.Description, &r.Public, &r.OwnerID,
		&r.Favorite, &r.Rating, &r.VisitCount, &r.LastVisitedAt, &r.CreatedAt, &r.UpdatedAt,
	}
}

func (r *bookmarkRow) toDomain() *domain.Bookmark {
	b := &domain.Bookmark{
		ID:          r.ID,
		Title:       r.Title,
		URL:         r.URL,
		Description: r.Description,
		Public:      r.Public,
		Favorite:    r.Favorite,
		VisitCount:  r.VisitCount,
		CreatedAt:   fromNanos(r.CreatedAt),
		UpdatedAt:   fromNanos(r.UpdatedAt),
	}
	if r.OwnerID.Valid {
		owner := r.OwnerID.Int64
		b.OwnerID = &owner
	}
	if r.Rating.Valid {
		rating := int(r.Rating.Int64)
		b.Rating = &rating
	}
	if r.LastVisitedAt.Valid {
		at := fromNanos(r.LastVisitedAt.Int64)
		b.LastVisitedAt = &at
	}
	return b
}
