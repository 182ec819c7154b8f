// Package sqlite is the SQLite-backed bookmark store.
//
// The table uses AUTOINCREMENT so SQLite never hands out an id twice,
// even after the highest row is deleted.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "modernc.org/sqlite"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

const table = "bookmarks"

const schema = `
CREATE TABLE IF NOT EXISTS bookmarks (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	title           TEXT    NOT NULL,
	url             TEXT    NOT NULL,
	description     TEXT    NOT NULL DEFAULT '',
	public          INTEGER NOT NULL DEFAULT 0,
	owner_id        INTEGER,
	favorite        INTEGER NOT NULL DEFAULT 0,
	rating          INTEGER CHECK (rating BETWEEN 1 AND 5),
	visit_count     INTEGER NOT NULL DEFAULT 0,
	last_visited_at INTEGER,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bookmarks_owner ON bookmarks(owner_id);
`

// Store implements store.Store using SQLite
type Store struct {
	db      *sql.DB
	dialect goqu.DialectWrapper
	now     func() time.Time
}

// Open opens (and migrates) the database at path. ":memory:" is accepted
// and pinned to a single connection so every query sees the same database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" && !strings.Contains(path, "?") {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &Store{
		db:      db,
		dialect: goqu.Dialect("sqlite3"),
		now:     time.Now,
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) record(b *domain.Bookmark) goqu.Record {
	return goqu.Record{
		"title":           b.Title,
		"url":             b.URL,
		"description":     b.Description,
		"public":          b.Public,
		"owner_id":        int64PtrToNull(b.OwnerID),
		"favorite":        b.Favorite,
		"rating":          intPtrToNull(b.Rating),
		"visit_count":     b.VisitCount,
		"last_visited_at": timePtrToNull(b.LastVisitedAt),
	}
}

// FetchOrderedAfter returns up to limit bookmarks with ID > afterID, ascending.
func (s *Store) FetchOrderedAfter(ctx context.Context, afterID int64, limit int) ([]*domain.Bookmark, error) {
	if limit <= 0 {
		return []*domain.Bookmark{}, nil
	}

	query, args, err := s.dialect.From(table).
		Select(columns...).
		Where(goqu.C("id").Gt(afterID)).
		Order(goqu.C("id").Asc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bookmarks := make([]*domain.Bookmark, 0, limit)
	for rows.Next() {
		var r bookmarkRow
		if err := rows.Scan(r.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, r.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookmarks: %w", err)
	}
	return bookmarks, nil
}

// Get retrieves a bookmark by ID
func (s *Store) Get(ctx context.Context, id int64) (*domain.Bookmark, error) {
	query, args, err := s.dialect.From(table).
		Select(columns...).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var r bookmarkRow
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(r.scanArgs()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bookmark %d: %w", id, err)
	}
	return r.toDomain(), nil
}

// Create inserts a bookmark and returns it with its assigned id
func (s *Store) Create(ctx context.Context, b *domain.Bookmark) (*domain.Bookmark, error) {
	now := s.now().UTC()
	rec := s.record(b)
	rec["created_at"] = toNanos(now)
	rec["updated_at"] = toNanos(now)

	query, args, err := s.dialect.Insert(table).Rows(rec).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert bookmark: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read bookmark id: %w", err)
	}

	stored := b.Clone()
	stored.ID = id
	stored.CreatedAt = fromNanos(toNanos(now))
	stored.UpdatedAt = stored.CreatedAt
	return stored, nil
}

// Update replaces every mutable column of an existing bookmark
func (s *Store) Update(ctx context.Context, b *domain.Bookmark) error {
	rec := s.record(b)
	rec["updated_at"] = toNanos(s.now())

	query, args, err := s.dialect.Update(table).
		Set(rec).
		Where(goqu.C("id").Eq(b.ID)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}
	return s.execOne(ctx, query, args, "update")
}

// Delete removes a bookmark
func (s *Store) Delete(ctx context.Context, id int64) error {
	query, args, err := s.dialect.Delete(table).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	return s.execOne(ctx, query, args, "delete")
}

// execOne runs a statement expected to touch exactly one row.
func (s *Store) execOne(ctx context.Context, query string, args []any, op string) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s bookmark: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s bookmark: %w", op, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the number of stored bookmarks
func (s *Store) Count(ctx context.Context) (int64, error) {
	query, args, err := s.dialect.From(table).
		Select(goqu.COUNT(goqu.Star())).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build count: %w", err)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	return n, nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
