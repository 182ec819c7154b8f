package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/query"
)

// defaultTopRated is the rating floor of /top-rated without min_rating.
const defaultTopRated = 4

type listResponse struct {
	Bookmarks []*domain.Bookmark `json:"bookmarks"`
	Count     int                `json:"count"`
}

func writeList(w http.ResponseWriter, records []*domain.Bookmark) {
	if records == nil {
		records = []*domain.Bookmark{}
	}
	writeJSON(w, http.StatusOK, listResponse{Bookmarks: records, Count: len(records)})
}

// queryInt reads an optional integer query parameter.
func queryInt(q url.Values, name string) (*int, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", domain.ErrValidation, name)
	}
	return &n, nil
}

// queryBool reads an optional boolean query parameter.
func queryBool(q url.Values, name string) (*bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a boolean", domain.ErrValidation, name)
	}
	return &v, nil
}

// Search serves GET /api/bookmarks/search?q=&favorite=&min_rating=
func Search(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		favorite, err := queryBool(q, "favorite")
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		minRating, err := queryInt(q, "min_rating")
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		filter := query.Filter{
			Query:     strings.TrimSpace(q.Get("q")),
			Favorite:  favorite,
			MinRating: minRating,
		}
		d.Logger.Debug("search request", logger.String("query", filter.Query))

		records, err := d.Queries.Search(r.Context(), mw.PrincipalFrom(r.Context()), filter)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeList(w, records)
	}
}

func Favorites(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := d.Queries.Favorites(r.Context(), mw.PrincipalFrom(r.Context()))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeList(w, records)
	}
}

// TopRated serves GET /api/bookmarks/top-rated?min_rating=
func TopRated(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		minRating, err := queryInt(r.URL.Query(), "min_rating")
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		floor := defaultTopRated
		if minRating != nil {
			floor = *minRating
		}

		records, err := d.Queries.TopRated(r.Context(), mw.PrincipalFrom(r.Context()), floor)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeList(w, records)
	}
}

// MostVisited serves GET /api/bookmarks/most-visited?limit=
func MostVisited(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r.URL.Query(), "limit")
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		records, err := d.Queries.MostVisited(r.Context(), mw.PrincipalFrom(r.Context()), limit)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeList(w, records)
	}
}

// RecentlyVisited serves GET /api/bookmarks/recently-visited?limit=
func RecentlyVisited(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r.URL.Query(), "limit")
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		records, err := d.Queries.RecentlyVisited(r.Context(), mw.PrincipalFrom(r.Context()), limit)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeList(w, records)
	}
}
