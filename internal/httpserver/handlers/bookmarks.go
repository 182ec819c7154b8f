package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/shelf/internal/command"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
)

type ratingRequest struct {
	Rating *int `json:"rating"`
}

// ListBookmarks serves one page: GET /api/bookmarks?first=&after=
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		first, err := queryInt(q, "first")
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		var after *string
		if q.Has("after") {
			a := q.Get("after")
			after = &a
		}

		conn, err := d.Queries.Page(r.Context(), mw.PrincipalFrom(r.Context()), first, after)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, conn)
	}
}

func GetBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		b, err := d.Queries.Get(r.Context(), mw.PrincipalFrom(r.Context()), id)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in command.CreateInput
		if err := decodeBody(w, r, &in); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		b, err := d.Commands.Create(r.Context(), mw.PrincipalFrom(r.Context()), in)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.Header().Set("Location", "/api/bookmarks/"+strconv.FormatInt(b.ID, 10))
		writeJSON(w, http.StatusCreated, b)
	}
}

func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		var in command.UpdateInput
		if err := decodeBody(w, r, &in); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		b, err := d.Commands.Update(r.Context(), mw.PrincipalFrom(r.Context()), id, in)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		if err := d.Commands.Delete(r.Context(), mw.PrincipalFrom(r.Context()), id); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ToggleFavorite(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		b, err := d.Commands.ToggleFavorite(r.Context(), mw.PrincipalFrom(r.Context()), id)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func SetRating(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		var req ratingRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		if req.Rating == nil {
			writeError(w, r, d.Logger, fmt.Errorf("%w: rating is required", domain.ErrValidation))
			return
		}
		b, err := d.Commands.SetRating(r.Context(), mw.PrincipalFrom(r.Context()), id, *req.Rating)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func RecordVisit(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		b, err := d.Commands.RecordVisit(r.Context(), mw.PrincipalFrom(r.Context()), id)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}
