package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
)

const defaultRequestTimeout = 5 * time.Second

func init() { Register(registerBookmarks) }

func requestTimeout(d deps.Deps) time.Duration {
	if d.RequestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return d.RequestTimeout
}

func registerBookmarks(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:         d.RateBurst,
		RefillPerMin:  d.RatePerMinute,
		MaxEntries:    10_000,
		SweepInterval: time.Minute,
		IdleTTL:       15 * time.Minute,
		TrustProxy:    d.TrustProxy,
	})

	r.Route("/api/bookmarks", func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))
		r.Use(middleware.Timeout(requestTimeout(d)))

		r.Get("/", handlers.ListBookmarks(d))
		r.With(limit).Post("/", handlers.CreateBookmark(d))
		searchRoutes(r, d)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handlers.GetBookmark(d))

			r.Group(func(r chi.Router) {
				r.Use(limit)
				r.Patch("/", handlers.UpdateBookmark(d))
				r.Delete("/", handlers.DeleteBookmark(d))
				r.Post("/favorite", handlers.ToggleFavorite(d))
				r.Put("/rating", handlers.SetRating(d))
				r.Post("/visit", handlers.RecordVisit(d))
			})
		})
	})
}
