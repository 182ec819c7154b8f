package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
)

// searchRoutes mounts the list views under /api/bookmarks. Static
// segments win over /{id} in chi, so they can share the prefix.
func searchRoutes(r chi.Router, d deps.Deps) {
	r.Get("/search", handlers.Search(d))
	r.Get("/favorites", handlers.Favorites(d))
	r.Get("/top-rated", handlers.TopRated(d))
	r.Get("/most-visited", handlers.MostVisited(d))
	r.Get("/recently-visited", handlers.RecentlyVisited(d))
}
