package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
)

func init() { Register(registerSubscriptions) }

// Streams stay open for as long as the client listens: no timeout here.
func registerSubscriptions(r chi.Router, d deps.Deps) {
	r.Route("/api/subscriptions/{view}", func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))
		r.Get("/", handlers.Subscribe(d))
		r.Get("/ws", handlers.SubscribeWS(d))
	})
}
