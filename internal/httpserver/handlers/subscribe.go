package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/events"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

type deletedPayload struct {
	ID int64 `json:"id"`
}

// payload shapes a projected value for the wire: bookmarks as is,
// deleted ids as {"id": n}.
func payload(v any) any {
	if id, ok := v.(int64); ok {
		return deletedPayload{ID: id}
	}
	return v
}

// openStream resolves the {view} URL parameter and attaches to the bus.
func openStream(d deps.Deps, r *http.Request) (events.View, *events.Stream[any], error) {
	view, err := events.ParseView(chi.URLParam(r, "view"))
	if err != nil {
		return "", nil, err
	}
	stream, err := events.Open(d.Bus, view, mw.PrincipalFrom(r.Context()))
	if err != nil {
		return "", nil, err
	}
	return view, stream, nil
}

// pump moves projected values off the stream until ctx ends or the
// stream closes. The returned channel is closed when it stops.
func pump(ctx context.Context, stream *events.Stream[any]) <-chan any {
	out := make(chan any)
	go func() {
		defer close(out)
		for {
			v, err := stream.Next(ctx)
			if err != nil {
				return
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Subscribe streams one view as Server-Sent Events:
// GET /api/subscriptions/{view}
func Subscribe(d deps.Deps) http.HandlerFunc {
	keepAlive := d.SSEKeepAlive
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}

	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		view, stream, err := openStream(d, r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		defer stream.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

		log := d.Logger.With(logger.String("view", string(view)), logger.String("transport", "sse"))
		log.Debug("subscriber attached")
		defer func() {
			log.Debug("subscriber detached", logger.Uint64("dropped", stream.Dropped()))
		}()

		_, _ = fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		ctx := r.Context()
		values := pump(ctx, stream)

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case v, ok := <-values:
				if !ok {
					return
				}
				data, err := json.Marshal(payload(v))
				if err != nil {
					log.Error("failed to encode event", logger.Error(err))
					continue
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", view, data); err != nil {
					return
				}
				flusher.Flush()

			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
					return
				}
				flusher.Flush()

			case <-ctx.Done():
				return
			}
		}
	}
}
