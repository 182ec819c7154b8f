package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

const readyzPingTimeout = 2 * time.Second

type componentStatus struct {
	OK          bool   `json:"ok"`
	Backend     string `json:"backend,omitempty"`
	Records     *int64 `json:"records,omitempty"`
	Subscribers *int   `json:"subscribers,omitempty"`
	Error       string `json:"error,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz reports 200 when the store answers, 503 otherwise.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := checkStore(r.Context(), d)

		bus := componentStatus{OK: d.Bus != nil}
		if d.Bus != nil {
			n := d.Bus.SubscriberCount()
			bus.Subscribers = &n
		}

		resp := readyzResponse{
			Ready: store.OK && bus.OK,
			Components: map[string]componentStatus{
				"store": store,
				"bus":   bus,
			},
		}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

func checkStore(parent context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{OK: false, Backend: d.StoreKind, Error: "store not initialized"}
	}

	ctx, cancel := context.WithTimeout(parent, readyzPingTimeout)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		d.Logger.Warn("readiness ping failed", logger.String("store", d.StoreKind), logger.Error(err))
		return componentStatus{OK: false, Backend: d.StoreKind, Error: "unreachable"}
	}

	st := componentStatus{OK: true, Backend: d.StoreKind}
	if n, err := d.Store.Count(ctx); err == nil {
		st.Records = &n
	}
	return st
}
