package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

const wsWriteWait = 5 * time.Second

type wsMessage struct {
	View string `json:"view"`
	Data any    `json:"data"`
}

// SubscribeWS streams one view over a WebSocket:
// GET /api/subscriptions/{view}/ws
//
// Clients only listen; anything they send is discarded. The connection
// ends when the client goes away or stops answering pings.
func SubscribeWS(d deps.Deps) http.HandlerFunc {
	pingEvery := d.SSEKeepAlive
	if pingEvery <= 0 {
		pingEvery = 30 * time.Second
	}
	pongWait := 2 * pingEvery

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	// Without configured origins gorilla keeps its same-host check.
	if len(d.CORSOrigins) > 0 {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return mw.OriginAllowed(d.CORSOrigins, r.Header.Get("Origin"))
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		view, stream, err := openStream(d, r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		defer stream.Close()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the error response.
			d.Logger.Debug("websocket upgrade failed", logger.Error(err))
			return
		}
		defer conn.Close()

		log := d.Logger.With(logger.String("view", string(view)), logger.String("transport", "websocket"))
		log.Debug("subscriber attached")
		defer func() {
			log.Debug("subscriber detached", logger.Uint64("dropped", stream.Dropped()))
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		values := pump(ctx, stream)
		ticker := time.NewTicker(pingEvery)
		defer ticker.Stop()

		for {
			select {
			case v, ok := <-values:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(wsMessage{View: string(view), Data: payload(v)}); err != nil {
					return
				}

			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}

			case <-ctx.Done():
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second),
				)
				return
			}
		}
	}
}
