package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/ayusman/airdraw/internal/session"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventsHandler pushes a FrameState message to each WebSocket client for
// every frame it manages to keep up with.
type EventsHandler struct {
	slot    *session.Slot
	logger  *log.Logger
	clients atomic.Int64
}

// NewEventsHandler creates a new EventsHandler reading from slot.
func NewEventsHandler(slot *session.Slot, logger *log.Logger) *EventsHandler {
	return &EventsHandler{slot: slot, logger: logger}
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int64 {
	return h.clients.Load()
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", "err", err)
		return
	}
	defer conn.Close()

	h.clients.Add(1)
	defer h.clients.Add(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only detect the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var seq uint64
	for {
		frame, err := h.slot.Next(ctx, seq)
		if err != nil {
			return
		}
		seq = frame.Seq

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			h.logger.Debug("websocket client dropped", "err", err)
			return
		}
	}
}
