// Package ws implements the WebSocket adapter that streams deliberation
// lifecycle events to connected observers.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// Message is the envelope for all observer-facing messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// observer is one connected dashboard or monitoring client. Observers are
// informational only; a slow or dead observer never holds up a session.
type observer struct {
	ws     *websocket.Conn
	remote string
	cancel context.CancelFunc
}

// Hub fans deliberation events out to every connected observer.
type Hub struct {
	mu        sync.RWMutex
	observers map[*observer]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		observers: make(map[*observer]struct{}),
	}
}

// HandleWS upgrades the request to a WebSocket and registers the observer
// until it disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	o := &observer{ws: ws, remote: r.RemoteAddr, cancel: cancel}

	h.mu.Lock()
	h.observers[o] = struct{}{}
	count := len(h.observers)
	h.mu.Unlock()

	slog.Info("observer connected", "remote", o.remote, "observers", count)

	// Read loop only detects disconnects; observers never send commands.
	go func() {
		defer func() {
			h.drop(o)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends a message to every connected observer. Write failures drop
// the observer rather than surfacing to the caller.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for o := range h.observers {
		if err := o.ws.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("observer write failed", "remote", o.remote, "error", err)
			go h.drop(o)
		}
	}
}

// ConnectionCount returns the number of connected observers.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

func (h *Hub) drop(o *observer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.observers[o]; ok {
		o.cancel()
		delete(h.observers, o)
		slog.Info("observer disconnected", "remote", o.remote)
	}
}
