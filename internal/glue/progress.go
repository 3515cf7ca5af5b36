package glue

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// ProgressEvent is one step of a DeployAll/DestroyAll run, pushed to
// every connected TUI client.
type ProgressEvent struct {
	Layer    string `json:"layer"`
	Provider string `json:"provider"`
	State    string `json:"state"`
	Message  string `json:"message,omitempty"`
}

// ProgressHub fans a single deployment's events out to every
// connected websocket client. One hub per orchestrator run.
type ProgressHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
}

// NewProgressHub returns an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request to a websocket connection and keeps
// it registered until the client disconnects.
func (h *ProgressHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// The TUI never sends anything meaningful back; read only to
	// detect the close frame.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Publish broadcasts ev to every currently-connected client. A client
// whose write fails is dropped; a slow/dead TUI must never stall a
// deployment.
func (h *ProgressHub) Publish(ev ProgressEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
