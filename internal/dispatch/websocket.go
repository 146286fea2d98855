package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub broadcasts notification messages to web interface connections scoped
// by workspace. Connection registration happens in the web layer, which is
// outside this engine; the hub only needs the write side.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]*websocket.Conn
}

// NewHub creates an empty websocket hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string][]*websocket.Conn)}
}

// Register adds a connection to a workspace's broadcast set.
func (h *Hub) Register(workspaceID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[workspaceID] = append(h.conns[workspaceID], conn)
}

// Unregister removes a connection from a workspace's broadcast set.
func (h *Hub) Unregister(workspaceID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.conns[workspaceID]
	for i := range conns {
		if conns[i] == conn {
			h.conns[workspaceID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[workspaceID]) == 0 {
		delete(h.conns, workspaceID)
	}
}

// Send broadcasts the message as JSON to every connection of the message's
// workspace. Write failures evict the broken connection; having no
// listeners is a success, not an error.
func (h *Hub) Send(_ context.Context, _ map[string]any, message Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[message.WorkspaceID]
	if len(conns) == 0 {
		return nil
	}

	alive := conns[:0]
	var failed int
	for _, conn := range conns {
		if err := conn.WriteJSON(message); err != nil {
			conn.Close()
			failed++
			continue
		}
		alive = append(alive, conn)
	}
	h.conns[message.WorkspaceID] = alive

	if failed == len(conns) {
		return Retryable(fmt.Errorf("all %d web interface connections failed", failed))
	}
	return nil
}
