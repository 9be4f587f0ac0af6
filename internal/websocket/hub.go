package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"discovery-client/internal/pkg/logger"
	"discovery-client/pkg/store"
)

// SnapshotSource is what the hub streams from.
type SnapshotSource interface {
	Snapshot(ctx context.Context, sessionID string) (store.Snapshot, error)
	Subscribe(sessionID string, listener func(store.Snapshot)) (func(), error)
}

type Hub struct {
	// Registered clients map: SessionID -> clients watching it
	clients map[string][]*Client

	// One source subscription per watched session
	unsubscribe map[string]func()

	register   chan *Client
	unregister chan *Client

	// Sessions that sent their closing snapshot
	closed chan string

	// Closed when Run returns
	done chan struct{}

	mu sync.RWMutex

	source SnapshotSource
	logger logger.ILogger
}

func NewHub(source SnapshotSource, log logger.ILogger) *Hub {
	return &Hub{
		clients:     make(map[string][]*Client),
		unsubscribe: make(map[string]func()),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		closed:      make(chan string),
		done:        make(chan struct{}),
		source:      source,
		logger:      log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.add(ctx, client)

		case client := <-h.unregister:
			h.remove(client)

		case sessionID := <-h.closed:
			h.dropSession(sessionID)
		}
	}
}

// Clients returns how many connections watch sessionID.
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) add(ctx context.Context, client *Client) {
	id := client.SessionID

	h.mu.Lock()
	first := len(h.clients[id]) == 0
	h.clients[id] = append(h.clients[id], client)
	h.mu.Unlock()

	h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": id})

	if first {
		unsubscribe, err := h.source.Subscribe(id, func(snap store.Snapshot) {
			h.Send(id, snap)
		})
		if err != nil {
			h.logger.Warn("Hub", "Cannot watch session", map[string]interface{}{"session_id": id, "error": err.Error()})
			h.dropSession(id)
			return
		}
		h.mu.Lock()
		h.unsubscribe[id] = unsubscribe
		h.mu.Unlock()
	}

	snap, err := h.source.Snapshot(ctx, id)
	if err != nil {
		return
	}
	h.mu.RLock()
	h.deliver(client, encode(snap))
	h.mu.RUnlock()
}

func (h *Hub) remove(client *Client) {
	id := client.SessionID

	h.mu.Lock()
	var unsubscribe func()
	if clients, ok := h.clients[id]; ok {
		for i, c := range clients {
			if c == client {
				h.clients[id] = append(clients[:i], clients[i+1:]...)
				close(client.Send)
				break
			}
		}
		if len(h.clients[id]) == 0 {
			delete(h.clients, id)
			unsubscribe = h.unsubscribe[id]
			delete(h.unsubscribe, id)
			h.logger.Info("Hub", "Session no longer watched", map[string]interface{}{"session_id": id})
		}
	}
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// dropSession disconnects every client of a session.
func (h *Hub) dropSession(sessionID string) {
	h.mu.Lock()
	clients := h.clients[sessionID]
	delete(h.clients, sessionID)
	unsubscribe := h.unsubscribe[sessionID]
	delete(h.unsubscribe, sessionID)
	for _, c := range clients {
		close(c.Send)
	}
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		h.dropSession(id)
	}
}

// Send pushes a snapshot to every client watching the session. A closing
// snapshot also disconnects them once delivered.
func (h *Hub) Send(sessionID string, snap store.Snapshot) {
	data := encode(snap)

	h.mu.RLock()
	for _, client := range h.clients[sessionID] {
		h.deliver(client, data)
	}
	h.mu.RUnlock()

	if snap.Closed {
		select {
		case h.closed <- sessionID:
		case <-h.done:
		}
	}
}

// deliver must run with h.mu held. Snapshots are versioned, so a client
// that falls behind only loses intermediate states.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.logger.Warn("Hub", "Client Send buffer full, dropping snapshot", map[string]interface{}{"session_id": client.SessionID})
	}
}

func encode(snap store.Snapshot) []byte {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "snapshot",
		"data": snap,
	})
	return data
}
