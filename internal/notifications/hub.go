package notifications

import (
	"context"
	"errors"
	"sync"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	hubName = "feed"

	defaultMaxConns = 10000
)

// ErrHubFull is returned by Register once the connection limit is reached.
var ErrHubFull = errors.New("live feed connection limit reached")

// ErrHubClosed is returned by Register after Shutdown.
var ErrHubClosed = errors.New("live feed is shutting down")

// Hub tracks live feed clients and broadcasts every post event to all of them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	maxConns int
	closed   bool
}

// NewHub creates an empty hub. maxConns <= 0 uses the default limit.
func NewHub(maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	return &Hub{
		clients:  make(map[*Client]struct{}),
		maxConns: maxConns,
	}
}

// Register adds a connection. conn may be nil in tests.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= h.maxConns {
		return nil, ErrHubFull
	}

	client := newClient(h, conn, userID)
	h.clients[client] = struct{}{}
	observability.WebSocketConnectionsTotal.Inc()
	return client, nil
}

// UnregisterClient removes client and closes its send queue. Safe to call twice.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	observability.WebSocketConnectionsTotal.Dec()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll queues message for every client and returns how many accepted it.
func (h *Hub) BroadcastAll(message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		if c.TrySend(message) {
			delivered++
		}
	}
	return delivered
}

// StartWiring forwards every event from the notifier's subscription to the clients.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.Subscribe(ctx, func(payload string) {
		h.BroadcastAll([]byte(payload))
	})
}

// Shutdown sends a going-away frame to every client and drops them all.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for client := range h.clients {
		if client.Conn != nil {
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				middleware.Logger.Debug("failed to write close frame", "user_id", client.UserID, "error", err)
			}
			_ = client.Conn.Close()
		}
		close(client.Send)
		observability.WebSocketConnectionsTotal.Dec()
	}
	h.clients = make(map[*Client]struct{})
	return nil
}
