package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"feedhub/internal/middleware"
	"feedhub/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// DefaultMaxConns caps concurrent websocket connections per process.
const DefaultMaxConns = 10000

var (
	ErrConnectionLimit = errors.New("server connection limit reached")
	ErrHubClosed       = errors.New("hub is shut down")
)

// Hub tracks the websocket clients of this process and fans frames out to
// all of them. Connections are anonymous; every client gets every event.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	maxConns int
	closed   bool
}

// NewHub creates a hub. maxConns <= 0 means DefaultMaxConns.
func NewHub(maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	return &Hub{
		clients:  make(map[*Client]struct{}),
		maxConns: maxConns,
	}
}

func (h *Hub) Name() string { return "websocket" }

// Register adds a connection. It fails when the hub is full or shut down.
func (h *Hub) Register(conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= h.maxConns {
		return nil, ErrConnectionLimit
	}

	client := newClient(h, conn)
	h.clients[client] = struct{}{}
	observability.WebSocketConnections.Inc()
	return client, nil
}

// UnregisterClient removes client. Safe to call more than once.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		observability.WebSocketConnections.Dec()
	}
	h.mu.Unlock()
	client.stop()
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll queues message for every client and returns how many
// accepted it.
func (h *Hub) BroadcastAll(message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.clients {
		if c.TrySend(message) {
			sent++
		}
	}
	return sent
}

// Broadcast delivers ev to the clients of this process only.
func (h *Hub) Broadcast(_ context.Context, ev Event) error {
	data, err := ev.Encode()
	if err != nil {
		return err
	}
	h.BroadcastAll(data)
	return nil
}

// StartWiring subscribes the hub to the Redis broadcast channel so events
// published by any instance reach the clients of this one.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartSubscriber(ctx, func(payload string) {
		h.BroadcastAll([]byte(payload))
	})
}

// Shutdown sends a close frame to every client and drops them.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	for client := range h.clients {
		client.stop()
		observability.WebSocketConnections.Dec()
		if client.Conn == nil {
			continue
		}
		// WriteControl may run concurrently with the client's WritePump.
		if err := client.Conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down"),
			time.Now().Add(writeWait)); err != nil {
			middleware.Logger.Debug("failed to write close frame", slog.String("error", err.Error()))
		}
		if err := client.Conn.Close(); err != nil {
			middleware.Logger.Debug("failed to close websocket", slog.String("error", err.Error()))
		}
	}
	h.clients = make(map[*Client]struct{})
	return nil
}
