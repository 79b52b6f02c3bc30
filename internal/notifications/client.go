package notifications

import (
	"log/slog"
	"sync"
	"time"

	"feedhub/internal/middleware"
	"feedhub/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames; anything bigger is abuse.
	maxMessageSize = 4096

	sendBufferSize = 256
)

// Client is the middleman between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	done     chan struct{}
	doneOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		Conn: conn,
		Send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

func (c *Client) stop() {
	c.doneOnce.Do(func() { close(c.done) })
}

// ReadPump drains the connection so control frames are processed. It blocks
// until the peer goes away and then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.stop()
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Debug("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}
		// inbound messages are ignored; the feed channel is one-way
	}
}

// WritePump pumps messages from the hub to the websocket connection and
// keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking. Slow clients lose the frame.
func (c *Client) TrySend(message []byte) bool {
	select {
	case <-c.done:
		observability.WebSocketDrops.WithLabelValues("closed").Inc()
		return false
	default:
	}

	select {
	case c.Send <- message:
		return true
	default:
		observability.WebSocketDrops.WithLabelValues("full").Inc()
		middleware.Logger.Warn("websocket send buffer full, dropped frame")
		return false
	}
}
