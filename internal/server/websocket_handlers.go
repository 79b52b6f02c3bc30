package server

import (
	"log/slog"
	"time"

	"feedhub/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// websocketUpgradeRequired turns plain HTTP requests to the socket path away.
func websocketUpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// WebsocketHandler serves GET /socket. Every connected client receives all
// post events; nothing sent by the client is interpreted.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client, err := s.hub.Register(conn)
		if err != nil {
			middleware.Logger.Warn("websocket rejected", slog.String("error", err.Error()))
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
				time.Now().Add(time.Second))
			_ = conn.Close()
			return
		}

		// The connection is released back to a pool when this handler
		// returns, so the write pump must be gone by then.
		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			client.WritePump()
		}()
		client.ReadPump()
		<-writeDone
	}, websocket.Config{
		Origins: s.allowedOrigins(),
	})
}
