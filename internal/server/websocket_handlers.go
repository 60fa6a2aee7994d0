package server

import (
	"context"
	"log/slog"

	"friendfeed/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler registers a page's socket with the toast hub. The session id is
// set by WebSocketSession.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sessionID, ok := conn.Locals(middleware.LocalSessionID).(string)
		if !ok || sessionID == "" {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(sessionID, conn)
		if err != nil {
			s.log.WarnContext(context.Background(), "websocket register",
				slog.String("session_id", sessionID), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		go client.WritePump()
		client.ReadPump()
	})
}
