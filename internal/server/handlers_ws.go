package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/bahrain-bp/unity-sub000/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // channel auth is handled upstream
	},
}

// clientMessage is the only inbound message shape the channel reacts to.
// Everything else is accepted and ignored.
type clientMessage struct {
	Action          string `json:"action"`
	RequestSnapshot bool   `json:"requestSnapshot"`
}

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	connectionID := s.gateway.Register(conn)

	// The registry write failing must not tear down the accepted socket;
	// the connection just stays invisible to broadcasts until reaped.
	storeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	entry := domain.Connection{ConnectionID: connectionID, CreatedAt: time.Now()}
	if err := s.connections.Put(storeCtx, entry); err != nil {
		slog.Error("Failed to store connection", "connection_id", connectionID, "error", err)
	}
	cancel()
	slog.Info("Client connected", "connection_id", connectionID)

	go s.readLoop(conn, connectionID)
	return nil
}

// readLoop consumes inbound messages until the socket closes, then removes
// the connection from both the gateway and the store. The store delete is
// idempotent, so racing with a broadcast reap is harmless.
func (s *Server) readLoop(conn *websocket.Conn, connectionID string) {
	defer func() {
		s.gateway.Unregister(connectionID)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.connections.Delete(ctx, connectionID); err != nil {
			slog.Error("Failed to delete connection", "connection_id", connectionID, "error", err)
		}
		slog.Info("Client disconnected", "connection_id", connectionID)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("Ignoring malformed client message", "connection_id", connectionID)
			continue
		}

		if msg.Action == "hello" && msg.RequestSnapshot {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := s.snapshot.SendSnapshot(ctx, connectionID); err != nil {
				slog.Error("Failed to send snapshot", "connection_id", connectionID, "error", err)
			}
			cancel()
		}
		// any other message: acknowledged by doing nothing
	}
}
