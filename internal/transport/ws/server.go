// Package ws serves the live turn stream of a session over websocket.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/shank50/supportbotai/internal/domain"
	"github.com/shank50/supportbotai/internal/hub"
)

// Stream event types.
const (
	TypeSubscribed = "subscribed"
	TypeTurn       = "turn"
)

// SessionLookup resolves the session a client subscribes to.
type SessionLookup interface {
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

// Options tunes connection keepalive.
type Options struct {
	PingInterval   time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// Server handles websocket subscriptions.
type Server struct {
	sessions SessionLookup
	hub      *hub.Hub
	opts     Options
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new websocket server.
func NewServer(sessions SessionLookup, h *hub.Hub, opts Options, logger *slog.Logger) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = 4096
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sessions: sessions,
		hub:      h,
		opts:     opts,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleStream upgrades GET /v1/sessions/:session_id/stream. Unknown
// sessions are rejected before the upgrade.
func (s *Server) HandleStream(c echo.Context) error {
	sessionID := c.Param("session_id")
	if _, err := s.sessions.GetSession(c.Request().Context(), sessionID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, domain.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}

	wsConn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", "session_id", sessionID, "error", err)
		return nil
	}
	wsConn.SetReadLimit(s.opts.MaxMessageSize)

	conn := s.hub.NewConnection(wsConn, sessionID)
	// Queued before registering so the ack always precedes turn events.
	if err := s.hub.SendJSONToConnection(conn, domain.StreamEvent{
		Type:      TypeSubscribed,
		Ts:        time.Now().UnixMilli(),
		SessionID: sessionID,
	}); err != nil {
		s.logger.Warn("failed to queue subscription ack", "session_id", sessionID, "error", err)
	}
	if err := s.hub.Register(conn); err != nil {
		_ = wsConn.Close()
		return nil
	}

	go s.writePump(conn)
	go s.readPump(conn)
	return nil
}

// readPump drains client frames so pongs and close frames are handled.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		_ = conn.Close()
	}()

	_ = conn.Conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read error", "session_id", conn.SessionID, "error", err)
			}
			return
		}
	}
}

// writePump writes queued events and keepalive pings.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("failed to write websocket message", "session_id", conn.SessionID, "error", err)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
