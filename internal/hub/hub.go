// Package hub fans completed turns out to websocket subscribers of a
// session.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shank50/supportbotai/internal/domain"
)

// ErrBufferFull is returned when a connection's send buffer is full.
var ErrBufferFull = errors.New("send buffer full")

// ErrStopped is returned when the hub loop is no longer running.
var ErrStopped = errors.New("hub stopped")

const sendBuffer = 64

// Connection represents a single subscriber connection.
type Connection struct {
	ID        string
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte
	mu        sync.Mutex
}

// Hub manages subscriber connections, grouped by session.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Sessions maps session_id to set of connection IDs
	sessions map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *sessionMessage
	done       chan struct{}

	logger *slog.Logger
	mu     sync.RWMutex
}

type sessionMessage struct {
	SessionID string
	Data      []byte
}

// New creates a new Hub. Call Run to start it.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *sessionMessage, 256),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run processes registrations and broadcasts until ctx is done. All
// connections are closed on return.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for id, conn := range h.connections {
			close(conn.Send)
			delete(h.connections, id)
		}
		h.sessions = make(map[string]map[string]bool)
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if h.sessions[conn.SessionID] == nil {
				h.sessions[conn.SessionID] = make(map[string]bool)
			}
			h.sessions[conn.SessionID][conn.ID] = true
			h.mu.Unlock()
			h.logger.Debug("connection registered", "conn_id", conn.ID, "session_id", conn.SessionID)

		case conn := <-h.unregister:
			h.remove(conn)

		case msg := <-h.broadcast:
			var slow []*Connection
			h.mu.RLock()
			for connID := range h.sessions[msg.SessionID] {
				conn, ok := h.connections[connID]
				if !ok {
					continue
				}
				select {
				case conn.Send <- msg.Data:
				default:
					slow = append(slow, conn)
				}
			}
			h.mu.RUnlock()
			for _, conn := range slow {
				h.logger.Warn("connection buffer full, closing", "conn_id", conn.ID, "session_id", conn.SessionID)
				h.remove(conn)
			}
		}
	}
}

func (h *Hub) remove(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if set := h.sessions[conn.SessionID]; set != nil {
		delete(set, conn.ID)
		if len(set) == 0 {
			delete(h.sessions, conn.SessionID)
		}
	}
	close(conn.Send)
	h.logger.Debug("connection unregistered", "conn_id", conn.ID, "session_id", conn.SessionID)
}

// NewConnection wraps ws as a subscriber of sessionID.
func (h *Hub) NewConnection(ws *websocket.Conn, sessionID string) *Connection {
	return &Connection{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Conn:      ws,
		Send:      make(chan []byte, sendBuffer),
	}
}

// Register adds conn to the hub.
func (h *Hub) Register(conn *Connection) error {
	select {
	case h.register <- conn:
		return nil
	case <-h.done:
		return ErrStopped
	}
}

// Unregister removes conn from the hub and closes its Send channel.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Publish sends event to every subscriber of sessionID. It never blocks;
// events are dropped when the hub is saturated or stopped.
func (h *Hub) Publish(sessionID string, event domain.StreamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("failed to marshal stream event", "session_id", sessionID, "error", err)
		return
	}
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- &sessionMessage{SessionID: sessionID, Data: data}:
	default:
		h.logger.Warn("hub broadcast queue full, dropping event", "session_id", sessionID, "type", event.Type)
	}
}

// SendJSONToConnection queues v for a single connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// HasSubscribers reports whether a session has any active connections.
func (h *Hub) HasSubscribers(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID]) > 0
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// Close closes the underlying websocket.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
