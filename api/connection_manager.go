package api

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"

	"github.com/healthfin/healthcare-api/dto"
	"github.com/healthfin/healthcare-api/models"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 64 * 1024
)

// chatConnection serializes writes on a websocket, gorilla supports a single
// concurrent writer.
type chatConnection struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newChatConnection(conn *websocket.Conn) *chatConnection {
	conn.SetReadLimit(wsMaxMessageSize)
	return &chatConnection{conn: conn}
}

func (c *chatConnection) Send(ctx context.Context, msg models.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return errors.Wrap(err, "could not set websocket write deadline")
	}
	if err := c.conn.WriteJSON(dto.AdaptChatMessage(msg)); err != nil {
		return errors.Wrap(err, "could not write websocket message")
	}
	return nil
}

// CloseWithReason sends a close frame before closing the connection.
func (c *chatConnection) CloseWithReason(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
	return c.conn.Close()
}

func (c *chatConnection) Close() error {
	return c.conn.Close()
}

// ConnectionManager tracks the open chat connection of every session.
type ConnectionManager struct {
	mu          sync.RWMutex
	connections map[string]*chatConnection
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{connections: make(map[string]*chatConnection)}
}

// Register binds the session to the connection, replacing any previous one.
func (m *ConnectionManager) Register(sessionId string, conn *chatConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[sessionId] = conn
}

// Unregister forgets the session, unless it was taken over by another connection.
func (m *ConnectionManager) Unregister(sessionId string, conn *chatConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connections[sessionId] == conn {
		delete(m.connections, sessionId)
	}
}

func (m *ConnectionManager) Get(sessionId string) (*chatConnection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.connections[sessionId]
	return conn, ok
}

func (m *ConnectionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// CloseAll tells every client the server is going away.
func (m *ConnectionManager) CloseAll() {
	m.mu.Lock()
	conns := make([]*chatConnection, 0, len(m.connections))
	for sessionId, conn := range m.connections {
		conns = append(conns, conn)
		delete(m.connections, sessionId)
	}
	m.mu.Unlock()

	for _, conn := range conns {
		_ = conn.CloseWithReason(websocket.CloseGoingAway, "server shutting down")
	}
}
