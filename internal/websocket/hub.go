package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub maintains the set of open relay connections and the conversation ids
// they hold. A conversation id is held by at most one open connection.
type Hub struct {
	mu sync.RWMutex

	// Open connections by connection id.
	connections map[string]*Connection

	// Conversation id -> id of the connection holding it.
	conversations map[string]string

	// Set once Shutdown begins; no connection registers after it.
	closed bool

	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		connections:   make(map[string]*Connection),
		conversations: make(map[string]string),
		logger:        logger,
	}
}

// register adds c. It reports false once the hub is shutting down.
func (h *Hub) register(c *Connection) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.connections[c.id] = c
	h.wg.Add(1)
	h.mu.Unlock()
	h.logger.Debug("Connection registered", zap.String("connectionID", c.id))
	return true
}

// unregister removes c and releases every conversation it holds
func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	if _, ok := h.connections[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.connections, c.id)
	for conversationID, holder := range h.conversations {
		if holder == c.id {
			delete(h.conversations, conversationID)
		}
	}
	h.mu.Unlock()
	h.wg.Done()
	h.logger.Debug("Connection unregistered", zap.String("connectionID", c.id))
}

// Claim marks conversationID as held by connectionID. It fails when another
// open connection already holds it.
func (h *Hub) Claim(conversationID, connectionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if holder, ok := h.conversations[conversationID]; ok && holder != connectionID {
		return false
	}
	h.conversations[conversationID] = connectionID
	return true
}

// Release drops the claim on conversationID if connectionID holds it
func (h *Hub) Release(conversationID, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conversations[conversationID] == connectionID {
		delete(h.conversations, conversationID)
	}
}

// IsHeld reports whether an open connection holds conversationID
func (h *Hub) IsHeld(conversationID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conversations[conversationID]
	return ok
}

// Count returns the number of open connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Shutdown asks every open connection to close and waits for their
// teardown, which ends the conversations they started. Connections still
// open when ctx expires are dropped.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	open := make([]*Connection, 0, len(h.connections))
	for _, c := range h.connections {
		open = append(open, c)
	}
	h.mu.Unlock()

	h.logger.Info("Closing relay connections", zap.Int("count", len(open)))
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, ReasonShuttingDown)
	for _, c := range open {
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		for _, c := range open {
			c.conn.Close()
		}
		return ctx.Err()
	}
}
