// Package notifications pushes toasts to a session's open pages over websockets.
//
// Toasts are published to Redis under toasts:session:<id> so that every instance
// holding a connection for the session can deliver them. Without Redis they are
// delivered to this instance's connections directly.
package notifications

import (
	"context"
	"errors"
	"sync"

	"friendfeed/internal/cache"
	"friendfeed/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerSession = 8
	maxTotalConns      = 10000
)

var (
	ErrServerFull  = errors.New("server connection limit reached")
	ErrSessionFull = errors.New("session connection limit reached")
)

// Hub maps session ids to their open connections.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
	closed     bool
	log        *observability.WSLogger
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]map[*Client]struct{}),
		log:   observability.NewWSLogger("toast hub"),
	}
}

// Name identifies the hub in logs and metrics.
func (h *Hub) Name() string { return "toast hub" }

// Register adds a connection for sessionID.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.totalConns >= maxTotalConns {
		return nil, ErrServerFull
	}
	m, ok := h.conns[sessionID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[sessionID] = m
	}
	if len(m) >= maxConnsPerSession {
		return nil, ErrSessionFull
	}

	client := NewClient(h, conn, sessionID)
	m[client] = struct{}{}
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()
	h.log.LogConnect(context.Background(), sessionID)
	return client, nil
}

// UnregisterClient removes client and closes its send buffer. Repeated calls are harmless.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.SessionID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.conns, client.SessionID)
	}
	h.totalConns--
	close(client.Send)
	observability.WebSocketConnectionsTotal.Dec()
	h.log.LogDisconnect(context.Background(), client.SessionID, "unregistered")
}

// Deliver sends payload to every connection of sessionID and returns how many took it.
func (h *Hub) Deliver(sessionID string, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.conns[sessionID] {
		if c.TrySend(payload) {
			delivered++
		}
	}
	return delivered
}

// Connections is the number of open connections for sessionID.
func (h *Hub) Connections(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[sessionID])
}

// Total is the number of open connections.
func (h *Hub) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// StartWiring forwards toasts published on Redis to local connections.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartSubscriber(ctx, func(channel string, payload []byte) {
		sessionID, ok := cache.SessionFromChannel(channel)
		if !ok {
			h.log.LogError(ctx, "", errors.New("invalid toast channel "+channel), "subscribe")
			return
		}
		h.Deliver(sessionID, payload)
	})
}

// Shutdown closes every send buffer; each WritePump then says goodbye to its page.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	for sessionID, clients := range h.conns {
		for client := range clients {
			close(client.Send)
			observability.WebSocketConnectionsTotal.Dec()
			h.log.LogDisconnect(context.Background(), sessionID, "shutdown")
		}
	}
	h.conns = make(map[string]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
