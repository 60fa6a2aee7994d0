package notifications

import (
	"context"
	"time"

	"friendfeed/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// Socket timings. A page that misses a pong for pongWait is dropped; pings go out
// a little more often than that.
const (
	writeWait      = 10 * time.Second
	pongWait       = time.Minute
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1024 // pages only send close frames and pongs
	sendBuffer     = 32
)

// WSHub is what a Client reports back to.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one open page of a session.
type Client struct {
	Hub       WSHub
	Conn      *websocket.Conn
	Send      chan []byte
	SessionID string

	log *observability.WSLogger
}

// NewClient creates a Client for conn. conn may be nil in tests.
func NewClient(hub WSHub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		SessionID: sessionID,
		Send:      make(chan []byte, sendBuffer),
		log:       observability.NewWSLogger(hub.Name()),
	}
}

// ReadPump drains the connection until the page goes away. Incoming messages are ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := c.Conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			c.log.LogError(context.Background(), c.SessionID, err, "read")
		}
		return
	}
}

// WritePump forwards queued events to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking. A full or closed buffer drops it; the
// page still shows the toast on its next render.
func (c *Client) TrySend(message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
		return true
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
		return false
	}
}
