// Package server manages individual WebSocket clients, handling the write
// pump, read error classification, and connection teardown.
package server

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client represents one live WebSocket connection. It is owned by the Hub
// once registered; identity is the registration itself (pointer equality and
// the generated id), never a client-supplied name.
type Client struct {
	id             uuid.UUID
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	gone           bool // guarded by hub.mutex
	maxMessageSize int64
	limiter        *rateLimiter
}

// NewClient creates a Client for the given connection. The send channel is
// buffered so a brief burst of broadcasts does not force a disconnect.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, maxMessageSize int64, limiter *rateLimiter) *Client {
	if conn != nil && maxMessageSize > 0 {
		conn.SetReadLimit(maxMessageSize)
	}

	return &Client{
		id:             uuid.New(),
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            hub,
		addr:           addr,
		maxMessageSize: maxMessageSize,
		limiter:        limiter,
	}
}

// startWritePump launches the write pump goroutine, tracked by the hub so
// shutdown can wait for in-flight writes.
func (c *Client) startWritePump() {
	c.hub.wg.Add(1)
	go func() {
		defer c.hub.wg.Done()
		c.writePump()
	}()
}

// writePump drains the send channel onto the connection and keeps the
// connection alive with periodic pings. It exits when the send channel is
// closed or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				slog.Debug("Error setting write deadline", "conn", c.id, "error", err)
				return
			}
			if !ok {
				// The hub closed the channel; say goodbye.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.writeFrame(payload) {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeFrame writes one payload plus any payloads already queued behind it.
func (c *Client) writeFrame(payload []byte) bool {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		slog.Debug("Error creating writer", "conn", c.id, "error", err)
		return false
	}

	if _, err := w.Write(payload); err != nil {
		slog.Debug("Error writing payload", "conn", c.id, "error", err)
		return false
	}

	queued := len(c.send)
	for i := 0; i < queued; i++ {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return false
		}
		if _, err := w.Write(<-c.send); err != nil {
			return false
		}
	}

	if err := w.Close(); err != nil {
		slog.Debug("Error closing writer", "conn", c.id, "error", err)
		return false
	}
	return true
}

// setupRead configures the initial read deadline and the pong handler that
// extends it while the peer stays responsive.
func (c *Client) setupRead() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Debug("Error setting initial read deadline", "conn", c.id, "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// logReadError classifies a read failure so routine disconnects stay quiet
// while genuinely unexpected transport errors are surfaced.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		slog.Warn("Message exceeded maximum size", "conn", c.id, "addr", c.addr, "limit", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		slog.Info("Client disconnected", "conn", c.id, "addr", c.addr)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		slog.Info("Client connection closed", "conn", c.id, "addr", c.addr)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		slog.Warn("Unexpected WebSocket error", "conn", c.id, "addr", c.addr, "error", err)
	default:
		slog.Warn("WebSocket read error", "conn", c.id, "addr", c.addr, "error", err)
	}
}

// allowMessage applies the per-connection rate limit to an inbound frame.
func (c *Client) allowMessage() bool {
	if c.limiter != nil && !c.limiter.allow() {
		slog.Warn("Rate limit exceeded; discarding message", "conn", c.id, "addr", c.addr)
		return false
	}
	return true
}

// closeConn closes the underlying connection, tolerating repeat closes.
func (c *Client) closeConn() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		slog.Debug("Error closing connection", "conn", c.id, "error", err)
	}
}

// isExpectedCloseError reports whether an error is routine during teardown.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
