// Package server coordinates client registration, message broadcast, and
// connection cleanup for the RelayChat WebSocket system via the Hub type.
package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

// ErrSendFailed is returned by SendTo when the target connection is no longer
// registered or its send buffer is full.
var ErrSendFailed = errors.New("server: send to client failed")

// Hub tracks all live client connections and performs broadcast fan-out.
// Membership operations are fast and never held across a transport send;
// broadcasts operate on a snapshot of the member set taken at call time.
// The Hub has no control loop of its own: sessions invoke it directly.
type Hub struct {
	mutex   sync.RWMutex
	clients map[*Client]bool
	closed  bool
	wg      sync.WaitGroup
}

// NewHub creates an empty Hub ready to manage WebSocket connections. Its
// lifetime is tied to server startup and shutdown; it is injected into every
// session rather than living as package state.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

// Register adds a client to the member set and reports whether it was
// admitted. Each client registers at most once; the caller guarantees this.
// Registration after shutdown is refused.
func (h *Hub) Register(client *Client) bool {
	h.mutex.Lock()
	if h.closed {
		h.mutex.Unlock()
		slog.Warn("Refusing registration during shutdown", "addr", client.addr)
		client.closeConn()
		return false
	}
	client.gone = false
	h.clients[client] = true
	count := len(h.clients)
	h.mutex.Unlock()

	slog.Info("Client registered", "conn", client.id, "addr", client.addr, "total", count)
	return true
}

// Unregister removes a client if present and closes its send channel exactly
// once. Removal of an already-removed client is a no-op: disconnect paths may
// race with cleanup and must tolerate double-removal.
func (h *Hub) Unregister(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	client.gone = true
	count := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock.
	close(client.send)
	slog.Info("Client unregistered", "conn", client.id, "addr", client.addr, "total", count)
}

// SendTo delivers a single payload to one client, used for history replay.
func (h *Hub) SendTo(client *Client, payload []byte) error {
	if !h.safeSend(client, payload) {
		return ErrSendFailed
	}
	return nil
}

// Broadcast delivers payload to every currently-registered connection except
// exclude, if given. It operates on a membership snapshot taken at call time:
// clients that join mid-broadcast may or may not receive the payload. A
// failure to deliver to one client never aborts delivery to the rest; failed
// clients are removed from the member set.
func (h *Hub) Broadcast(payload []byte, exclude *Client) {
	clients := h.snapshot()

	var failed []*Client
	for _, client := range clients {
		if exclude != nil && client == exclude {
			continue
		}
		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}

	h.removeFailedClients(failed)
}

// Len reports the current number of registered clients.
func (h *Hub) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// snapshot returns a stable copy of the member set for iteration.
func (h *Hub) snapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return lo.Keys(h.clients)
}

func (h *Hub) safeSend(client *Client, payload []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Recovered from panic in safeSend", "conn", client.id, "panic", r)
			ok = false
		}
	}()

	// Hold the read lock for the enqueue so the send channel cannot be
	// closed by a concurrent Unregister between the check and the send.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.clients[client]; !exists || client.gone {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// removeFailedClients drops clients whose send buffers were full or whose
// channels were gone, and closes their channels outside the lock.
func (h *Hub) removeFailedClients(failed []*Client) {
	if len(failed) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range failed {
		if _, exists := h.clients[client]; exists {
			delete(h.clients, client)
			client.gone = true
			channelsToClose = append(channelsToClose, client.send)
			slog.Warn("Client removed after failed delivery", "conn", client.id, "addr", client.addr)
		}
	}
	h.mutex.Unlock()

	for _, ch := range channelsToClose {
		close(ch)
	}
}

// Shutdown closes all client connections and waits for their write pumps to
// finish, or until the timeout is reached. After Shutdown no new clients can
// register.
func (h *Hub) Shutdown(timeout time.Duration) error {
	slog.Info("Initiating hub shutdown")

	h.mutex.Lock()
	h.closed = true
	clients := lo.Keys(h.clients)
	h.mutex.Unlock()

	for _, client := range clients {
		client.closeConn()
	}
	slog.Info("Closed client connections", "count", len(clients))

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Hub shutdown completed")
		return nil
	case <-time.After(timeout):
		slog.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
