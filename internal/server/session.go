// Package server orchestrates the lifecycle of one connection: registration,
// history replay, the inbound read loop, and exactly-once teardown.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/relaychat/relaychat/internal/store"
)

// storeTimeout bounds individual store calls so a stalled database cannot
// wedge a session's read loop indefinitely.
const storeTimeout = 5 * time.Second

// Session drives one client connection from join to close. It persists each
// inbound message before requesting a broadcast, and replays recent history
// to the client before processing any inbound traffic.
type Session struct {
	hub          *Hub
	store        store.MessageStore
	client       *Client
	historyLimit int
}

// NewSession creates a session for an upgraded connection.
func NewSession(hub *Hub, st store.MessageStore, client *Client, historyLimit int) *Session {
	return &Session{
		hub:          hub,
		store:        st,
		client:       client,
		historyLimit: historyLimit,
	}
}

// Run registers the client, replays history, and consumes inbound frames
// until the connection closes. Teardown happens exactly once regardless of
// which path detects closure; the hub tolerates a racing double-unregister.
func (s *Session) Run() {
	if !s.hub.Register(s.client) {
		return
	}
	s.client.startWritePump()

	defer func() {
		s.hub.Unregister(s.client)
		s.client.closeConn()
	}()

	s.replayHistory()
	s.readLoop()
}

// replayHistory sends the most recent persisted messages to the client,
// oldest first, before any live traffic is processed for this connection.
// A store failure degrades to an empty history; joining is never blocked by
// a persistence fault.
func (s *Session) replayHistory() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	messages, err := s.store.Recent(ctx, s.historyLimit)
	if err != nil {
		slog.Warn("History fetch failed, joining with empty history", "conn", s.client.id, "error", err)
		return
	}

	for _, msg := range messages {
		frame, err := encodeHistory(msg)
		if err != nil {
			slog.Error("Failed to encode history frame", "conn", s.client.id, "error", err)
			continue
		}
		if err := s.hub.SendTo(s.client, frame); err != nil {
			slog.Warn("History replay aborted", "conn", s.client.id, "error", err)
			return
		}
	}
}

func (s *Session) readLoop() {
	c := s.client
	c.setupRead()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.allowMessage() {
			continue
		}

		s.handleFrame(raw)
	}
}

// handleFrame processes one inbound frame: parse with defaults, persist,
// then broadcast. Persistence strictly precedes fan-out; a message that
// fails to persist is never broadcast, and the sender sees no echo of it.
func (s *Session) handleFrame(raw []byte) {
	sender, text, err := decodeInbound(raw)
	if err != nil {
		slog.Warn("Discarding malformed frame", "conn", s.client.id, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	stored, err := s.store.Append(ctx, sender, text)
	if err != nil {
		slog.Error("Message not persisted, suppressing broadcast", "conn", s.client.id, "sender", sender, "error", err)
		return
	}

	frame, err := encodeLive(stored)
	if err != nil {
		slog.Error("Failed to encode broadcast frame", "conn", s.client.id, "error", err)
		return
	}

	slog.Debug("Broadcasting message", "conn", s.client.id, "sender", stored.Sender, "id", stored.ID)

	// No exclusion: the sender receives its own message back, since clients
	// render exclusively from the broadcast feed.
	s.hub.Broadcast(frame, nil)
}
