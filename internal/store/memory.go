package store

import (
	"context"
	"sync"
	"time"
)

// Memory keeps messages in process memory. It is the default store when no
// database is configured and doubles as the test store.
type Memory struct {
	mu       sync.RWMutex
	messages []Message
	nextID   int64
	closed   bool
}

// NewMemory creates an empty in-memory message store.
func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

// Append stores a message, assigning the next ID and the current time.
func (s *Memory) Append(_ context.Context, sender, text string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Message{}, ErrClosed
	}

	msg := Message{
		ID:        s.nextID,
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	s.nextID++
	s.messages = append(s.messages, msg)
	return msg, nil
}

// Recent returns up to limit of the newest messages, oldest first.
func (s *Memory) Recent(_ context.Context, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	start := len(s.messages) - limit
	if start < 0 {
		start = 0
	}

	result := make([]Message, len(s.messages)-start)
	copy(result, s.messages[start:])
	return result, nil
}

// Close marks the store closed; subsequent operations return ErrClosed.
func (s *Memory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
