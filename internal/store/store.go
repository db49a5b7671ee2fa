// Package store provides the durable append-only message log backing the
// RelayChat server, with a PostgreSQL implementation for production and an
// in-memory implementation for local runs and tests.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by store operations after Close has been called.
var ErrClosed = errors.New("store: closed")

// Message is a persisted chat message. ID is assigned by the store and is
// strictly increasing in persistence order; Timestamp is assigned by the
// store at persist time, making the store the single ordering authority.
type Message struct {
	ID        int64
	Sender    string
	Text      string
	Timestamp time.Time
}

// MessageStore is the contract for the durable message log. Implementations
// must be safe for concurrent callers; writes may serialize internally but
// must preserve the strictly increasing ID invariant.
type MessageStore interface {
	// Append durably persists a message, assigning its ID and timestamp,
	// and returns the stored record.
	Append(ctx context.Context, sender, text string) (Message, error)

	// Recent returns up to limit of the most recently persisted messages,
	// ordered chronologically ascending (oldest first).
	Recent(ctx context.Context, limit int) ([]Message, error)

	Close() error
}
