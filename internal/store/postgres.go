package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/samber/lo"
)

// Postgres persists messages in a single append-only PostgreSQL table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a pooled connection to the given database URL, verifies
// connectivity, and creates the messages table if it does not exist.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Postgres{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return s, nil
}

func (s *Postgres) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			sender TEXT NOT NULL,
			message TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	_, err := s.db.Exec(query)
	return err
}

// Append inserts a message; id and timestamp are assigned by the database so
// persistence order is authoritative regardless of which session writes.
func (s *Postgres) Append(ctx context.Context, sender, text string) (Message, error) {
	query := `
		INSERT INTO messages (sender, message)
		VALUES ($1, $2)
		RETURNING id, timestamp
	`
	msg := Message{Sender: sender, Text: text}
	if err := s.db.QueryRowContext(ctx, query, sender, text).Scan(&msg.ID, &msg.Timestamp); err != nil {
		return Message{}, fmt.Errorf("inserting message: %w", err)
	}
	return msg, nil
}

// Recent returns up to limit of the newest messages, oldest first.
func (s *Postgres) Recent(ctx context.Context, limit int) ([]Message, error) {
	query := `
		SELECT id, sender, message, timestamp
		FROM messages
		ORDER BY id DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Text, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}

	// The query returns newest first; replay wants chronological order.
	return lo.Reverse(messages), nil
}

// Close closes the underlying connection pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}
