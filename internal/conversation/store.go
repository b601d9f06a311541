// Package conversation persists the durable transcript of every conversation:
// a conversations row per conversation id plus an append-only message log.
// The log is what users see when they reload a conversation; agent working
// state lives separately in the checkpoint package.
package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/amadis/amblue/internal/log"
)

// Message is one entry of the durable transcript.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store reads and writes conversations and their message log.
type Store struct {
	db     Querier
	logger log.Logger
}

// New creates a conversation store backed by db.
func New(db Querier, logger log.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Ensure creates the conversation row if it does not exist yet. It is safe to
// call on every turn.
func (s *Store) Ensure(ctx context.Context, conversationID, userID string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO conversations (id, user_id) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		conversationID, userID)
	if err != nil {
		return fmt.Errorf("ensure conversation: %w", err)
	}
	return nil
}

// Exists reports whether a conversation row is present.
func (s *Store) Exists(ctx context.Context, conversationID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1)`,
		conversationID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check conversation: %w", err)
	}
	return exists, nil
}

// AddMessage appends one message to the transcript and returns its id.
func (s *Store) AddMessage(ctx context.Context, conversationID, role, content string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO conversation_messages (conversation_id, role, content)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		conversationID, role, content).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("add message: %w", err)
	}
	s.logger.Debug("message stored", "conversation_id", conversationID, "role", role, "id", id)
	return id, nil
}

// Messages returns the transcript in insertion order.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, conversation_id, role, content, created_at
		 FROM conversation_messages
		 WHERE conversation_id = $1
		 ORDER BY id`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// Delete removes a conversation, its transcript and any agent checkpoints.
func (s *Store) Delete(ctx context.Context, conversationID string) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM agent_checkpoints WHERE conversation_id = $1`,
		conversationID); err != nil {
		return fmt.Errorf("delete checkpoints: %w", err)
	}
	tag, err := s.db.Exec(ctx,
		`DELETE FROM conversations WHERE id = $1`,
		conversationID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %q not found", conversationID)
	}
	return nil
}
