package store

import (
	"context"
	"database/sql"
	"time"
)

// Message is one stored chat message.
type Message struct {
	ID        string
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// MessageRepository stores chat history per session.
type MessageRepository struct {
	db *sql.DB
}

// Append inserts a message. CreatedAt defaults to now.
func (r *MessageRepository) Append(ctx context.Context, m *Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, m.Role, m.Content, m.CreatedAt,
	)
	return err
}

// ListBySession returns the most recent limit messages of a session in
// chronological order. A limit <= 0 returns the whole session.
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, created_at FROM (
			SELECT rowid AS seq, id, session_id, role, content, created_at
			FROM chat_messages WHERE session_id = ?
			ORDER BY created_at DESC, seq DESC LIMIT ?
		 ) ORDER BY created_at ASC, seq ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// DeleteSession removes every message of a session.
func (r *MessageRepository) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, sessionID)
	return err
}
