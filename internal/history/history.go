// Package history stores assistant conversations per chat session.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrInvalidMessage is returned for messages that cannot be stored.
var ErrInvalidMessage = errors.New("invalid message")

// Message is one turn of a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates a message with a fresh id stamped now.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func (m Message) validate() error {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return fmt.Errorf("%w: role %q", ErrInvalidMessage, m.Role)
	}
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	return nil
}

// Store keeps conversations keyed by session id.
type Store interface {
	// Append adds a message to the end of a session.
	Append(ctx context.Context, sessionID string, m Message) error
	// Recent returns the last limit messages of a session, oldest first. A
	// limit <= 0 returns the whole session. Unknown sessions are empty.
	Recent(ctx context.Context, sessionID string, limit int) ([]Message, error)
	// Clear forgets a session.
	Clear(ctx context.Context, sessionID string) error
}
