package history

import (
	"context"

	"github.com/diaz/kanban/internal/store"
)

// SQLStore keeps conversations in the application database.
type SQLStore struct {
	messages *store.MessageRepository
}

// NewSQLStore creates a SQLStore over the message repository.
func NewSQLStore(messages *store.MessageRepository) *SQLStore {
	return &SQLStore{messages: messages}
}

func (s *SQLStore) Append(ctx context.Context, sessionID string, m Message) error {
	if err := m.validate(); err != nil {
		return err
	}
	return s.messages.Append(ctx, &store.Message{
		ID:        m.ID,
		SessionID: sessionID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	})
}

func (s *SQLStore) Recent(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	rows, err := s.messages.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, Message{
			ID:        r.ID,
			Role:      Role(r.Role),
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

func (s *SQLStore) Clear(ctx context.Context, sessionID string) error {
	return s.messages.DeleteSession(ctx, sessionID)
}
