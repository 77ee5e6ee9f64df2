package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/diaz/kanban/internal/board"
	"github.com/diaz/kanban/internal/history"
)

// ErrEmptyMessage is returned by Chat.Send for blank input.
var ErrEmptyMessage = errors.New("message is empty")

// Replier produces assistant replies. *Assistant implements it.
type Replier interface {
	Reply(ctx context.Context, hist []history.Message, tasks []board.Task) Reply
}

// Board is the part of the board the chat reads and writes.
type Board interface {
	List(ctx context.Context) ([]board.Task, error)
	Create(ctx context.Context, in board.NewTask) (board.Task, error)
}

// Exchange is the result of one user turn.
type Exchange struct {
	User      history.Message `json:"user"`
	Assistant history.Message `json:"assistant"`
	Created   []board.Task    `json:"created"`
}

// Chat runs conversations: it records each turn, asks the assistant and
// creates the tasks the assistant requested.
type Chat struct {
	history   history.Store
	assistant Replier
	board     Board
	limit     int
}

// NewChat creates a Chat. limit bounds how much history is sent per turn.
func NewChat(h history.Store, a Replier, b Board, limit int) *Chat {
	return &Chat{history: h, assistant: a, board: b, limit: limit}
}

// Send handles one user message in session sessionID.
func (c *Chat) Send(ctx context.Context, sessionID, text string) (Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Exchange{}, ErrEmptyMessage
	}

	user := history.NewMessage(history.RoleUser, text)
	if err := c.history.Append(ctx, sessionID, user); err != nil {
		return Exchange{}, fmt.Errorf("store user message: %w", err)
	}

	hist, err := c.history.Recent(ctx, sessionID, c.limit)
	if err != nil {
		return Exchange{}, fmt.Errorf("load history: %w", err)
	}

	tasks, err := c.board.List(ctx)
	if err != nil {
		return Exchange{}, fmt.Errorf("load tasks: %w", err)
	}

	reply := c.assistant.Reply(ctx, hist, tasks)

	created := make([]board.Task, 0, len(reply.Intents))
	for _, intent := range reply.Intents {
		t, err := c.board.Create(ctx, intent.NewTask())
		if err != nil {
			log.Warn().Err(err).Str("title", intent.Title).Msg("assistant task not created")
			continue
		}
		created = append(created, t)
	}

	// Tasks may already exist, so a lost reply is logged rather than failing the turn.
	answer := history.NewMessage(history.RoleAssistant, reply.Text)
	if err := c.history.Append(ctx, sessionID, answer); err != nil {
		log.Error().Err(err).Str("session", sessionID).Int("created", len(created)).Msg("assistant reply not stored")
	}

	return Exchange{User: user, Assistant: answer, Created: created}, nil
}

// History returns the whole conversation of a session.
func (c *Chat) History(ctx context.Context, sessionID string) ([]history.Message, error) {
	return c.history.Recent(ctx, sessionID, 0)
}

// Reset forgets a session.
func (c *Chat) Reset(ctx context.Context, sessionID string) error {
	return c.history.Clear(ctx, sessionID)
}
