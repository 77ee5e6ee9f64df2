// Package assistant is the board's AI chat assistant. Given a conversation
// and the current tasks it returns a reply and any tasks the model asked to
// create. Failures never surface as errors; they become the reply text.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/diaz/kanban/internal/board"
	"github.com/diaz/kanban/internal/history"
)

// Config configures the chat model.
type Config struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// HistoryLimit is how many past messages are sent to the model.
	HistoryLimit int `mapstructure:"history_limit"`
}

// DefaultConfig returns the assistant defaults. The API key is empty.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://api.openai.com/v1",
		Model:        "gpt-4o-mini",
		Temperature:  0.7,
		Timeout:      30 * time.Second,
		HistoryLimit: 20,
	}
}

// Reply texts used when the model cannot answer.
const (
	MissingKeyText    = "Assistant is not configured: no API key was found."
	ToolOnlyText      = "Done. The task has been added to the board."
	EmptyResponseText = "Sorry, I could not come up with an answer."
	failurePrefix     = "Could not reach the assistant service."
)

// ErrNotConfigured is logged when Reply is called without an API key.
var ErrNotConfigured = errors.New("assistant not configured")

// Reply is the assistant's answer to one turn.
type Reply struct {
	Text    string             `json:"text"`
	Intents []CreateTaskIntent `json:"intents,omitempty"`
}

// Assistant wraps a tool-calling chat model bound to the createTask tool.
type Assistant struct {
	cfg   Config
	model model.ToolCallingChatModel
}

// New creates an Assistant backed by an OpenAI-compatible chat model. With
// no API key the Assistant is created unconfigured and every Reply explains
// that.
func New(ctx context.Context, cfg Config) (*Assistant, error) {
	if cfg.APIKey == "" {
		log.Warn().Msg("assistant API key not set, chat replies will report missing configuration")
		return &Assistant{cfg: cfg}, nil
	}

	temperature := cfg.Temperature
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: &temperature,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating chat model: %w", err)
	}

	return NewWithModel(cfg, cm)
}

// NewWithModel creates an Assistant over an existing chat model.
func NewWithModel(cfg Config, cm model.ToolCallingChatModel) (*Assistant, error) {
	bound, err := cm.WithTools([]*schema.ToolInfo{createTaskTool})
	if err != nil {
		return nil, fmt.Errorf("error binding tools: %w", err)
	}
	return &Assistant{cfg: cfg, model: bound}, nil
}

// Configured reports whether a chat model is available.
func (a *Assistant) Configured() bool {
	return a.model != nil
}

// Reply answers the last message of hist given the current tasks.
func (a *Assistant) Reply(ctx context.Context, hist []history.Message, tasks []board.Task) Reply {
	if a.model == nil {
		log.Debug().Err(ErrNotConfigured).Msg("chat reply skipped")
		return Reply{Text: MissingKeyText}
	}

	if n := a.cfg.HistoryLimit; n > 0 && len(hist) > n {
		hist = hist[len(hist)-n:]
	}

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := a.model.Generate(ctx, buildMessages(hist, tasks))
	if err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("assistant request failed")
		return Reply{Text: failureText(err)}
	}
	if out == nil {
		return Reply{Text: EmptyResponseText}
	}

	intents, errs := parseIntents(out.ToolCalls)
	for _, e := range errs {
		log.Warn().Err(e).Msg("ignoring malformed tool call")
	}

	text := strings.TrimSpace(out.Content)
	switch {
	case text != "":
	case len(out.ToolCalls) > 0:
		text = ToolOnlyText
	default:
		text = EmptyResponseText
	}

	log.Info().
		Int("intents", len(intents)).
		Dur("elapsed", time.Since(start)).
		Msg("assistant replied")

	return Reply{Text: text, Intents: intents}
}

func failureText(err error) string {
	return failurePrefix + " Detail: " + err.Error()
}
