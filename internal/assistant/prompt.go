package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/diaz/kanban/internal/board"
	"github.com/diaz/kanban/internal/history"
)

const systemPromptHeader = `You are the board assistant for a personal Kanban board.
Help the user manage their tasks, spot bottlenecks and suggest priorities.

Creating tasks:
- A task needs a title, short operational details, a priority and a column.
- The title must be short and clear.
- Details must be brief, three lines at most.
- When the user asks to add, create or start a task you MUST call the
  createTask function with suitable arguments.

Answer professionally and concisely.`

type taskSummary struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority"`
	Progress    string `json:"progress"`
	Column      string `json:"column"`
}

// systemPrompt renders the instructions plus the current board.
func systemPrompt(tasks []board.Task) string {
	summaries := make([]taskSummary, 0, len(tasks))
	for _, t := range tasks {
		summaries = append(summaries, taskSummary{
			Title:       t.Title,
			Description: t.Description,
			Priority:    string(t.Priority),
			Progress:    fmt.Sprintf("%d%%", t.Progress),
			Column:      string(t.Column),
		})
	}

	snapshot, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		snapshot = []byte("[]")
	}

	var b strings.Builder
	b.WriteString(systemPromptHeader)
	b.WriteString("\n\nCurrent board:\n")
	b.Write(snapshot)
	return b.String()
}

// buildMessages converts stored history into model input.
func buildMessages(hist []history.Message, tasks []board.Task) []*schema.Message {
	messages := make([]*schema.Message, 0, len(hist)+1)
	messages = append(messages, schema.SystemMessage(systemPrompt(tasks)))

	for _, m := range hist {
		switch m.Role {
		case history.RoleUser:
			messages = append(messages, schema.UserMessage(m.Content))
		case history.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(m.Content, nil))
		}
	}
	return messages
}
