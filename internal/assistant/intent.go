package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/cloudwego/eino/schema"

	"github.com/diaz/kanban/internal/board"
)

// CreateTaskIntent is a task the model asked to create.
type CreateTaskIntent struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Priority    board.Priority `json:"priority"`
	Column      board.Column   `json:"column"`
}

// NewTask converts the intent to board input.
func (i CreateTaskIntent) NewTask() board.NewTask {
	return board.NewTask{
		Title:       i.Title,
		Description: i.Description,
		Priority:    i.Priority,
		Column:      i.Column,
	}
}

const createTaskToolName = "createTask"

// createTaskTool declares the createTask function to the model.
var createTaskTool = &schema.ToolInfo{
	Name: createTaskToolName,
	Desc: "Create a new task on the Kanban board.",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"title": {
			Type:     schema.String,
			Desc:     "Short, clear task title.",
			Required: true,
		},
		"description": {
			Type: schema.String,
			Desc: "Brief operational details, three lines at most.",
		},
		"priority": {
			Type:     schema.String,
			Desc:     "Priority level: low, medium or high.",
			Enum:     enumValues(board.Priorities),
			Required: true,
		},
		"column": {
			Type:     schema.String,
			Desc:     "Board column: pending, progress or done.",
			Enum:     enumValues(board.Columns),
			Required: true,
		},
	}),
}

func enumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

type createTaskArgs struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Column      string `json:"column"`
}

// parseIntents extracts createTask calls. Calls to other functions are
// ignored; malformed calls are returned as errors alongside the good ones.
func parseIntents(calls []schema.ToolCall) ([]CreateTaskIntent, []error) {
	var intents []CreateTaskIntent
	var errs []error

	for _, call := range calls {
		if call.Function.Name != createTaskToolName {
			continue
		}

		var args createTaskArgs
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			errs = append(errs, fmt.Errorf("createTask arguments: %w", err))
			continue
		}

		title := strings.TrimSpace(args.Title)
		if title == "" {
			errs = append(errs, errors.New("createTask without title"))
			continue
		}

		intents = append(intents, CreateTaskIntent{
			Title:       title,
			Description: strings.TrimSpace(args.Description),
			Priority:    board.Priority(normalizeEnum(args.Priority, priorityAliases, enumValues(board.Priorities), string(board.PriorityMedium))),
			Column:      board.Column(normalizeEnum(args.Column, columnAliases, enumValues(board.Columns), string(board.ColumnPending))),
		})
	}

	return intents, errs
}

var priorityAliases = map[string]string{
	"urgent":   "high",
	"critical": "high",
	"alta":     "high",
	"normal":   "medium",
	"media":    "medium",
	"baja":     "low",
	"minor":    "low",
}

var columnAliases = map[string]string{
	"todo":        "pending",
	"to do":       "pending",
	"backlog":     "pending",
	"pendiente":   "pending",
	"in progress": "progress",
	"in_progress": "progress",
	"doing":       "progress",
	"wip":         "progress",
	"completed":   "done",
	"complete":    "done",
	"finished":    "done",
	"completado":  "done",
}

// maxEnumDistance is the largest edit distance still accepted as a typo.
const maxEnumDistance = 2

// normalizeEnum maps a model-supplied value onto one of options: exact
// match, then known alias, then the closest option within maxEnumDistance
// edits. Anything else falls back to def.
func normalizeEnum(value string, aliases map[string]string, options []string, def string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return def
	}
	for _, o := range options {
		if v == o {
			return o
		}
	}
	if a, ok := aliases[v]; ok {
		return a
	}

	best, bestDist := def, maxEnumDistance+1
	for _, o := range options {
		if d := levenshtein.ComputeDistance(v, o); d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}
