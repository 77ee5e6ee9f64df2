// Package board holds the Kanban board: tasks in three columns, the
// progress policy applied when tasks move, and change notifications.
package board

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diaz/kanban/internal/store"
)

// Column is one of the board's three fixed columns.
type Column string

const (
	ColumnPending  Column = "pending"
	ColumnProgress Column = "progress"
	ColumnDone     Column = "done"
)

// Columns lists the board columns left to right.
var Columns = []Column{ColumnPending, ColumnProgress, ColumnDone}

// Label returns the column heading shown to users.
func (c Column) Label() string {
	switch c {
	case ColumnPending:
		return "Pending"
	case ColumnProgress:
		return "In progress"
	case ColumnDone:
		return "Done"
	}
	return string(c)
}

// Priority is a task's urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

var (
	// ErrInvalidColumn is returned for column names outside Columns.
	ErrInvalidColumn = errors.New("invalid column")
	// ErrInvalidPriority is returned for priority names outside Priorities.
	ErrInvalidPriority = errors.New("invalid priority")
	// ErrInvalidTask is returned when a task fails validation.
	ErrInvalidTask = errors.New("invalid task")
)

// ParseColumn converts a column name to a Column.
func ParseColumn(s string) (Column, error) {
	c := Column(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Columns {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidColumn, s)
}

// ParsePriority converts a priority name to a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Priorities {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

// Task is a card on the board.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Progress    int       `json:"progress"`
	Column      Column    `json:"column"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTask is the input for Board.Create. Empty priority and column default
// to medium and pending.
type NewTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Column      Column   `json:"column"`
}

// TaskPatch is a partial update; nil fields are left unchanged.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Progress    *int      `json:"progress,omitempty"`
	Column      *Column   `json:"column,omitempty"`
}

// initialProgress is the progress a task starts with in a column.
func initialProgress(c Column) int {
	switch c {
	case ColumnDone:
		return 100
	case ColumnProgress:
		return 50
	}
	return 0
}

// movedProgress is the progress after moving a task into c. Moving back to
// pending keeps whatever progress the task had.
func movedProgress(c Column, current int) int {
	switch c {
	case ColumnDone:
		return 100
	case ColumnProgress:
		return 50
	}
	return current
}

func (t *Task) validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if _, err := ParseColumn(string(t.Column)); err != nil {
		return err
	}
	if _, err := ParsePriority(string(t.Priority)); err != nil {
		return err
	}
	if t.Progress < 0 || t.Progress > 100 {
		return fmt.Errorf("%w: progress %d not in [0,100]", ErrInvalidTask, t.Progress)
	}
	return nil
}

func fromRow(r *store.Task) Task {
	return Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    Priority(r.Priority),
		Progress:    r.Progress,
		Column:      Column(r.Column),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (t *Task) toRow() *store.Task {
	return &store.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Progress:    t.Progress,
		Column:      string(t.Column),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
