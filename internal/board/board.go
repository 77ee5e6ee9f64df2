package board

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/diaz/kanban/internal/store"
)

// ErrNotFound is returned for unknown task ids.
var ErrNotFound = store.ErrNotFound

// Board is the task board backed by the task repository.
type Board struct {
	tasks *store.TaskRepository
	hub   *hub

	// mu serialises read-modify-write cycles on tasks.
	mu  sync.Mutex
	now func() time.Time
}

// New creates a Board over the given repository.
func New(tasks *store.TaskRepository) *Board {
	return &Board{
		tasks: tasks,
		hub:   newHub(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe returns a channel of board events and a function that ends the
// subscription. Events are dropped for subscribers that fall behind.
func (b *Board) Subscribe() (<-chan Event, func()) {
	return b.hub.subscribe()
}

// List returns every task, oldest first.
func (b *Board) List(ctx context.Context) ([]Task, error) {
	rows, err := b.tasks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, fromRow(r))
	}
	return tasks, nil
}

// Get returns a task by id.
func (b *Board) Get(ctx context.Context, id string) (Task, error) {
	r, err := b.tasks.GetByID(ctx, id)
	if err != nil {
		return Task{}, fmt.Errorf("get task %s: %w", id, err)
	}
	return fromRow(r), nil
}

// Create adds a task. Progress starts at the column's default.
func (b *Board) Create(ctx context.Context, in NewTask) (Task, error) {
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if in.Column == "" {
		in.Column = ColumnPending
	}

	t := Task{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Priority:    in.Priority,
		Column:      in.Column,
		Progress:    initialProgress(in.Column),
		CreatedAt:   b.now(),
	}
	if err := t.validate(); err != nil {
		return Task{}, err
	}

	row := t.toRow()
	if err := b.tasks.Create(ctx, row); err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	t = fromRow(row)

	log.Debug().Str("task_id", t.ID).Str("column", string(t.Column)).Msg("task created")
	b.hub.publish(Event{Type: EventTaskCreated, TaskID: t.ID, Data: t})
	return t, nil
}

// Update applies a partial update. Changing the column without an explicit
// progress applies the same progress policy as MoveTask.
func (b *Board) Update(ctx context.Context, id string, patch TaskPatch) (Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, err := b.tasks.GetByID(ctx, id)
	if err != nil {
		return Task{}, fmt.Errorf("get task %s: %w", id, err)
	}
	t := fromRow(r)
	before := t.Column

	if patch.Title != nil {
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		t.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Column != nil {
		t.Column = *patch.Column
		if patch.Progress == nil && t.Column != before {
			t.Progress = movedProgress(t.Column, t.Progress)
		}
	}
	if patch.Progress != nil {
		t.Progress = *patch.Progress
	}

	if err := t.validate(); err != nil {
		return Task{}, err
	}

	row := t.toRow()
	if err := b.tasks.Update(ctx, row); err != nil {
		return Task{}, fmt.Errorf("update task %s: %w", id, err)
	}
	t = fromRow(row)

	events := []Event{{Type: EventTaskUpdated, TaskID: t.ID, Data: t}}
	if t.Column == ColumnDone && before != ColumnDone {
		events = append(events, Event{Type: EventCelebrate, TaskID: t.ID})
	}
	b.hub.publish(events...)
	return t, nil
}

// Delete removes a task.
func (b *Board) Delete(ctx context.Context, id string) error {
	if err := b.tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}

	log.Debug().Str("task_id", id).Msg("task deleted")
	b.hub.publish(Event{Type: EventTaskDeleted, TaskID: id})
	return nil
}

// MoveTask moves a task to column. Moving to done sets progress to 100 and
// to progress sets it to 50; moving to pending keeps it. Moving a task to
// the column it is already in changes nothing and emits no events.
func (b *Board) MoveTask(ctx context.Context, id string, column Column) error {
	if _, err := ParseColumn(string(column)); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	r, err := b.tasks.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get task %s: %w", id, err)
	}
	t := fromRow(r)
	if t.Column == column {
		return nil
	}

	from := t.Column
	t.Column = column
	t.Progress = movedProgress(column, t.Progress)

	row := t.toRow()
	if err := b.tasks.Update(ctx, row); err != nil {
		return fmt.Errorf("move task %s: %w", id, err)
	}
	t = fromRow(row)

	log.Info().
		Str("task_id", id).
		Str("from", string(from)).
		Str("to", string(column)).
		Msg("task moved")

	events := []Event{{Type: EventTaskMoved, TaskID: id, Data: t}}
	if column == ColumnDone {
		events = append(events, Event{Type: EventCelebrate, TaskID: id})
	}
	b.hub.publish(events...)
	return nil
}

// Stats summarises the board.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	// Progress is the mean task progress rounded to a whole percent; 0 for an
	// empty board.
	Progress int `json:"progress"`
}

// Stats counts tasks per column and averages their progress.
func (b *Board) Stats(ctx context.Context) (Stats, error) {
	counts, err := b.tasks.CountByColumn(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count tasks: %w", err)
	}

	var s Stats
	total := 0
	for _, c := range counts {
		s.Total += c.Count
		total += c.TotalProgress
		switch Column(c.Column) {
		case ColumnPending:
			s.Pending = c.Count
		case ColumnProgress:
			s.InProgress = c.Count
		case ColumnDone:
			s.Completed = c.Count
		}
	}
	if s.Total > 0 {
		s.Progress = int(math.Round(float64(total) / float64(s.Total)))
	}
	return s, nil
}

// IsNotFound reports whether err means the task does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
