package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Task is a board task row.
type Task struct {
	ID          string
	Title       string
	Description string
	Priority    string
	Progress    int
	Column      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskRepository provides CRUD operations for tasks.
type TaskRepository struct {
	db *sql.DB
}

const taskColumns = `id, title, description, priority, progress, column_id, created_at, updated_at`

// Create inserts a new task. CreatedAt is kept when already set.
func (r *TaskRepository) Create(ctx context.Context, t *Task) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, t.Priority, t.Progress, t.Column, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// GetByID retrieves a task by its ID.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// List retrieves all tasks, oldest first.
func (r *TaskRepository) List(ctx context.Context) ([]*Task, error) {
	return r.query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at ASC, id ASC`)
}

// ListByColumn retrieves the tasks in one column, oldest first.
func (r *TaskRepository) ListByColumn(ctx context.Context, column string) ([]*Task, error) {
	return r.query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE column_id = ? ORDER BY created_at ASC, id ASC`,
		column,
	)
}

func (r *TaskRepository) query(ctx context.Context, q string, args ...any) ([]*Task, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

// Update writes every mutable field of t.
func (r *TaskRepository) Update(ctx context.Context, t *Task) error {
	t.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, priority = ?, progress = ?, column_id = ?, updated_at = ?
		 WHERE id = ?`,
		t.Title, t.Description, t.Priority, t.Progress, t.Column, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}

// Delete removes a task by its ID.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}

// ColumnCount is the number of tasks and their summed progress in a column.
type ColumnCount struct {
	Column        string
	Count         int
	TotalProgress int
}

// CountByColumn aggregates tasks per column. Empty columns are omitted.
func (r *TaskRepository) CountByColumn(ctx context.Context) ([]ColumnCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT column_id, COUNT(*), COALESCE(SUM(progress), 0) FROM tasks GROUP BY column_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []ColumnCount
	for rows.Next() {
		var c ColumnCount
		if err := rows.Scan(&c.Column, &c.Count, &c.TotalProgress); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	t := &Task{}
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Progress, &t.Column, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
