package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/diaz/kanban/internal/board"
)

// Board is the board as used by the REST handlers.
type Board interface {
	List(ctx context.Context) ([]board.Task, error)
	Get(ctx context.Context, id string) (board.Task, error)
	Create(ctx context.Context, in board.NewTask) (board.Task, error)
	Update(ctx context.Context, id string, patch board.TaskPatch) (board.Task, error)
	Delete(ctx context.Context, id string) error
	MoveTask(ctx context.Context, id string, column board.Column) error
	Stats(ctx context.Context) (board.Stats, error)
}

// TaskHandler serves /api/tasks and /api/stats.
type TaskHandler struct {
	board Board
}

// NewTaskHandler creates a TaskHandler over b.
func NewTaskHandler(b Board) *TaskHandler {
	return &TaskHandler{board: b}
}

type listTasksResponse struct {
	Tasks []board.Task `json:"tasks"`
}

type moveTaskRequest struct {
	Column string `json:"column"`
}

// ServeHTTP routes:
//
//	GET    /api/tasks[?column=c]
//	POST   /api/tasks
//	GET    /api/tasks/{id}
//	PUT    /api/tasks/{id}
//	DELETE /api/tasks/{id}
//	POST   /api/tasks/{id}/move
func (h *TaskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/tasks")

	switch {
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}

	case len(parts) == 1:
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPut, http.MethodPatch:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}

	case len(parts) == 2 && parts[1] == "move":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.move(w, r, parts[0])

	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Stats handles GET /api/stats.
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.board.Stats(r.Context())
	if err != nil {
		h.fail(w, err, "Failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *TaskHandler) list(w http.ResponseWriter, r *http.Request) {
	var filter board.Column
	if c := r.URL.Query().Get("column"); c != "" {
		col, err := board.ParseColumn(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter = col
	}

	tasks, err := h.board.List(r.Context())
	if err != nil {
		h.fail(w, err, "Failed to list tasks")
		return
	}

	response := listTasksResponse{Tasks: make([]board.Task, 0, len(tasks))}
	for _, t := range tasks {
		if filter == "" || t.Column == filter {
			response.Tasks = append(response.Tasks, t)
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *TaskHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	task, err := h.board.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "Failed to get task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) create(w http.ResponseWriter, r *http.Request) {
	var req board.NewTask
	if !decode(w, r, &req) {
		return
	}

	task, err := h.board.Create(r.Context(), req)
	if err != nil {
		h.fail(w, err, "Failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var patch board.TaskPatch
	if !decode(w, r, &patch) {
		return
	}

	task, err := h.board.Update(r.Context(), id, patch)
	if err != nil {
		h.fail(w, err, "Failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.board.Delete(r.Context(), id); err != nil {
		h.fail(w, err, "Failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) move(w http.ResponseWriter, r *http.Request, id string) {
	var req moveTaskRequest
	if !decode(w, r, &req) {
		return
	}

	column, err := board.ParseColumn(req.Column)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.board.MoveTask(r.Context(), id, column); err != nil {
		h.fail(w, err, "Failed to move task")
		return
	}

	task, err := h.board.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "Failed to get task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// fail maps board errors to status codes.
func (h *TaskHandler) fail(w http.ResponseWriter, err error, message string) {
	switch {
	case board.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, board.ErrInvalidTask),
		errors.Is(err, board.ErrInvalidColumn),
		errors.Is(err, board.ErrInvalidPriority):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message)
	}
}
