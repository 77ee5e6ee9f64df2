package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/diaz/kanban/internal/board"
	"github.com/diaz/kanban/internal/store"
)

// newTestBoard creates a Board over a temporary database.
func newTestBoard(t *testing.T) *board.Board {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return board.New(s.Tasks())
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeTask(t *testing.T, rec *httptest.ResponseRecorder) board.Task {
	t.Helper()
	var task board.Task
	if err := json.NewDecoder(rec.Body).Decode(&task); err != nil {
		t.Fatalf("failed to decode task: %v", err)
	}
	return task
}

func TestTaskHandler_CreateAndGet(t *testing.T) {
	h := NewTaskHandler(newTestBoard(t))

	rec := do(t, h, http.MethodPost, "/api/tasks", `{"title":"Write docs","priority":"high","column":"progress"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	created := decodeTask(t, rec)
	if created.ID == "" || created.Progress != 50 || created.Priority != board.PriorityHigh {
		t.Errorf("unexpected task %+v", created)
	}

	rec = do(t, h, http.MethodGet, "/api/tasks/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got := decodeTask(t, rec); got.Title != "Write docs" {
		t.Errorf("expected title 'Write docs', got %q", got.Title)
	}
}

func TestTaskHandler_CreateValidation(t *testing.T) {
	h := NewTaskHandler(newTestBoard(t))

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"title":`},
		{"missing title", `{"priority":"low"}`},
		{"bad priority", `{"title":"x","priority":"urgent"}`},
		{"bad column", `{"title":"x","column":"archive"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/tasks", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
			var resp errorResponse
			json.NewDecoder(rec.Body).Decode(&resp)
			if resp.Error == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestTaskHandler_ListFilter(t *testing.T) {
	h := NewTaskHandler(newTestBoard(t))

	do(t, h, http.MethodPost, "/api/tasks", `{"title":"a"}`)
	do(t, h, http.MethodPost, "/api/tasks", `{"title":"b","column":"done"}`)

	rec := do(t, h, http.MethodGet, "/api/tasks", "")
	var all listTasksResponse
	json.NewDecoder(rec.Body).Decode(&all)
	if len(all.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(all.Tasks))
	}

	rec = do(t, h, http.MethodGet, "/api/tasks?column=done", "")
	var done listTasksResponse
	json.NewDecoder(rec.Body).Decode(&done)
	if len(done.Tasks) != 1 || done.Tasks[0].Title != "b" {
		t.Errorf("expected only b, got %+v", done.Tasks)
	}

	rec = do(t, h, http.MethodGet, "/api/tasks?column=later", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d for bad filter, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestTaskHandler_Empty(t *testing.T) {
	h := NewTaskHandler(newTestBoard(t))

	rec := do(t, h, http.MethodGet, "/api/tasks", "")
	if body := rec.Body.String(); body != "{\"tasks\":[]}\n" {
		t.Errorf("expected empty array, got %q", body)
	}
}

func TestTaskHandler_UpdateAndDelete(t *testing.T) {
	h := NewTaskHandler(newTestBoard(t))
	created := decodeTask(t, do(t, h, http.MethodPost, "/api/tasks", `{"title":"a"}`))

	rec := do(t, h, http.MethodPut, "/api/tasks/"+created.ID, `{"title":"renamed","progress":30}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}
	if got := decodeTask(t, rec); got.Title != "renamed" || got.Progress != 30 {
		t.Errorf("unexpected task %+v", got)
	}

	rec = do(t, h, http.MethodPut, "/api/tasks/"+created.ID, `{"progress":130}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d for progress 130, got %d", http.StatusBadRequest, rec.Code)
	}

	rec = do(t, h, http.MethodDelete, "/api/tasks/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = do(t, h, method, "/api/tasks/"+created.ID, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s after delete: expected status %d, got %d", method, http.StatusNotFound, rec.Code)
		}
	}
}

func TestTaskHandler_Move(t *testing.T) {
	h := NewTaskHandler(newTestBoard(t))
	created := decodeTask(t, do(t, h, http.MethodPost, "/api/tasks", `{"title":"a"}`))

	rec := do(t, h, http.MethodPost, "/api/tasks/"+created.ID+"/move", `{"column":"done"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}
	if got := decodeTask(t, rec); got.Column != board.ColumnDone || got.Progress != 100 {
		t.Errorf("unexpected task after move %+v", got)
	}

	rec = do(t, h, http.MethodPost, "/api/tasks/"+created.ID+"/move", `{"column":"nowhere"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/tasks/missing/move", `{"column":"done"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/tasks/"+created.ID+"/move", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestTaskHandler_Stats(t *testing.T) {
	b := newTestBoard(t)
	h := NewTaskHandler(b)

	do(t, h, http.MethodPost, "/api/tasks", `{"title":"a"}`)
	do(t, h, http.MethodPost, "/api/tasks", `{"title":"b","column":"done"}`)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var stats board.Stats
	json.NewDecoder(rec.Body).Decode(&stats)
	if stats.Total != 2 || stats.Pending != 1 || stats.Completed != 1 || stats.Progress != 50 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestTaskHandler_UnknownPath(t *testing.T) {
	h := NewTaskHandler(newTestBoard(t))

	rec := do(t, h, http.MethodGet, "/api/tasks/a/b/c", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}
