package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/diaz/kanban/internal/board"
	"github.com/diaz/kanban/internal/detector"
	"github.com/diaz/kanban/internal/gesture"
	"github.com/diaz/kanban/internal/interaction"
	"github.com/diaz/kanban/internal/store"
)

type testEnv struct {
	ts      *httptest.Server
	board   *board.Board
	session *interaction.Session
	surface *LayoutSurface
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	b := board.New(db.Tasks())
	surface := NewLayoutSurface()
	session := interaction.NewSession(gesture.DefaultConfig(), surface, b)
	t.Cleanup(session.Close)

	ts := httptest.NewServer(New(Config{Board: b, Session: session, Surface: surface}))
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, board: b, session: session, surface: surface}
}

func (e *testEnv) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// handAt returns a hand in pose whose cursor reference maps to pixel (x, y)
// in a 1280x720 viewport.
func handAt(pose gesture.Pose, x, y float64) detector.WireHand {
	nx, ny := 1-x/1280, y/720

	var h detector.HandLandmarks
	switch pose {
	case gesture.PosePointer:
		h = detector.PointerLandmarks().MoveTo(detector.IndexTip, nx, ny)
	case gesture.PoseFist:
		h = detector.FistLandmarks().MoveTo(detector.MiddleMCP, nx, ny)
	default:
		h = detector.OpenPalmLandmarks().MoveTo(detector.MiddleMCP, nx, ny)
	}
	return detector.WireHand{Points: h.Points[:], Handedness: h.Handedness, Score: h.Score}
}

func sendHand(t *testing.T, conn *websocket.Conn, hand detector.WireHand, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		if err := conn.WriteJSON(handsMessage{Hands: []detector.WireHand{hand}}); err != nil {
			t.Fatalf("write hands frame: %v", err)
		}
		// paced so overlay subscribers keep up
		time.Sleep(2 * time.Millisecond)
	}
}

func boardLayout(taskID string) map[string]any {
	return map[string]any{
		"type":     "layout",
		"viewport": gesture.Viewport{Width: 1280, Height: 720},
		"elements": []gesture.Element{
			{ID: "add-task", Kind: gesture.KindButton, Rect: gesture.Rect{Left: 1100, Top: 20, Width: 120, Height: 40}},
		},
		"cards": []gesture.Card{
			{TaskID: taskID, Rect: gesture.Rect{Left: 100, Top: 150, Width: 200, Height: 100}},
		},
		"columns": []gesture.ColumnRect{
			{Column: "pending", Rect: gesture.Rect{Left: 0, Top: 0, Width: 400, Height: 720}},
			{Column: "progress", Rect: gesture.Rect{Left: 420, Top: 0, Width: 400, Height: 720}},
			{Column: "done", Rect: gesture.Rect{Left: 840, Top: 0, Width: 400, Height: 720}},
		},
	}
}

func TestAPI_TaskWorkflow(t *testing.T) {
	env := newTestEnv(t)
	client := env.ts.Client()

	// 1. Create a task
	resp, err := client.Post(env.ts.URL+"/api/tasks", "application/json",
		bytes.NewBufferString(`{"title": "Write release notes", "priority": "high"}`))
	if err != nil {
		t.Fatalf("POST /api/tasks error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created board.Task
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	if created.Column != board.ColumnPending || created.Progress != 0 {
		t.Errorf("unexpected defaults %+v", created)
	}

	// 2. Move it to done
	resp, err = client.Post(env.ts.URL+"/api/tasks/"+created.ID+"/move", "application/json",
		bytes.NewBufferString(`{"column": "done"}`))
	if err != nil {
		t.Fatalf("POST move error = %v", err)
	}
	var moved board.Task
	json.NewDecoder(resp.Body).Decode(&moved)
	resp.Body.Close()

	if moved.Column != board.ColumnDone || moved.Progress != 100 {
		t.Errorf("unexpected moved task %+v", moved)
	}

	// 3. Stats reflect the move
	resp, _ = client.Get(env.ts.URL + "/api/stats")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/stats status = %d", resp.StatusCode)
	}
	var stats board.Stats
	json.NewDecoder(resp.Body).Decode(&stats)
	resp.Body.Close()

	if stats.Total != 1 || stats.Completed != 1 || stats.Progress != 100 {
		t.Errorf("unexpected stats %+v", stats)
	}

	// 4. Delete
	req, _ := http.NewRequest(http.MethodDelete, env.ts.URL+"/api/tasks/"+created.ID, nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	resp, _ = client.Get(env.ts.URL + "/api/tasks/" + created.ID)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}

func TestAPI_HandsFreeDragAndDrop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping websocket integration test in short mode")
	}

	env := newTestEnv(t)
	task, err := env.board.Create(t.Context(), board.NewTask{Title: "Deploy"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	events := env.dial(t, "/api/board/events")
	overlay := env.dial(t, "/api/overlay")

	var first overlayMessage
	if err := overlay.ReadJSON(&first); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if first.Type != "snapshot" || first.Snapshot == nil {
		t.Fatalf("expected initial snapshot, got %+v", first)
	}

	if err := overlay.WriteJSON(boardLayout(task.ID)); err != nil {
		t.Fatalf("write layout: %v", err)
	}
	waitFor(t, "layout", func() bool { return len(env.surface.Cards()) == 1 })

	hands := env.dial(t, "/api/hands")
	sendHand(t, hands, handAt(gesture.PoseOpen, 200, 200), 3)
	sendHand(t, hands, handAt(gesture.PoseFist, 200, 200), 2)
	sendHand(t, hands, handAt(gesture.PoseFist, 620, 300), 12)
	sendHand(t, hands, handAt(gesture.PoseOpen, 620, 300), 1)

	events.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var e board.Event
		if err := events.ReadJSON(&e); err != nil {
			t.Fatalf("waiting for task_moved: %v", err)
		}
		if e.Type == board.EventTaskMoved {
			if e.TaskID != task.ID {
				t.Errorf("moved task = %s, want %s", e.TaskID, task.ID)
			}
			break
		}
	}

	got, err := env.board.Get(t.Context(), task.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Column != board.ColumnProgress || got.Progress != 50 {
		t.Errorf("expected task in progress at 50%%, got %+v", got)
	}

	overlay.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg overlayMessage
		if err := overlay.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for drop event: %v", err)
		}
		if len(msg.Events) > 0 && msg.Events[0].Type == interaction.EventDrop {
			if msg.Events[0].Column != "progress" {
				t.Errorf("drop column = %s, want progress", msg.Events[0].Column)
			}
			break
		}
	}
}

func TestAPI_HandsSingleFeed(t *testing.T) {
	env := newTestEnv(t)

	task, err := env.board.Create(t.Context(), board.NewTask{Title: "Review"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	env.surface.SetLayout(interaction.LayoutState{
		Viewport: gesture.Viewport{Width: 1280, Height: 720},
		Cards:    []gesture.Card{{TaskID: task.ID, Rect: gesture.Rect{Left: 100, Top: 150, Width: 200, Height: 100}}},
		Columns: []gesture.ColumnRect{
			{Column: "pending", Rect: gesture.Rect{Left: 0, Top: 0, Width: 400, Height: 720}},
			{Column: "done", Rect: gesture.Rect{Left: 840, Top: 0, Width: 400, Height: 720}},
		},
	})

	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/api/hands"
	first := env.dial(t, "/api/hands")

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second hands socket should be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %+v", http.StatusConflict, resp)
	}

	sendHand(t, first, handAt(gesture.PoseOpen, 200, 200), 3)
	sendHand(t, first, handAt(gesture.PoseFist, 200, 200), 2)
	sendHand(t, first, handAt(gesture.PoseFist, 1000, 200), 12)
	waitFor(t, "hover over done", func() bool { return env.session.Snapshot().Hovered == "done" })

	// The tracker goes away mid-grab.
	first.Close()
	waitFor(t, "feed released", func() bool { return env.session.Feed() == "" })
	if snap := env.session.Snapshot(); snap.Grabbed != "" || snap.Tracking {
		t.Fatalf("grab must be dropped with the feed, got %+v", snap)
	}

	second := env.dial(t, "/api/hands")
	sendHand(t, second, handAt(gesture.PoseOpen, 1000, 200), 3)
	waitFor(t, "frames from the new feed", func() bool { return env.session.Snapshot().Pose == gesture.PoseOpen })

	got, err := env.board.Get(t.Context(), task.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Column != board.ColumnPending {
		t.Errorf("task moved without a release, now in %s", got.Column)
	}
}

func TestAPI_HandsSkipsMalformedFrames(t *testing.T) {
	env := newTestEnv(t)
	hands := env.dial(t, "/api/hands")

	hands.WriteMessage(websocket.TextMessage, []byte("{not json"))
	hands.WriteJSON(handsMessage{Hands: []detector.WireHand{{Points: make([]detector.Point3D, 3)}}})
	hands.WriteJSON(handsMessage{})

	waitFor(t, "processed frame", func() bool { return env.session.Stats().Processed == 1 })

	if snap := env.session.Snapshot(); snap.Tracking {
		t.Errorf("empty frame should report no tracking, got %+v", snap)
	}
}

func TestAPI_OverlayReceivesCommands(t *testing.T) {
	env := newTestEnv(t)
	overlay := env.dial(t, "/api/overlay")

	var first overlayMessage
	if err := overlay.ReadJSON(&first); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}

	env.surface.Focus(gesture.Element{ID: "title"})

	overlay.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg overlayMessage
	if err := overlay.ReadJSON(&msg); err != nil {
		t.Fatalf("read command: %v", err)
	}
	if msg.Type != "focus" || msg.ID != "title" {
		t.Errorf("unexpected command %+v", msg)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}
