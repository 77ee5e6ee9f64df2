package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/diaz/kanban/internal/board"
)

func TestPlugin_Notify_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("notify plugin is built for macOS and Linux")
	}

	// Needs `go build -o plugins/notify/notify ./plugins/notify` first.
	pluginDir := findPluginDir("notify")
	if pluginDir == "" {
		t.Skip("notify plugin not built")
	}

	mgr := NewManager(filepath.Dir(pluginDir))
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plug, err := mgr.Get("notify")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !plug.Handles(board.EventCelebrate) || plug.Handles(board.EventTaskDeleted) {
		t.Errorf("unexpected event subscription %v", plug.Manifest.Events)
	}

	req := NewRequest(plug, board.Event{
		Type:   board.EventTaskMoved,
		TaskID: "t-1",
		Data:   board.Task{ID: "t-1", Title: "Ship", Column: board.ColumnDone},
	})
	req.Config = json.RawMessage(`{"title":"Test","dry_run":true}`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plug, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got %q", resp.Error)
	}

	var data map[string]string
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal data: %v", err)
	}
	if data["body"] != "Ship moved to Done" {
		t.Errorf("unexpected body %q", data["body"])
	}
}

func findPluginDir(name string) string {
	candidates := []string{
		filepath.Join("../../plugins", name),
		filepath.Join("../../../plugins", name),
	}

	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return dir
		}
	}
	return ""
}
