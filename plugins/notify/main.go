// Package main provides a desktop notification plugin for board events.
// It uses osascript on macOS and notify-send on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event  string          `json:"event"`
	TaskID string          `json:"task_id"`
	Data   json.RawMessage `json:"data"`
	Config json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type settings struct {
	Title string `json:"title"`
	// DryRun reports the notification instead of showing it.
	DryRun bool `json:"dry_run"`
}

type task struct {
	Title  string `json:"title"`
	Column string `json:"column"`
}

var columnLabels = map[string]string{
	"pending":  "Pending",
	"progress": "In progress",
	"done":     "Done",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	cfg := settings{Title: "Kanban"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	body, ok := message(req)
	if !ok {
		writeSuccessResponse(nil)
		return
	}

	if !cfg.DryRun {
		if err := notify(cfg.Title, body); err != nil {
			writeErrorResponse(fmt.Sprintf("notify failed: %v", err))
			return
		}
	}

	data, _ := json.Marshal(map[string]string{"title": cfg.Title, "body": body})
	writeSuccessResponse(data)
}

// message renders the notification body for events worth a notification.
func message(req Request) (string, bool) {
	var t task
	if len(req.Data) > 0 {
		_ = json.Unmarshal(req.Data, &t)
	}
	name := t.Title
	if name == "" {
		name = "Task " + req.TaskID
	}

	switch req.Event {
	case "celebrate":
		return name + " is done 🎉", true
	case "task_moved":
		label, ok := columnLabels[t.Column]
		if !ok {
			label = t.Column
		}
		return name + " moved to " + label, true
	case "task_created":
		return "New task: " + name, true
	}
	return "", false
}

func notify(title, body string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("osascript", "-e", fmt.Sprintf("display notification %q with title %q", body, title))
	case "linux":
		cmd = exec.Command("notify-send", title, body)
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(data json.RawMessage) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}
