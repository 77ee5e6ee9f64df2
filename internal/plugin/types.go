// Package plugin runs external executables in response to board events,
// e.g. to post a notification when a task reaches done.
package plugin

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/diaz/kanban/internal/board"
)

// Config locates plugins and bounds their run time.
type Config struct {
	Dir     string        `mapstructure:"dir"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultTimeout bounds a single plugin run.
const DefaultTimeout = 5 * time.Second

// Manifest describes a plugin's metadata and the board events it handles.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`
	// Events lists the board event types delivered to the plugin; empty
	// means all of them.
	Events []board.EventType `json:"events"`
	// Config is passed through to every request unchanged.
	Config json.RawMessage `json:"config,omitempty"`
}

// Request is written to a plugin's stdin as JSON.
type Request struct {
	Event  board.EventType `json:"event"`
	TaskID string          `json:"task_id"`
	Data   any             `json:"data,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

// NewRequest builds the request for e addressed to p.
func NewRequest(p *Plugin, e board.Event) *Request {
	return &Request{Event: e.Type, TaskID: e.TaskID, Data: e.Data, Config: p.Manifest.Config}
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the plugin subscribed to events of type t.
func (p *Plugin) Handles(t board.EventType) bool {
	return len(p.Manifest.Events) == 0 || slices.Contains(p.Manifest.Events, t)
}
