package interaction

import (
	"time"

	"github.com/diaz/kanban/internal/gesture"
)

// Snapshot is the read-only interaction state after one processed frame.
// The overlay renders from it.
type Snapshot struct {
	Seq       uint64        `json:"seq"`
	Timestamp time.Time     `json:"timestamp"`
	Tracking  bool          `json:"tracking"`
	Pose      gesture.Pose  `json:"pose"`
	Cursor    gesture.Point `json:"cursor"`
	Raw       gesture.Point `json:"raw"`

	// Target is the interactive element under a still pointer.
	Target        string  `json:"target,omitempty"`
	DwellProgress float64 `json:"dwell_progress"`

	Highlighted string `json:"highlighted,omitempty"`
	Grabbed     string `json:"grabbed,omitempty"`
	Hovered     string `json:"hovered,omitempty"`
}

// EventType names a side effect produced by a frame.
type EventType string

const (
	// EventAck is the visual acknowledgement of a completed dwell, sent
	// whether or not anything was under the cursor.
	EventAck EventType = "ack"
	// EventActivate means an element was clicked.
	EventActivate EventType = "activate"
	// EventDrop means a grabbed card was released over a column.
	EventDrop EventType = "drop"
)

// Event is a discrete side effect of one frame.
type Event struct {
	Type      EventType     `json:"type"`
	At        gesture.Point `json:"at"`
	ElementID string        `json:"element_id,omitempty"`
	TaskID    string        `json:"task_id,omitempty"`
	Column    string        `json:"column,omitempty"`
}

// Update is what subscribers receive per processed frame.
type Update struct {
	Snapshot Snapshot `json:"snapshot"`
	Events   []Event  `json:"events,omitempty"`
}
