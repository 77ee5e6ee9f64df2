package interaction

import (
	"context"
	"sync"

	"github.com/diaz/kanban/internal/board"
	"github.com/diaz/kanban/internal/gesture"
)

// Board is the task board as seen by the grab controller.
type Board interface {
	// MoveTask moves a task to column; moving to the current column is a no-op.
	MoveTask(ctx context.Context, taskID string, column board.Column) error
}

// Surface is the rendered UI the cursor acts on.
type Surface interface {
	gesture.ElementLocator
	gesture.Layout
	// Activate performs a synthetic click on el.
	Activate(el gesture.Element)
	// Focus moves keyboard focus to el.
	Focus(el gesture.Element)
}

// LayoutState describes everything a surface renders that the interaction
// core can hit-test.
type LayoutState struct {
	Viewport gesture.Viewport     `json:"viewport" yaml:"viewport"`
	Elements []gesture.Element    `json:"elements" yaml:"elements"`
	Cards    []gesture.Card       `json:"cards" yaml:"cards"`
	Columns  []gesture.ColumnRect `json:"columns" yaml:"columns"`
}

// ElementAt returns the topmost element containing p: the highest Z, and
// among equal Z the one listed last.
func (l LayoutState) ElementAt(p gesture.Point) (gesture.Element, bool) {
	var best gesture.Element
	found := false
	for _, el := range l.Elements {
		if !el.Rect.Contains(p) {
			continue
		}
		if !found || el.Z >= best.Z {
			best = el
			found = true
		}
	}
	return best, found
}

// RecordingSurface is a Surface over a fixed layout that records the
// activations and focus changes it receives.
type RecordingSurface struct {
	mu          sync.Mutex
	layout      LayoutState
	activations []string
	focuses     []string
}

// NewRecordingSurface creates a RecordingSurface showing layout.
func NewRecordingSurface(layout LayoutState) *RecordingSurface {
	return &RecordingSurface{layout: layout}
}

// SetLayout replaces the rendered layout.
func (r *RecordingSurface) SetLayout(layout LayoutState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layout = layout
}

// Layout returns the rendered layout.
func (r *RecordingSurface) Layout() LayoutState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.layout
}

func (r *RecordingSurface) ElementAt(p gesture.Point) (gesture.Element, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.layout.ElementAt(p)
}

func (r *RecordingSurface) Cards() []gesture.Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.layout.Cards
}

func (r *RecordingSurface) Columns() []gesture.ColumnRect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.layout.Columns
}

func (r *RecordingSurface) Activate(el gesture.Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activations = append(r.activations, el.ID)
}

func (r *RecordingSurface) Focus(el gesture.Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focuses = append(r.focuses, el.ID)
}

// Activations returns the ids of activated elements in order.
func (r *RecordingSurface) Activations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.activations...)
}

// Focuses returns the ids of focused elements in order.
func (r *RecordingSurface) Focuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.focuses...)
}
