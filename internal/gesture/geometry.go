// Package gesture turns per-frame hand landmarks into pointer-style UI
// interactions: pose classification, cursor smoothing, dwell clicks and
// grab-and-drop of task cards.
package gesture

import "math"

// Point is a position in viewport pixels.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// DistanceTo returns the Euclidean distance between p and q.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rect is an axis-aligned box in viewport pixels.
type Rect struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Center returns the centre of the box.
func (r Rect) Center() Point {
	return Point{X: r.Left + r.Width/2, Y: r.Top + r.Height/2}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right() && p.Y >= r.Top && p.Y <= r.Bottom()
}

// SpansX reports whether x lies within the horizontal extent of r.
func (r Rect) SpansX(x float64) bool {
	return x >= r.Left && x <= r.Right()
}

// ElementKind classifies an on-screen element for dwell targeting.
type ElementKind string

const (
	KindButton   ElementKind = "button"
	KindInput    ElementKind = "input"
	KindTextArea ElementKind = "textarea"
	KindLink     ElementKind = "link"
	KindOther    ElementKind = "other"
)

// Element is a hit-testable UI element reported by the surface.
type Element struct {
	ID   string      `json:"id" yaml:"id"`
	Kind ElementKind `json:"kind" yaml:"kind"`
	Rect Rect        `json:"rect" yaml:"rect"`
	Z    int         `json:"z,omitempty" yaml:"z,omitempty"`
}

// Interactive reports whether the element is button-, input- or link-like.
func (e Element) Interactive() bool {
	switch e.Kind {
	case KindButton, KindInput, KindTextArea, KindLink:
		return true
	}
	return false
}

// AcceptsText reports whether activating the element should also focus it.
func (e Element) AcceptsText() bool {
	return e.Kind == KindInput || e.Kind == KindTextArea
}

// Card is a rendered task card.
type Card struct {
	TaskID string `json:"task_id" yaml:"task_id"`
	Rect   Rect   `json:"rect" yaml:"rect"`
}

// ColumnRect is the on-screen extent of a board column.
type ColumnRect struct {
	Column string `json:"column" yaml:"column"`
	Rect   Rect   `json:"rect" yaml:"rect"`
}

// ElementLocator finds the topmost element at a viewport position.
type ElementLocator interface {
	ElementAt(p Point) (Element, bool)
}

// Layout exposes the currently rendered cards and columns.
type Layout interface {
	Cards() []Card
	Columns() []ColumnRect
}
