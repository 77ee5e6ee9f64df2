package gesture

import "math"

// Drop is a committed card move produced when a grab is released.
type Drop struct {
	TaskID string
	Column string
}

// GrabResult is the outcome of one grab tick.
type GrabResult struct {
	Highlighted string
	Grabbed     string
	Hovered     string
	// Drop is set on the tick a grab was released over a column.
	Drop *Drop
}

// GrabController moves task cards with an open-hand/fist gesture.
//
// While RELEASED with an open hand, the card nearest the cursor within the
// capture radius is highlighted. Closing the fist on a highlighted card
// grabs it. While GRABBED the column under the cursor x is tracked. The
// first tick the pose is no longer FIST releases the card. Opening the hand
// over a hovered column produces exactly one Drop; switching to POINTER or
// losing the hand discards the grab without a Drop.
type GrabController struct {
	cfg         Config
	highlighted string
	grabbed     string
	hovered     string
}

// NewGrabController creates a released GrabController.
func NewGrabController(cfg Config) *GrabController {
	return &GrabController{cfg: cfg}
}

// Update advances the controller by one tick.
func (g *GrabController) Update(pose Pose, cursor Point, layout Layout) GrabResult {
	if !pose.Tracked() {
		g.Reset()
		return GrabResult{}
	}

	var drop *Drop
	if g.grabbed != "" && pose != PoseFist {
		// Switching to a pointer abandons the card; only an open hand drops it.
		if pose == PoseOpen && g.hovered != "" {
			drop = &Drop{TaskID: g.grabbed, Column: g.hovered}
		}
		g.grabbed = ""
		g.hovered = ""
	}

	switch pose {
	case PoseOpen:
		g.highlighted = nearestCard(cursor, layout, g.cfg.CaptureRadius)
	case PoseFist:
		if g.grabbed == "" && g.highlighted != "" {
			g.grabbed = g.highlighted
			g.highlighted = ""
		}
	case PosePointer:
		g.highlighted = ""
	}

	if g.grabbed != "" {
		g.hovered = columnAt(cursor.X, layout)
	}

	return GrabResult{
		Highlighted: g.highlighted,
		Grabbed:     g.grabbed,
		Hovered:     g.hovered,
		Drop:        drop,
	}
}

// Reset discards highlight, grab and hovered column without a Drop.
func (g *GrabController) Reset() {
	g.highlighted = ""
	g.grabbed = ""
	g.hovered = ""
}

// Grabbed returns the grabbed task id, or "" when released.
func (g *GrabController) Grabbed() string { return g.grabbed }

// Highlighted returns the highlighted task id.
func (g *GrabController) Highlighted() string { return g.highlighted }

// Hovered returns the column under a grabbed card.
func (g *GrabController) Hovered() string { return g.hovered }

func nearestCard(cursor Point, layout Layout, radius float64) string {
	if layout == nil {
		return ""
	}
	nearest := ""
	best := math.Inf(1)
	for _, c := range layout.Cards() {
		d := cursor.DistanceTo(c.Rect.Center())
		if d < radius && d < best {
			best = d
			nearest = c.TaskID
		}
	}
	return nearest
}

// columnAt ignores y. When column rects overlap, the last one wins.
func columnAt(x float64, layout Layout) string {
	if layout == nil {
		return ""
	}
	hovered := ""
	for _, c := range layout.Columns() {
		if c.Rect.SpansX(x) {
			hovered = c.Column
		}
	}
	return hovered
}
