package gesture

import "time"

// DwellResult is the outcome of one dwell tick.
type DwellResult struct {
	// Target is the interactive element under a still cursor, for
	// highlighting only. Empty when there is none.
	Target string
	// Progress is the fraction of the dwell window elapsed, in [0,1].
	Progress float64
	// Fired is set on the tick the dwell window completed.
	Fired bool
	// Activated is the element to click when Fired; nil when nothing was
	// under the cursor.
	Activated *Element
}

// DwellDetector turns sustained stillness of the pointer into clicks.
//
// It is IDLE until the first POINTER tick, which anchors a timer at the
// cursor. Moving beyond the stillness radius re-anchors. When the timer
// reaches the dwell duration one activation fires and the timer restarts
// at the same anchor, so holding still keeps clicking at the dwell
// interval. Any other pose returns it to IDLE without firing.
type DwellDetector struct {
	cfg        Config
	anchored   bool
	anchor     Point
	anchoredAt time.Time
	target     string
}

// NewDwellDetector creates an idle DwellDetector.
func NewDwellDetector(cfg Config) *DwellDetector {
	return &DwellDetector{cfg: cfg}
}

// Update advances the detector by one tick.
func (d *DwellDetector) Update(pose Pose, cursor Point, now time.Time, elements ElementLocator) DwellResult {
	if pose != PosePointer {
		d.Reset()
		return DwellResult{}
	}

	if !d.anchored || cursor.DistanceTo(d.anchor) > d.cfg.StillnessRadius {
		d.anchored = true
		d.anchor = cursor
		d.anchoredAt = now
		d.target = ""
		return DwellResult{}
	}

	el, found := Element{}, false
	if elements != nil {
		el, found = elements.ElementAt(cursor)
	}
	d.target = ""
	if found && el.Interactive() {
		d.target = el.ID
	}

	elapsed := now.Sub(d.anchoredAt)
	res := DwellResult{
		Target:   d.target,
		Progress: progress(elapsed, d.cfg.DwellDuration),
	}

	if elapsed >= d.cfg.DwellDuration {
		res.Fired = true
		if found {
			res.Activated = &el
		}
		d.anchoredAt = now
	}

	return res
}

// Reset clears the anchor and target. No activation fires.
func (d *DwellDetector) Reset() {
	d.anchored = false
	d.anchoredAt = time.Time{}
	d.target = ""
}

// Anchored reports whether the dwell timer is running.
func (d *DwellDetector) Anchored() bool { return d.anchored }

// Anchor returns the anchor position and time. Both are zero when idle.
func (d *DwellDetector) Anchor() (Point, time.Time) {
	if !d.anchored {
		return Point{}, time.Time{}
	}
	return d.anchor, d.anchoredAt
}

// Target returns the current highlight target.
func (d *DwellDetector) Target() string { return d.target }

func progress(elapsed, total time.Duration) float64 {
	if total <= 0 || elapsed >= total {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(elapsed) / float64(total)
}
