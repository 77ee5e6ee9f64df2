package gesture

import (
	"errors"
	"fmt"

	"github.com/diaz/kanban/internal/detector"
)

// Pose is the discrete hand shape derived from one frame.
type Pose string

const (
	// PoseNone means no hand was tracked this frame.
	PoseNone Pose = "none"
	// PosePointer is an extended index finger with middle and ring curled.
	PosePointer Pose = "pointer"
	// PoseFist is every fingertip folded towards the wrist.
	PoseFist Pose = "fist"
	// PoseOpen is any visible hand that is neither a clean point nor a fist.
	PoseOpen Pose = "open"
)

// ParsePose converts a pose name to a Pose.
func ParsePose(s string) (Pose, error) {
	switch p := Pose(s); p {
	case PoseNone, PosePointer, PoseFist, PoseOpen:
		return p, nil
	}
	return "", fmt.Errorf("unknown pose %q", s)
}

// Tracked reports whether a hand was visible.
func (p Pose) Tracked() bool { return p != PoseNone && p != "" }

// ErrMalformedFrame is returned for landmark frames that cannot be classified.
var ErrMalformedFrame = errors.New("malformed landmark frame")

// FingerDistances holds the wrist-to-fingertip distances used for
// classification, in normalized landmark units.
type FingerDistances struct {
	Index  float64 `json:"index"`
	Middle float64 `json:"middle"`
	Ring   float64 `json:"ring"`
}

// Reading is the classifier output for one frame.
type Reading struct {
	Pose      Pose
	Raw       Point
	Distances FingerDistances
}

// Classifier maps a landmark frame to a pose and a raw cursor position.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a Classifier using the thresholds and viewport in cfg.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// SetViewport changes the pixel space raw positions are scaled to.
func (c *Classifier) SetViewport(v Viewport) {
	c.cfg.Viewport = v
}

// Viewport returns the current pixel space.
func (c *Classifier) Viewport() Viewport {
	return c.cfg.Viewport
}

// Classify returns PoseNone for a nil hand. A hand with non-finite
// coordinates yields ErrMalformedFrame.
func (c *Classifier) Classify(hand *detector.HandLandmarks) (Reading, error) {
	if hand == nil {
		return Reading{Pose: PoseNone}, nil
	}
	if err := hand.Validate(); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	wrist := hand.Points[detector.Wrist]
	d := FingerDistances{
		Index:  detector.Distance2D(hand.Points[detector.IndexTip], wrist),
		Middle: detector.Distance2D(hand.Points[detector.MiddleTip], wrist),
		Ring:   detector.Distance2D(hand.Points[detector.RingTip], wrist),
	}

	pose := c.pose(d)

	// The fingertip tracks precisely while pointing; the middle knuckle is a
	// steadier centre for whole-hand gestures.
	ref := hand.Points[detector.MiddleMCP]
	if pose == PosePointer {
		ref = hand.Points[detector.IndexTip]
	}

	return Reading{
		Pose:      pose,
		Raw:       c.toViewport(ref),
		Distances: d,
	}, nil
}

func (c *Classifier) pose(d FingerDistances) Pose {
	if d.Index > c.cfg.PointerExtended && d.Middle < c.cfg.PointerCurled && d.Ring < c.cfg.PointerCurled {
		return PosePointer
	}
	if d.Index < c.cfg.FistCurled && d.Middle < c.cfg.FistCurled && d.Ring < c.cfg.FistCurled {
		return PoseFist
	}
	return PoseOpen
}

// toViewport mirrors x to match the selfie camera view and scales to pixels.
func (c *Classifier) toViewport(p detector.Point3D) Point {
	return Point{
		X: (1 - p.X) * c.cfg.Viewport.Width,
		Y: p.Y * c.cfg.Viewport.Height,
	}
}
