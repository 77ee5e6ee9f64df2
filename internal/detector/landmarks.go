// Package detector provides hand tracking interfaces and landmark types.
package detector

import (
	"errors"
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// ErrInvalidLandmarks is returned when a landmark set cannot be used.
var ErrInvalidLandmarks = errors.New("invalid hand landmarks")

// Point3D is a normalized landmark coordinate. X and Y are in [0,1] of the
// camera image; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks of one tracked hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Distance2D is the planar Euclidean distance between two landmarks.
// Depth is ignored: the camera z estimate is too noisy for pose decisions.
func Distance2D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Validate reports an error when any coordinate is NaN or infinite.
func (h *HandLandmarks) Validate() error {
	if h == nil {
		return nil
	}
	for i, p := range h.Points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return fmt.Errorf("%w: landmark %d is not finite", ErrInvalidLandmarks, i)
		}
	}
	return nil
}

// FromPoints builds a HandLandmarks from a flat list of points as delivered
// by trackers that serialize landmarks as arrays.
func FromPoints(points []Point3D) (*HandLandmarks, error) {
	if len(points) != NumLandmarks {
		return nil, fmt.Errorf("%w: got %d points, want %d", ErrInvalidLandmarks, len(points), NumLandmarks)
	}
	h := &HandLandmarks{}
	copy(h.Points[:], points)
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// MoveTo returns a copy of the hand translated so that landmark ref sits at
// (x, y). Relative finger geometry is preserved.
func (h HandLandmarks) MoveTo(ref int, x, y float64) HandLandmarks {
	dx := x - h.Points[ref].X
	dy := y - h.Points[ref].Y
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
