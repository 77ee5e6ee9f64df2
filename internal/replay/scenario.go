// Package replay runs recorded or scripted hand-landmark scenarios through
// a headless interaction session. It is used to calibrate gesture
// thresholds without a camera.
package replay

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/diaz/kanban/internal/board"
	"github.com/diaz/kanban/internal/detector"
	"github.com/diaz/kanban/internal/gesture"
	"github.com/diaz/kanban/internal/interaction"
)

// DefaultInterval is the time between frames when a scenario does not set
// one, matching the camera's active rate.
const DefaultInterval = 66 * time.Millisecond

// ErrInvalidScenario is returned for scenarios that cannot be run.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a layout plus a timed sequence of hand frames.
type Scenario struct {
	Name     string                  `yaml:"name"`
	Interval time.Duration           `yaml:"interval"`
	Layout   interaction.LayoutState `yaml:"layout"`
	// Tasks seeds the board: task id to starting column.
	Tasks  map[string]board.Column `yaml:"tasks"`
	Frames []Frame                 `yaml:"frames"`
	Expect *Expectation            `yaml:"expect"`
}

// Frame is one scripted step. Either Pose (with At) or Landmarks is used;
// pose "none" or an empty frame means no hand.
type Frame struct {
	Pose gesture.Pose  `yaml:"pose"`
	At   gesture.Point `yaml:"at"`
	// Landmarks are raw normalized points as produced by a tracker.
	Landmarks []detector.Point3D `yaml:"landmarks"`
	// Repeat sends the frame this many times; zero means once.
	Repeat int `yaml:"repeat"`
	// Wait adds extra time before the frame.
	Wait time.Duration `yaml:"wait"`
}

// Expectation is what a scenario asserts about its outcome.
type Expectation struct {
	Activations []string `yaml:"activations"`
	Focuses     []string `yaml:"focuses"`
	Moves       []Move   `yaml:"moves"`
}

// Move is one committed drop.
type Move struct {
	TaskID string       `yaml:"task" json:"task_id"`
	Column board.Column `yaml:"column" json:"column"`
}

// Load decodes a YAML scenario.
func Load(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile reads a scenario from path.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Validate checks poses, landmark counts and seeded columns.
func (sc *Scenario) Validate() error {
	if len(sc.Frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrInvalidScenario)
	}
	if sc.Interval < 0 {
		return fmt.Errorf("%w: negative interval", ErrInvalidScenario)
	}
	for id, col := range sc.Tasks {
		if _, err := board.ParseColumn(string(col)); err != nil {
			return fmt.Errorf("%w: task %s: %v", ErrInvalidScenario, id, err)
		}
	}
	for i, f := range sc.Frames {
		if f.Repeat < 0 {
			return fmt.Errorf("%w: frame %d: negative repeat", ErrInvalidScenario, i)
		}
		if len(f.Landmarks) > 0 {
			if f.Pose != "" {
				return fmt.Errorf("%w: frame %d: pose and landmarks are exclusive", ErrInvalidScenario, i)
			}
			if _, err := detector.FromPoints(f.Landmarks); err != nil {
				return fmt.Errorf("%w: frame %d: %v", ErrInvalidScenario, i, err)
			}
			continue
		}
		if f.Pose == "" {
			continue
		}
		if _, err := gesture.ParsePose(string(f.Pose)); err != nil {
			return fmt.Errorf("%w: frame %d: %v", ErrInvalidScenario, i, err)
		}
	}
	return nil
}

func (sc *Scenario) interval() time.Duration {
	if sc.Interval == 0 {
		return DefaultInterval
	}
	return sc.Interval
}

// Hand returns the landmarks for f in a viewport, or nil for no hand.
func (f Frame) Hand(v gesture.Viewport) *detector.HandLandmarks {
	if len(f.Landmarks) > 0 {
		h, err := detector.FromPoints(f.Landmarks)
		if err != nil {
			return nil
		}
		return h
	}
	return Synthesize(f.Pose, f.At, v)
}

// Synthesize builds a hand in pose whose cursor reference lands on pixel at
// of viewport v. The x axis is mirrored the way the classifier expects a
// selfie camera.
func Synthesize(pose gesture.Pose, at gesture.Point, v gesture.Viewport) *detector.HandLandmarks {
	if v.Width <= 0 || v.Height <= 0 {
		return nil
	}
	nx, ny := 1-at.X/v.Width, at.Y/v.Height

	var h detector.HandLandmarks
	switch pose {
	case gesture.PosePointer:
		h = detector.PointerLandmarks().MoveTo(detector.IndexTip, nx, ny)
	case gesture.PoseFist:
		h = detector.FistLandmarks().MoveTo(detector.MiddleMCP, nx, ny)
	case gesture.PoseOpen:
		h = detector.OpenPalmLandmarks().MoveTo(detector.MiddleMCP, nx, ny)
	default:
		return nil
	}
	return &h
}
