package gesture

import (
	"errors"
	"fmt"
	"time"
)

// Viewport is the size of the surface the cursor is mapped onto, in pixels.
type Viewport struct {
	Width  float64 `json:"width" yaml:"width" mapstructure:"width"`
	Height float64 `json:"height" yaml:"height" mapstructure:"height"`
}

// Config holds the tunable thresholds of the interaction core. None of
// them has a formal derivation; they are calibration values.
type Config struct {
	// PointerExtended is the minimum wrist-to-index-tip distance for POINTER.
	PointerExtended float64 `mapstructure:"pointer_extended"`
	// PointerCurled is the maximum wrist-to-middle/ring-tip distance for POINTER.
	PointerCurled float64 `mapstructure:"pointer_curled"`
	// FistCurled is the maximum wrist-to-fingertip distance for FIST.
	FistCurled float64 `mapstructure:"fist_curled"`

	// SmoothingAlpha is the exponential smoothing gain per tick (0,1].
	SmoothingAlpha float64 `mapstructure:"smoothing_alpha"`

	// StillnessRadius is how far in pixels the cursor may drift before the
	// dwell timer re-anchors.
	StillnessRadius float64 `mapstructure:"stillness_radius"`
	// DwellDuration is how long the cursor must stay still to click.
	DwellDuration time.Duration `mapstructure:"dwell_duration"`

	// CaptureRadius is the maximum cursor-to-card-centre distance in pixels
	// for a card to be highlighted.
	CaptureRadius float64 `mapstructure:"capture_radius"`

	Viewport Viewport `mapstructure:"viewport"`
}

// DefaultConfig returns the calibration the board ships with.
func DefaultConfig() Config {
	return Config{
		PointerExtended: 0.18,
		PointerCurled:   0.20,
		FistCurled:      0.15,
		SmoothingAlpha:  0.4,
		StillnessRadius: 35,
		DwellDuration:   500 * time.Millisecond,
		CaptureRadius:   300,
		Viewport:        Viewport{Width: 1280, Height: 720},
	}
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid gesture config")

// Validate checks that every threshold is usable.
func (c Config) Validate() error {
	switch {
	case c.PointerExtended <= 0 || c.PointerCurled <= 0 || c.FistCurled <= 0:
		return fmt.Errorf("%w: finger distance thresholds must be positive", ErrInvalidConfig)
	case c.SmoothingAlpha <= 0 || c.SmoothingAlpha > 1:
		return fmt.Errorf("%w: smoothing alpha %v not in (0,1]", ErrInvalidConfig, c.SmoothingAlpha)
	case c.StillnessRadius < 0:
		return fmt.Errorf("%w: stillness radius must not be negative", ErrInvalidConfig)
	case c.DwellDuration <= 0:
		return fmt.Errorf("%w: dwell duration must be positive", ErrInvalidConfig)
	case c.CaptureRadius <= 0:
		return fmt.Errorf("%w: capture radius must be positive", ErrInvalidConfig)
	case c.Viewport.Width <= 0 || c.Viewport.Height <= 0:
		return fmt.Errorf("%w: viewport %vx%v", ErrInvalidConfig, c.Viewport.Width, c.Viewport.Height)
	}
	return nil
}
