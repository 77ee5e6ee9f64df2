package gesture

// Smoother low-pass filters raw cursor positions with an exponential moving
// average. It is never reset on pose changes or tracking gaps, so a hand
// re-acquired in the same place does not make the cursor jump.
type Smoother struct {
	alpha  float64
	raw    Point
	smooth Point
	seeded bool
}

// NewSmoother creates a Smoother with gain alpha per update.
func NewSmoother(alpha float64) *Smoother {
	return &Smoother{alpha: alpha}
}

// Update feeds one raw position and returns the smoothed position. The
// first observation seeds the filter.
func (s *Smoother) Update(raw Point) Point {
	s.raw = raw
	if !s.seeded {
		s.smooth = raw
		s.seeded = true
		return s.smooth
	}
	s.smooth.X += (raw.X - s.smooth.X) * s.alpha
	s.smooth.Y += (raw.Y - s.smooth.Y) * s.alpha
	return s.smooth
}

// Position returns the current smoothed position.
func (s *Smoother) Position() Point { return s.smooth }

// Raw returns the last raw position fed to Update.
func (s *Smoother) Raw() Point { return s.raw }

// Seeded reports whether at least one position has been observed.
func (s *Smoother) Seeded() bool { return s.seeded }
