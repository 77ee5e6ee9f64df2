package gesture

import (
	"errors"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero alpha", func(c *Config) { c.SmoothingAlpha = 0 }},
		{"alpha above one", func(c *Config) { c.SmoothingAlpha = 1.5 }},
		{"negative stillness", func(c *Config) { c.StillnessRadius = -1 }},
		{"zero dwell", func(c *Config) { c.DwellDuration = 0 }},
		{"zero capture radius", func(c *Config) { c.CaptureRadius = 0 }},
		{"zero pointer threshold", func(c *Config) { c.PointerExtended = 0 }},
		{"empty viewport", func(c *Config) { c.Viewport = Viewport{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestRect_Geometry(t *testing.T) {
	r := Rect{Left: 10, Top: 20, Width: 100, Height: 50}

	if c := r.Center(); c != (Point{X: 60, Y: 45}) {
		t.Errorf("Center() = %+v", c)
	}
	if !r.Contains(Point{X: 10, Y: 70}) {
		t.Error("expected corner to be contained")
	}
	if r.Contains(Point{X: 111, Y: 30}) {
		t.Error("expected point right of rect to be outside")
	}
	if !r.SpansX(110) || r.SpansX(9) {
		t.Error("SpansX edge handling wrong")
	}
}
