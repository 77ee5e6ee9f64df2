// Package capture reads webcam frames with GoCV and holds the motion and
// frame-rate state the tracking pipeline runs on.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Frame rates of the tracking pipeline. Motion switches between them.
const (
	IdleFPS   = 5
	ActiveFPS = 15
)

// Default capture resolution. It matches the default gesture viewport so
// normalized landmarks map onto the same pixel space.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEmptyFrame is returned when the device produced no image.
	ErrEmptyFrame = errors.New("captured frame is empty")
)

// Config configures the capture device.
type Config struct {
	Enabled bool `mapstructure:"enabled"`
	Device  int  `mapstructure:"device"`
	Width   int  `mapstructure:"width"`
	Height  int  `mapstructure:"height"`
	// Mirror flips the preview stream horizontally. Tracking always sees
	// the unflipped frame; the classifier mirrors x itself.
	Mirror bool `mapstructure:"mirror"`
	// MotionThreshold is the percentage of changed pixels counted as motion.
	MotionThreshold float64 `mapstructure:"motion_threshold"`
	// IdleTimeout is how long without motion before dropping to IdleFPS.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// DefaultConfig returns the capture defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Device:          0,
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		Mirror:          true,
		MotionThreshold: 1.0,
		IdleTimeout:     2 * time.Second,
	}
}

// Camera is a frame source.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller closes the Mat.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

type webcam struct {
	cfg     Config
	capture *gocv.VideoCapture
	mu      sync.Mutex
	open    bool
	fps     int
}

// NewCamera creates a Camera for cfg.Device. It starts at IdleFPS.
func NewCamera(cfg Config) Camera {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = DefaultWidth, DefaultHeight
	}
	return &webcam{cfg: cfg, fps: IdleFPS}
}

func (c *webcam) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.cfg.Device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open camera %d: device unavailable", c.cfg.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = vc
	c.open = true
	return nil
}

func (c *webcam) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open || c.capture == nil {
		c.open = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.open = false
	return err
}

func (c *webcam) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}
	return &mat, nil
}

// SetFPS ignores values <= 0.
func (c *webcam) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *webcam) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *webcam) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}
