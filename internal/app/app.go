// Package app runs the server-side camera pipeline that feeds hand frames
// into an interaction session.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/diaz/kanban/internal/capture"
	"github.com/diaz/kanban/internal/detector"
	"github.com/diaz/kanban/internal/interaction"
)

// ErrNoTracker is returned by Start when no hand tracker is available.
var ErrNoTracker = errors.New("hand tracker unavailable")

// Config configures the camera pipeline.
type Config struct {
	Camera  capture.Config
	Tracker detector.Config
}

// App owns the camera, motion detector and hand tracker. Frames go through
// the tracker into the session; the latest frame is kept for preview.
type App struct {
	config   Config
	session  *interaction.Session
	camera   capture.Camera
	motion   *capture.MotionDetector
	governor *capture.RateGovernor
	detector detector.Detector
	frames   *capture.FrameBuffer

	mu     sync.RWMutex
	cancel context.CancelFunc
	done   chan struct{}
	detach func()
}

// New creates an App feeding session. The MediaPipe tracker is used when
// its script can be found; otherwise Start fails until SetDetector is
// called.
func New(config Config, session *interaction.Session) *App {
	a := &App{
		config:   config,
		session:  session,
		camera:   capture.NewCamera(config.Camera),
		motion:   capture.NewMotionDetector(config.Camera.MotionThreshold),
		governor: capture.NewRateGovernor(config.Camera.IdleTimeout),
		frames:   capture.NewFrameBuffer(config.Camera.Mirror),
	}

	if mp, err := detector.NewMediaPipeDetector(config.Tracker); err == nil {
		a.detector = mp
		log.Info().Msg("using MediaPipe hand tracking")
	} else {
		log.Warn().Err(err).Msg("MediaPipe not available, hands-free camera mode disabled")
	}

	return a
}

// SetDetector replaces the hand tracker. Only call while stopped.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the frame source. Only call while stopped.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// Start opens the camera and begins processing frames. It is a no-op when
// already running. It fails with interaction.ErrFeedBusy while another
// hand feed owns the session.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return nil
	}
	if a.detector == nil {
		return ErrNoTracker
	}
	detach, err := a.session.Attach("camera")
	if err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	if err := a.camera.Open(); err != nil {
		detach()
		return fmt.Errorf("start pipeline: %w", err)
	}
	a.detach = detach

	a.governor.Reset()
	a.motion.Reset()
	a.camera.SetFPS(a.governor.FPS())

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.runPipeline(ctx, a.done)

	log.Info().Msg("hands-free pipeline started")
	return nil
}

// Stop halts the pipeline and releases the camera, the motion baseline and
// the tracker. Teardown errors are logged.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel == nil {
		return
	}
	a.cancel()
	<-a.done
	a.cancel = nil
	a.done = nil

	// The hand is gone with the camera: drop any grab or dwell in progress.
	a.detach()
	a.detach = nil

	if err := a.camera.Close(); err != nil {
		log.Error().Err(err).Msg("error closing camera")
	}
	a.motion.Reset()
	if err := a.detector.Close(); err != nil {
		log.Error().Err(err).Msg("error closing hand tracker")
	}

	log.Info().Msg("hands-free pipeline stopped")
}

// Close stops the pipeline and frees the motion detector for good.
func (a *App) Close() {
	a.Stop()
	a.motion.Close()
}

// Running reports whether the pipeline is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cancel != nil
}

// Available reports whether a tracker is configured.
func (a *App) Available() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector != nil
}

// Frames returns the preview frame buffer.
func (a *App) Frames() *capture.FrameBuffer {
	return a.frames
}

// Camera returns the frame source.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}
