package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/diaz/kanban/internal/detector"
)

// runPipeline reads frames at the governor's rate until ctx is cancelled.
//
//  1. start at IdleFPS
//  2. motion switches to ActiveFPS; IdleTimeout without motion switches back
//  3. every frame is published for preview and run through the tracker
//  4. the first tracked hand (or none) goes to the session
func (a *App) runPipeline(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(a.governor.FPS()))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			frame, err := a.camera.ReadFrame()
			if err != nil {
				log.Debug().Err(err).Msg("error reading frame")
				continue
			}

			fps, changed := a.processFrame(ctx, frame, now)
			frame.Close()

			if changed {
				a.camera.SetFPS(fps)
				ticker.Reset(time.Second / time.Duration(fps))
				log.Debug().Int("fps", fps).Msg("pipeline frame rate changed")
			}
		}
	}
}

// processFrame runs one frame through motion, preview, tracking and the
// session. It returns the frame rate the pipeline should run at.
func (a *App) processFrame(ctx context.Context, frame *gocv.Mat, now time.Time) (int, bool) {
	motion, _ := a.motion.Detect(frame)
	fps, changed := a.governor.Observe(motion, now)

	if err := a.frames.Publish(frame); err != nil {
		log.Debug().Err(err).Msg("preview frame dropped")
	}

	hands, err := a.detector.Detect(frame)
	if err != nil {
		log.Warn().Err(err).Msg("hand tracking failed")
		return fps, changed
	}

	a.session.Process(ctx, detector.First(hands), now)
	return fps, changed
}
