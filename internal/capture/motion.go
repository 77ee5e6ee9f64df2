package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// blurKernel is the Gaussian blur kernel size applied before differencing.
	blurKernel = 21
	// diffThreshold is the per-pixel intensity change counted as motion.
	diffThreshold = 25
)

// MotionDetector reports whether consecutive frames differ by more than a
// percentage of pixels.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewMotionDetector creates a detector. threshold is a percentage: 1.0
// means 1% of the pixels must change.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = DefaultConfig().MotionThreshold
	}
	return &MotionDetector{threshold: threshold, prev: gocv.NewMat()}
}

// Detect compares frame against the previous one and returns whether motion
// was seen and the changed-pixel percentage. The first frame only primes the
// baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurKernel, Y: blurKernel}, 0, 0, gocv.BorderDefault)

	if !m.primed || m.prev.Rows() != blurred.Rows() || m.prev.Cols() != blurred.Cols() {
		blurred.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, diffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100
	blurred.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Reset drops the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases the baseline Mat.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prev.Empty() {
		m.prev.Close()
		m.prev = gocv.NewMat()
	}
	m.primed = false
}

// SetThreshold ignores values <= 0.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// RateGovernor picks the pipeline frame rate from motion: ActiveFPS as soon
// as motion is seen, back to IdleFPS after idleTimeout without motion.
type RateGovernor struct {
	idleTimeout time.Duration
	active      bool
	lastMotion  time.Time
}

// NewRateGovernor starts idle.
func NewRateGovernor(idleTimeout time.Duration) *RateGovernor {
	return &RateGovernor{idleTimeout: idleTimeout}
}

// Observe records one motion result and returns the frame rate to run at
// and whether it changed on this call.
func (g *RateGovernor) Observe(motion bool, now time.Time) (int, bool) {
	switch {
	case motion:
		g.lastMotion = now
		if !g.active {
			g.active = true
			return ActiveFPS, true
		}
	case g.active && now.Sub(g.lastMotion) > g.idleTimeout:
		g.active = false
		return IdleFPS, true
	}
	return g.FPS(), false
}

// Active reports whether the governor is at ActiveFPS.
func (g *RateGovernor) Active() bool { return g.active }

// FPS returns the current frame rate.
func (g *RateGovernor) FPS() int {
	if g.active {
		return ActiveFPS
	}
	return IdleFPS
}

// Reset returns to idle.
func (g *RateGovernor) Reset() {
	g.active = false
	g.lastMotion = time.Time{}
}
