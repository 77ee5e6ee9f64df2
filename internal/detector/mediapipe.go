package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// IdleShutdown is how long the tracker process may sit unused before it is
// stopped. It is restarted lazily on the next frame.
const IdleShutdown = 30 * time.Second

const trackerScript = "hand_tracker.py"

// ErrTrackerNotFound is returned when the MediaPipe tracker script is missing.
var ErrTrackerNotFound = errors.New("hand tracker script not found")

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Frames are written to the process stdin as a 4-byte big-endian length
// followed by a JPEG payload; the process answers with one JSON line per
// frame: {"hands": [{"points": [...], "handedness": "...", "score": ...}]}.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	// command overrides the python invocation.
	command   []string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := findTrackerScript()
	if scriptPath == "" {
		return nil, ErrTrackerNotFound
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// Detect analyzes a frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exchange(buf.GetBytes())
}

// exchange sends one encoded frame to the tracker and reads its answer.
// A broken pipe stops the process; the next frame starts a new one.
func (d *MediaPipeDetector) exchange(data []byte) ([]HandLandmarks, error) {
	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	line, err := d.roundTrip(data)
	if err != nil {
		if serr := d.shutdown(); serr != nil {
			log.Debug().Err(serr).Msg("hand tracker exited")
		}
		log.Warn().Err(err).Msg("hand tracker stopped, restarting on next frame")
		return nil, err
	}

	var response struct {
		Hands []WireHand `json:"hands"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	result := make([]HandLandmarks, 0, len(response.Hands))
	for _, h := range response.Hands {
		lm, err := h.Landmarks()
		if err != nil {
			log.Debug().Err(err).Msg("dropping malformed hand from tracker")
			continue
		}
		result = append(result, lm)
	}

	d.resetIdleTimer()

	return result, nil
}

func (d *MediaPipeDetector) roundTrip(data []byte) ([]byte, error) {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(data)))

	if _, err := d.stdin.Write(header); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return line, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	argv := d.command
	if len(argv) == 0 {
		pythonPath := findVenvPython()
		if pythonPath == "" {
			pythonPath = "python3"
		}
		argv = []string{pythonPath, d.scriptPath,
			"--max-hands", strconv.Itoa(d.config.MaxHands),
			"--model-complexity", strconv.Itoa(d.config.ModelComplexity),
			"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', 2, 64),
			"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', 2, 64),
		}
	}

	d.cmd = exec.Command(argv[0], argv[1:]...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start hand tracker: %w", err)
	}

	log.Info().Strs("command", argv).Msg("hand tracker started")

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(IdleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.shutdown(); err != nil {
			log.Warn().Err(err).Msg("idle hand tracker shutdown")
		}
	})
}

func findTrackerScript() string {
	execDir := ""
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	home, _ := os.UserHomeDir()
	return firstExisting(
		filepath.Join("scripts", trackerScript),
		filepath.Join("..", "scripts", trackerScript),
		filepath.Join(execDir, "scripts", trackerScript),
		filepath.Join(home, ".kanban", "scripts", trackerScript),
	)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execDir := ""
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	home, _ := os.UserHomeDir()
	return firstExisting(
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(home, ".kanban", "venv", "bin", "python"),
	)
}

func firstExisting(candidates ...string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

// WireHand is one hand as JSON, produced by the tracker process and by
// browser-side trackers.
type WireHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

// Landmarks validates the point count and converts to HandLandmarks.
func (h WireHand) Landmarks() (HandLandmarks, error) {
	lm, err := FromPoints(h.Points)
	if err != nil {
		return HandLandmarks{}, err
	}
	lm.Handedness = h.Handedness
	lm.Score = h.Score
	return *lm, nil
}
