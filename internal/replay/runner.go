package replay

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/diaz/kanban/internal/board"
	"github.com/diaz/kanban/internal/gesture"
	"github.com/diaz/kanban/internal/interaction"
)

// Result is the outcome of running a scenario.
type Result struct {
	Timeline    []interaction.Snapshot
	Activations []string
	Focuses     []string
	Moves       []Move
	Columns     map[string]board.Column
	Stats       interaction.Stats
}

// recordingBoard is an in-memory board that records committed moves.
type recordingBoard struct {
	mu      sync.Mutex
	columns map[string]board.Column
	moves   []Move
}

func newRecordingBoard(tasks map[string]board.Column) *recordingBoard {
	columns := make(map[string]board.Column, len(tasks))
	for id, c := range tasks {
		columns[id] = c
	}
	return &recordingBoard{columns: columns}
}

func (b *recordingBoard) MoveTask(ctx context.Context, taskID string, column board.Column) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, ok := b.columns[taskID]
	if !ok {
		return fmt.Errorf("move %s: %w", taskID, board.ErrNotFound)
	}
	if current == column {
		return nil
	}
	b.columns[taskID] = column
	b.moves = append(b.moves, Move{TaskID: taskID, Column: column})
	return nil
}

// Run plays sc through a fresh session using cfg. Frame timestamps are
// simulated, so a run takes no wall-clock time.
func Run(ctx context.Context, sc *Scenario, cfg gesture.Config) (*Result, error) {
	if sc.Layout.Viewport.Width > 0 && sc.Layout.Viewport.Height > 0 {
		cfg.Viewport = sc.Layout.Viewport
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	surface := interaction.NewRecordingSurface(sc.Layout)
	b := newRecordingBoard(sc.Tasks)
	session := interaction.NewSession(cfg, surface, b)
	defer session.Close()

	now := time.Unix(0, 0).UTC()
	step := sc.interval()
	res := &Result{}

	for i, f := range sc.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hand := f.Hand(cfg.Viewport)
		now = now.Add(f.Wait)

		for n := 0; n < max(f.Repeat, 1); n++ {
			snap, ok := session.Process(ctx, hand, now)
			if ok {
				res.Timeline = append(res.Timeline, snap)
			} else {
				log.Debug().Int("frame", i).Msg("replay frame not processed")
			}
			now = now.Add(step)
		}
	}

	b.mu.Lock()
	res.Moves = slices.Clone(b.moves)
	res.Columns = b.columns
	b.mu.Unlock()

	res.Activations = surface.Activations()
	res.Focuses = surface.Focuses()
	res.Stats = session.Stats()
	return res, nil
}

// ErrExpectationFailed is returned by Check for a mismatching run.
var ErrExpectationFailed = errors.New("expectation failed")

// Check compares the result against e. A nil expectation always passes.
func (r *Result) Check(e *Expectation) error {
	if e == nil {
		return nil
	}

	var errs []error
	if e.Activations != nil && !slices.Equal(r.Activations, e.Activations) {
		errs = append(errs, fmt.Errorf("%w: activations %v, want %v", ErrExpectationFailed, r.Activations, e.Activations))
	}
	if e.Focuses != nil && !slices.Equal(r.Focuses, e.Focuses) {
		errs = append(errs, fmt.Errorf("%w: focuses %v, want %v", ErrExpectationFailed, r.Focuses, e.Focuses))
	}
	if e.Moves != nil && !slices.Equal(r.Moves, e.Moves) {
		errs = append(errs, fmt.Errorf("%w: moves %v, want %v", ErrExpectationFailed, r.Moves, e.Moves))
	}
	return errors.Join(errs...)
}
