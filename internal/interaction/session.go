// Package interaction owns the hands-free interaction session: it runs each
// landmark frame through pose classification, smoothing, dwell and grab,
// applies the resulting clicks and card moves, and publishes read-only
// snapshots for the overlay.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/diaz/kanban/internal/board"
	"github.com/diaz/kanban/internal/detector"
	"github.com/diaz/kanban/internal/gesture"
)

const updateBuffer = 16

// ErrFeedBusy is returned by Attach while another frame source owns the
// session.
var ErrFeedBusy = errors.New("another hand feed is attached")

// Stats counts frames seen by a session.
type Stats struct {
	Processed uint64 `json:"processed"`
	Dropped   uint64 `json:"dropped"`
	Skipped   uint64 `json:"skipped"`
}

// Session is the single writer of interaction state. Process may be called
// from any goroutine, but frames arriving while another frame is being
// processed are dropped rather than queued.
type Session struct {
	classifier *gesture.Classifier
	smoother   *gesture.Smoother
	dwell      *gesture.DwellDetector
	grab       *gesture.GrabController

	surface Surface
	board   Board

	busy     atomic.Bool
	closed   atomic.Bool
	viewport atomic.Pointer[gesture.Viewport]
	snapshot atomic.Pointer[Snapshot]
	seq      uint64

	processed atomic.Uint64
	dropped   atomic.Uint64
	skipped   atomic.Uint64

	feedMu sync.Mutex
	feed   string

	subMu  sync.RWMutex
	nextID int
	subs   map[int]chan Update
}

// NewSession creates a session. surface and board may be nil, in which case
// clicks and moves are still reported as events but not applied.
func NewSession(cfg gesture.Config, surface Surface, b Board) *Session {
	s := &Session{
		classifier: gesture.NewClassifier(cfg),
		smoother:   gesture.NewSmoother(cfg.SmoothingAlpha),
		dwell:      gesture.NewDwellDetector(cfg),
		grab:       gesture.NewGrabController(cfg),
		surface:    surface,
		board:      b,
		subs:       make(map[int]chan Update),
	}
	s.snapshot.Store(&Snapshot{Pose: gesture.PoseNone})
	return s
}

// Process runs one frame through the interaction core. hand is nil when no
// hand was detected. It reports false when the frame was not processed:
// the session is closed, another frame is in flight, or the frame was
// malformed.
func (s *Session) Process(ctx context.Context, hand *detector.HandLandmarks, now time.Time) (Snapshot, bool) {
	if s.closed.Load() {
		return Snapshot{}, false
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.dropped.Add(1)
		log.Debug().Msg("interaction busy, frame dropped")
		return s.Snapshot(), false
	}
	defer s.busy.Store(false)

	return s.process(ctx, hand, now)
}

// LoseTracking runs a no-hand frame, waiting for a frame in flight to
// finish first. Grab, hover, highlight and dwell state is cleared and
// nothing is committed.
func (s *Session) LoseTracking(ctx context.Context, now time.Time) (Snapshot, bool) {
	for !s.busy.CompareAndSwap(false, true) {
		if s.closed.Load() {
			return Snapshot{}, false
		}
		time.Sleep(time.Millisecond)
	}
	defer s.busy.Store(false)

	if s.closed.Load() {
		return Snapshot{}, false
	}
	return s.process(ctx, nil, now)
}

// Attach claims the session for one frame source. Only one source may be
// attached at a time; others get ErrFeedBusy. The returned detach function
// releases the claim after dropping tracking, so a grab held when the feed
// stops is never committed later.
func (s *Session) Attach(source string) (detach func(), err error) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()

	if s.feed != "" {
		return nil, fmt.Errorf("%w: %s", ErrFeedBusy, s.feed)
	}
	s.feed = source
	log.Debug().Str("source", source).Msg("hand feed attached")

	var once sync.Once
	return func() {
		once.Do(func() {
			s.LoseTracking(context.Background(), time.Now())

			s.feedMu.Lock()
			s.feed = ""
			s.feedMu.Unlock()
			log.Debug().Str("source", source).Msg("hand feed detached")
		})
	}, nil
}

// Feed returns the attached frame source, or "" when none is.
func (s *Session) Feed() string {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	return s.feed
}

// process runs one frame; the caller holds the busy flag.
func (s *Session) process(ctx context.Context, hand *detector.HandLandmarks, now time.Time) (Snapshot, bool) {
	if v := s.viewport.Swap(nil); v != nil {
		s.classifier.SetViewport(*v)
	}

	reading, err := s.classifier.Classify(hand)
	if err != nil {
		s.skipped.Add(1)
		log.Debug().Err(err).Msg("skipping frame")
		return s.Snapshot(), false
	}

	cursor := s.smoother.Position()
	if reading.Pose.Tracked() {
		cursor = s.smoother.Update(reading.Raw)
	}

	var events []Event

	dwell := s.dwell.Update(reading.Pose, cursor, now, s.surface)
	if dwell.Fired {
		events = append(events, Event{Type: EventAck, At: cursor})
		if el := dwell.Activated; el != nil {
			s.activate(*el)
			events = append(events, Event{Type: EventActivate, At: cursor, ElementID: el.ID})
		}
	}

	grab := s.grab.Update(reading.Pose, cursor, s.surface)
	if d := grab.Drop; d != nil {
		s.move(ctx, *d)
		events = append(events, Event{Type: EventDrop, At: cursor, TaskID: d.TaskID, Column: d.Column})
	}

	s.seq++
	snap := Snapshot{
		Seq:           s.seq,
		Timestamp:     now,
		Tracking:      reading.Pose.Tracked(),
		Pose:          reading.Pose,
		Cursor:        cursor,
		Raw:           s.smoother.Raw(),
		Target:        dwell.Target,
		DwellProgress: dwell.Progress,
		Highlighted:   grab.Highlighted,
		Grabbed:       grab.Grabbed,
		Hovered:       grab.Hovered,
	}
	s.snapshot.Store(&snap)
	s.processed.Add(1)

	s.publish(Update{Snapshot: snap, Events: events})
	return snap, true
}

func (s *Session) activate(el gesture.Element) {
	if s.surface == nil {
		return
	}
	s.surface.Activate(el)
	if el.AcceptsText() {
		s.surface.Focus(el)
	}
	log.Debug().Str("element", el.ID).Msg("dwell activation")
}

func (s *Session) move(ctx context.Context, d gesture.Drop) {
	if s.board == nil {
		return
	}
	column, err := board.ParseColumn(d.Column)
	if err != nil {
		log.Warn().Err(err).Str("task_id", d.TaskID).Msg("drop on unknown column ignored")
		return
	}
	if err := s.board.MoveTask(ctx, d.TaskID, column); err != nil {
		ev := log.Error()
		if errors.Is(err, board.ErrNotFound) {
			ev = log.Warn()
		}
		ev.Err(err).Str("task_id", d.TaskID).Str("column", d.Column).Msg("failed to move task")
	}
}

// Snapshot returns the state after the most recently processed frame.
func (s *Session) Snapshot() Snapshot {
	return *s.snapshot.Load()
}

// SetViewport changes the pixel space of the cursor. It takes effect on the
// next processed frame.
func (s *Session) SetViewport(v gesture.Viewport) {
	if v.Width <= 0 || v.Height <= 0 {
		return
	}
	s.viewport.Store(&v)
}

// Stats returns frame counters.
func (s *Session) Stats() Stats {
	return Stats{
		Processed: s.processed.Load(),
		Dropped:   s.dropped.Load(),
		Skipped:   s.skipped.Load(),
	}
}

// Subscribe returns a channel receiving one Update per processed frame and a
// function ending the subscription. Updates are dropped for subscribers
// that fall behind.
func (s *Session) Subscribe() (<-chan Update, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	ch := make(chan Update, updateBuffer)
	if s.closed.Load() {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Session) publish(u Update) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, ch := range s.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// Close ends the session. Frames delivered afterwards are ignored and all
// subscriptions are closed.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	return s.closed.Load()
}
