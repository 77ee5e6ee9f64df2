package server

import (
	"sync"
	"sync/atomic"

	"github.com/diaz/kanban/internal/gesture"
	"github.com/diaz/kanban/internal/interaction"
	"github.com/rs/zerolog/log"
)

// CommandType names an action the browser performs on behalf of the
// interaction core.
type CommandType string

const (
	CommandActivate CommandType = "activate"
	CommandFocus    CommandType = "focus"
)

// Command is pushed to overlay clients.
type Command struct {
	Type CommandType `json:"type"`
	ID   string      `json:"id"`
}

// commandBuffer bounds how many commands a slow overlay client may queue.
const commandBuffer = 16

// LayoutSurface is the interaction surface backed by the layout the browser
// reports over the overlay socket. Clicks and focus changes are forwarded
// back to the connected overlay clients.
type LayoutSurface struct {
	mu     sync.RWMutex
	layout interaction.LayoutState

	subMu   sync.Mutex
	nextID  int
	subs    map[int]chan Command
	dropped atomic.Int64
}

// NewLayoutSurface creates a surface with an empty layout.
func NewLayoutSurface() *LayoutSurface {
	return &LayoutSurface{subs: make(map[int]chan Command)}
}

// SetLayout replaces the reported layout.
func (s *LayoutSurface) SetLayout(l interaction.LayoutState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layout = l
}

// Layout returns the most recently reported layout.
func (s *LayoutSurface) Layout() interaction.LayoutState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layout
}

func (s *LayoutSurface) ElementAt(p gesture.Point) (gesture.Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layout.ElementAt(p)
}

func (s *LayoutSurface) Cards() []gesture.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layout.Cards
}

func (s *LayoutSurface) Columns() []gesture.ColumnRect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layout.Columns
}

func (s *LayoutSurface) Activate(el gesture.Element) {
	s.send(Command{Type: CommandActivate, ID: el.ID})
}

func (s *LayoutSurface) Focus(el gesture.Element) {
	s.send(Command{Type: CommandFocus, ID: el.ID})
}

// Commands subscribes to activate and focus commands.
func (s *LayoutSurface) Commands() (<-chan Command, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Command, commandBuffer)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *LayoutSurface) send(c Command) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for id, ch := range s.subs {
		select {
		case ch <- c:
		default:
			s.dropped.Add(1)
			log.Debug().Int("subscriber", id).Str("type", string(c.Type)).Str("id", c.ID).Msg("overlay client busy, command dropped")
		}
	}
}

// Dropped counts commands not delivered because a client's buffer was full.
func (s *LayoutSurface) Dropped() int64 {
	return s.dropped.Load()
}
