package server

import (
	"testing"

	"github.com/diaz/kanban/internal/gesture"
	"github.com/diaz/kanban/internal/interaction"
)

func TestLayoutSurface_HitTesting(t *testing.T) {
	s := NewLayoutSurface()

	if _, ok := s.ElementAt(gesture.Point{X: 10, Y: 10}); ok {
		t.Fatal("empty surface should not hit anything")
	}

	s.SetLayout(interaction.LayoutState{
		Elements: []gesture.Element{
			{ID: "board", Kind: gesture.KindOther, Rect: gesture.Rect{Width: 1280, Height: 720}},
			{ID: "modal", Kind: gesture.KindButton, Z: 10, Rect: gesture.Rect{Left: 0, Top: 0, Width: 100, Height: 100}},
			{ID: "under", Kind: gesture.KindButton, Z: 1, Rect: gesture.Rect{Left: 0, Top: 0, Width: 100, Height: 100}},
		},
		Cards:   []gesture.Card{{TaskID: "A"}},
		Columns: []gesture.ColumnRect{{Column: "pending"}},
	})

	el, ok := s.ElementAt(gesture.Point{X: 50, Y: 50})
	if !ok || el.ID != "modal" {
		t.Errorf("expected modal on top, got %+v", el)
	}
	el, ok = s.ElementAt(gesture.Point{X: 500, Y: 500})
	if !ok || el.ID != "board" {
		t.Errorf("expected board, got %+v", el)
	}
	if len(s.Cards()) != 1 || len(s.Columns()) != 1 {
		t.Errorf("unexpected layout %+v", s.Layout())
	}
}

func TestLayoutSurface_Commands(t *testing.T) {
	s := NewLayoutSurface()

	commands, stop := s.Commands()
	s.Activate(gesture.Element{ID: "save"})
	s.Focus(gesture.Element{ID: "title"})

	if c := <-commands; c != (Command{Type: CommandActivate, ID: "save"}) {
		t.Errorf("unexpected command %+v", c)
	}
	if c := <-commands; c != (Command{Type: CommandFocus, ID: "title"}) {
		t.Errorf("unexpected command %+v", c)
	}

	stop()
	stop()
	if _, ok := <-commands; ok {
		t.Error("expected channel closed after unsubscribe")
	}

	// No subscribers left; must not block.
	s.Activate(gesture.Element{ID: "save"})
}

func TestLayoutSurface_SlowSubscriberDoesNotBlock(t *testing.T) {
	s := NewLayoutSurface()
	commands, stop := s.Commands()
	defer stop()

	for i := 0; i < commandBuffer*2; i++ {
		s.Activate(gesture.Element{ID: "save"})
	}
	if len(commands) != commandBuffer {
		t.Errorf("expected %d buffered commands, got %d", commandBuffer, len(commands))
	}
	if got := s.Dropped(); got != commandBuffer {
		t.Errorf("expected %d dropped commands, got %d", commandBuffer, got)
	}

	<-commands
	s.Focus(gesture.Element{ID: "title"})
	if got := s.Dropped(); got != commandBuffer {
		t.Errorf("a freed slot should take the next command, dropped = %d", got)
	}
}
