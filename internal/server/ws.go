package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/diaz/kanban/internal/board"
	"github.com/diaz/kanban/internal/detector"
	"github.com/diaz/kanban/internal/interaction"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local UI only
	},
}

// writeWait bounds a single websocket write.
const writeWait = 5 * time.Second

func writeMessage(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// readUntilClosed drains client messages and closes done when the client
// goes away. Used by push-only sockets.
func readUntilClosed(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// overlayMessage is sent to overlay clients: a snapshot update or a
// command.
type overlayMessage struct {
	Type     string                `json:"type"`
	Snapshot *interaction.Snapshot `json:"snapshot,omitempty"`
	Events   []interaction.Event   `json:"events,omitempty"`
	ID       string                `json:"id,omitempty"`
}

// layoutMessage is sent by overlay clients whenever their layout changes.
type layoutMessage struct {
	Type string `json:"type"`
	interaction.LayoutState
}

// OverlayHandler serves /api/overlay. Clients report their layout and
// receive snapshots, dwell/drop events and activate/focus commands.
type OverlayHandler struct {
	session *interaction.Session
	surface *LayoutSurface
}

// NewOverlayHandler creates an OverlayHandler.
func NewOverlayHandler(session *interaction.Session, surface *LayoutSurface) *OverlayHandler {
	return &OverlayHandler{session: session, surface: surface}
}

func (h *OverlayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("overlay websocket upgrade")
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.session.Subscribe()
	defer unsubscribe()
	commands, stopCommands := h.surface.Commands()
	defer stopCommands()

	done := make(chan struct{})
	go h.readLayouts(conn, done)

	snap := h.session.Snapshot()
	if err := writeMessage(conn, overlayMessage{Type: "snapshot", Snapshot: &snap}); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := writeMessage(conn, overlayMessage{Type: "snapshot", Snapshot: &u.Snapshot, Events: u.Events}); err != nil {
				return
			}
		case c, ok := <-commands:
			if !ok {
				return
			}
			if err := writeMessage(conn, overlayMessage{Type: string(c.Type), ID: c.ID}); err != nil {
				return
			}
		}
	}
}

func (h *OverlayHandler) readLayouts(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg layoutMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Msg("ignoring malformed overlay message")
			continue
		}
		if msg.Type != "layout" {
			continue
		}

		h.surface.SetLayout(msg.LayoutState)
		h.session.SetViewport(msg.Viewport)
	}
}

// handsMessage is one tracked frame from a browser-side tracker.
type handsMessage struct {
	Hands []detector.WireHand `json:"hands"`
}

// HandsHandler serves /api/hands: browser-side hand tracking streams
// landmark frames into the session. One socket at a time owns the session,
// and none while the camera pipeline runs.
type HandsHandler struct {
	session *interaction.Session
	now     func() time.Time
}

// NewHandsHandler creates a HandsHandler.
func NewHandsHandler(session *interaction.Session) *HandsHandler {
	return &HandsHandler{session: session, now: time.Now}
}

func (h *HandsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	detach, err := h.session.Attach("browser")
	if err != nil {
		log.Info().Err(err).Msg("hands websocket refused")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	// Runs after the socket closes: a grab held by a vanished tracker is dropped.
	defer detach()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("hands websocket upgrade")
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg handsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Msg("skipping malformed hands frame")
			continue
		}

		var hand *detector.HandLandmarks
		if len(msg.Hands) > 0 {
			lm, err := msg.Hands[0].Landmarks()
			if err != nil {
				log.Debug().Err(err).Msg("skipping malformed hands frame")
				continue
			}
			hand = &lm
		}

		h.session.Process(r.Context(), hand, h.now())
	}
}

// BoardEventsHandler serves /api/board/events, pushing board changes.
type BoardEventsHandler struct {
	board *board.Board
}

// NewBoardEventsHandler creates a BoardEventsHandler.
func NewBoardEventsHandler(b *board.Board) *BoardEventsHandler {
	return &BoardEventsHandler{board: b}
}

func (h *BoardEventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("board events websocket upgrade")
		return
	}
	defer conn.Close()

	events, unsubscribe := h.board.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go readUntilClosed(conn, done)

	for {
		select {
		case <-done:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := writeMessage(conn, e); err != nil {
				return
			}
		}
	}
}
