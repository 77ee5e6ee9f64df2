package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/diaz/kanban/internal/interaction"
)

// Pipeline is the server-side camera pipeline behind hands-free mode.
type Pipeline interface {
	Start() error
	Stop()
	Running() bool
	Available() bool
}

// MagicHandler serves /api/magic, the hands-free mode toggle.
type MagicHandler struct {
	pipeline Pipeline
}

// NewMagicHandler creates a MagicHandler. p may be nil, in which case the
// mode is reported unavailable.
func NewMagicHandler(p Pipeline) *MagicHandler {
	return &MagicHandler{pipeline: p}
}

type magicState struct {
	Enabled   bool   `json:"enabled"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

type magicRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *MagicHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.state())
	case http.MethodPost, http.MethodPut:
		h.toggle(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *MagicHandler) state() magicState {
	if h.pipeline == nil {
		return magicState{}
	}
	return magicState{Enabled: h.pipeline.Running(), Available: h.pipeline.Available()}
}

func (h *MagicHandler) toggle(w http.ResponseWriter, r *http.Request) {
	var req magicRequest
	if !decode(w, r, &req) {
		return
	}

	if h.pipeline == nil {
		state := h.state()
		if req.Enabled {
			state.Error = "hands-free mode is not available"
			writeJSON(w, http.StatusServiceUnavailable, state)
			return
		}
		writeJSON(w, http.StatusOK, state)
		return
	}

	if !req.Enabled {
		h.pipeline.Stop()
		writeJSON(w, http.StatusOK, h.state())
		return
	}

	if err := h.pipeline.Start(); err != nil {
		log.Warn().Err(err).Msg("hands-free mode did not start")
		state := h.state()
		state.Error = err.Error()
		status := http.StatusServiceUnavailable
		if errors.Is(err, interaction.ErrFeedBusy) {
			status = http.StatusConflict
		}
		writeJSON(w, status, state)
		return
	}
	writeJSON(w, http.StatusOK, h.state())
}
