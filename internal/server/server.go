// Package server provides the HTTP and WebSocket surface of the board.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/diaz/kanban/internal/board"
	"github.com/diaz/kanban/internal/capture"
	"github.com/diaz/kanban/internal/interaction"
	"github.com/diaz/kanban/internal/server/api"
)

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 5 * time.Second

// Config holds the server configuration. Nil components disable the routes
// that need them.
type Config struct {
	StaticDir string
	Board     *board.Board
	Chat      api.Chat
	Session   *interaction.Session
	Surface   *LayoutSurface
	Pipeline  api.Pipeline
	Frames    *capture.FrameBuffer
}

// Server represents the HTTP server of the board.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Board != nil {
		tasks := api.NewTaskHandler(s.config.Board)
		s.mux.Handle("/api/tasks", tasks)
		s.mux.Handle("/api/tasks/", tasks)
		s.mux.HandleFunc("/api/stats", tasks.Stats)
		s.mux.Handle("/api/board/events", NewBoardEventsHandler(s.config.Board))
	}

	if s.config.Chat != nil {
		chat := api.NewChatHandler(s.config.Chat)
		s.mux.Handle("/api/chat", chat)
		s.mux.Handle("/api/chat/", chat)
	}

	// Registered unconditionally so clients can discover that hands-free
	// mode is unavailable.
	s.mux.Handle("/api/magic", api.NewMagicHandler(s.config.Pipeline))

	if s.config.Session != nil {
		surface := s.config.Surface
		if surface == nil {
			surface = NewLayoutSurface()
			s.config.Surface = surface
		}
		s.mux.Handle("/api/overlay", NewOverlayHandler(s.config.Session, surface))
		s.mux.Handle("/api/hands", NewHandsHandler(s.config.Session))
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type healthResponse struct {
	Status    string             `json:"status"`
	Uptime    string             `json:"uptime"`
	HandsFree bool               `json:"hands_free"`
	Frames    *interaction.Stats `json:"frames,omitempty"`
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Second).String(),
	}
	if s.config.Pipeline != nil {
		resp.HandsFree = s.config.Pipeline.Running()
	}
	if s.config.Session != nil {
		stats := s.config.Session.Stats()
		resp.Frames = &stats
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("http server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}
