package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/diaz/kanban/internal/app"
	"github.com/diaz/kanban/internal/assistant"
	"github.com/diaz/kanban/internal/board"
	"github.com/diaz/kanban/internal/config"
	"github.com/diaz/kanban/internal/detector"
	"github.com/diaz/kanban/internal/history"
	"github.com/diaz/kanban/internal/interaction"
	"github.com/diaz/kanban/internal/plugin"
	"github.com/diaz/kanban/internal/server"
	"github.com/diaz/kanban/internal/server/api"
	"github.com/diaz/kanban/internal/store"
	"github.com/diaz/kanban/internal/tray"
)

// trayRefresh is how often the tray status line is updated.
const trayRefresh = 2 * time.Second

func serveCmd(e *env) *cobra.Command {
	var handsFree bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the board server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("addr") {
				e.cfg.Server.Addr, _ = flags.GetString("addr")
			}
			if flags.Changed("static") {
				e.cfg.Server.StaticDir, _ = flags.GetString("static")
			}
			if flags.Changed("tray") {
				e.cfg.Server.Tray, _ = flags.GetBool("tray")
			}
			if flags.Changed("camera") {
				e.cfg.Camera.Enabled, _ = flags.GetBool("camera")
			}
			return runServe(commandContext(cmd), e.cfg, handsFree)
		},
	}

	cmd.Flags().String("addr", ":8080", "HTTP listen address")
	cmd.Flags().String("static", "", "Directory with the web UI")
	cmd.Flags().Bool("tray", false, "Show the system tray toggle")
	cmd.Flags().Bool("camera", true, "Enable the server-side camera pipeline")
	cmd.Flags().BoolVar(&handsFree, "hands-free", false, "Start hands-free mode immediately")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, handsFree bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{cfg: cfg}
	db, b, err := e.openBoard()
	if err != nil {
		return err
	}
	defer db.Close()

	hist, closeHistory, err := openHistory(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeHistory()

	asst, err := assistant.New(ctx, cfg.LLM.Config)
	if err != nil {
		return err
	}
	chat := assistant.NewChat(hist, asst, b, cfg.LLM.HistoryLimit)

	if err := startPlugins(ctx, cfg.Plugins, b); err != nil {
		return err
	}

	surface := server.NewLayoutSurface()
	session := interaction.NewSession(cfg.Gesture, surface, b)
	defer session.Close()

	srvCfg := server.Config{
		StaticDir: findWebDir(cfg.Server.StaticDir),
		Board:     b,
		Chat:      chat,
		Session:   session,
		Surface:   surface,
	}

	var pipeline *app.App
	if cfg.Camera.Enabled {
		pipeline = app.New(app.Config{Camera: cfg.Camera, Tracker: detector.DefaultConfig()}, session)
		defer pipeline.Close()
		srvCfg.Pipeline = pipeline
		srvCfg.Frames = pipeline.Frames()

		if handsFree {
			if err := pipeline.Start(); err != nil {
				log.Warn().Err(err).Msg("hands-free mode could not start")
			}
		}
	}

	if srvCfg.StaticDir != "" {
		log.Info().Str("dir", srvCfg.StaticDir).Msg("serving static files")
	}
	srv := server.New(srvCfg)

	if !cfg.Server.Tray {
		return srv.Run(ctx, cfg.Server.Addr)
	}
	return runWithTray(ctx, srv, cfg.Server.Addr, b, pipeline)
}

// runWithTray keeps the tray on the calling goroutine, which some platforms
// require for UI event loops, and serves in the background.
func runWithTray(ctx context.Context, srv *server.Server, addr string, b *board.Board, pipeline *app.App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx, addr)
	}()

	t := tray.New()
	if pipeline != nil {
		t.OnToggle(func(enabled bool) error {
			if enabled {
				return pipeline.Start()
			}
			pipeline.Stop()
			return nil
		})
	} else {
		t.OnToggle(func(bool) error { return app.ErrNoTracker })
	}
	t.OnOpen(func() { openBrowser(boardURL(addr)) })
	t.OnQuit(cancel)

	go func() {
		ticker := time.NewTicker(trayRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				t.Quit()
				return
			case <-ticker.C:
				refreshTray(ctx, t, b, pipeline)
			}
		}
	}()

	t.Run()
	cancel()
	return <-errCh
}

func refreshTray(ctx context.Context, t *tray.Tray, b *board.Board, pipeline *app.App) {
	if pipeline != nil {
		t.SetEnabled(pipeline.Running())
	}
	stats, err := b.Stats(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("tray stats")
		return
	}
	t.SetStatus(fmt.Sprintf("%d pending · %d in progress · %d done", stats.Pending, stats.InProgress, stats.Completed))
}

// startPlugins delivers board events to the plugins found in cfg.Dir until
// ctx is done.
func startPlugins(ctx context.Context, cfg plugin.Config, b *board.Board) error {
	manager := plugin.NewManager(cfg.Dir)
	if err := manager.Discover(); err != nil {
		return fmt.Errorf("discover plugins: %w", err)
	}
	plugins := manager.List()
	if len(plugins) == 0 {
		return nil
	}
	for _, p := range plugins {
		log.Info().Str("plugin", p.Manifest.Name).Str("version", p.Manifest.Version).Msg("plugin loaded")
	}

	events, unsubscribe := b.Subscribe()
	d := plugin.NewDispatcher(manager, plugin.NewExecutor(cfg.Timeout))
	go func() {
		defer unsubscribe()
		d.Run(ctx, events)
	}()
	return nil
}

// openHistory picks Redis when configured, SQLite otherwise.
func openHistory(ctx context.Context, cfg config.Config, db *store.Store) (history.Store, func(), error) {
	if cfg.Redis.URL == "" {
		return history.NewSQLStore(db.Messages()), func() {}, nil
	}

	rs, err := history.NewRedisStore(ctx, cfg.Redis.URL, cfg.Redis.TTL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Dur("ttl", cfg.Redis.TTL).Msg("chat history in redis")
	return rs, func() {
		if err := rs.Close(); err != nil {
			log.Warn().Err(err).Msg("closing redis")
		}
	}, nil
}

// findWebDir returns dir when set, else the first of "web", "../web" and
// ~/.kanban/web that exists, else "".
func findWebDir(dir string) string {
	if dir != "" {
		return dir
	}

	for _, p := range []string{"web", "../web", filepath.Join(config.Dir(), "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func boardURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("could not open browser")
	}
}

var (
	_ api.Pipeline = (*app.App)(nil)
	_ api.Chat     = (*assistant.Chat)(nil)
)
