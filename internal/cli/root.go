// Package cli implements the kanban command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/diaz/kanban/internal/board"
	"github.com/diaz/kanban/internal/config"
	"github.com/diaz/kanban/internal/logger"
	"github.com/diaz/kanban/internal/store"
)

// Version is set at build time.
var Version = "dev"

// env is the state shared by every subcommand after the root pre-run.
type env struct {
	configFile string
	logLevel   string

	cfg       config.Config
	logCloser io.Closer
}

// NewRootCommand builds the kanban command tree.
func NewRootCommand() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "kanban",
		Short:         "Hands-free Kanban board",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e.logCloser != nil {
				return e.logCloser.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&e.configFile, "config", "c", "", "config file (default $HOME/.kanban/config.yaml)")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(serveCmd(e))
	root.AddCommand(tasksCmd(e))
	root.AddCommand(replayCmd(e))

	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (e *env) load() error {
	cfg, err := config.Load(e.configFile)
	if err != nil {
		return err
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}

	closer, err := logger.Init(cfg.Log)
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.logCloser = closer
	log.Debug().Str("database", cfg.Database.Path).Msg("configuration loaded")
	return nil
}

// openBoard opens the configured database, creating its directory.
func (e *env) openBoard() (*store.Store, *board.Board, error) {
	path := e.cfg.Database.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := store.New(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return db, board.New(db.Tasks()), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
