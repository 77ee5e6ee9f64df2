// Package logger configures the process-wide zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects level, encoding and destination of log output.
type Config struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // console | json
	Output     string `mapstructure:"output"` // stdout | stderr | file
	File       string `mapstructure:"file"`
	TimeFormat string `mapstructure:"time_format"` // rfc3339 | unix | iso8601
}

// DefaultConfig logs info and above to stderr in console format.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		File:       "logs/kanban.log",
		TimeFormat: "rfc3339",
	}
}

// Init configures the global logger. The returned closer releases the log
// file when output is "file" and is a no-op otherwise.
func Init(cfg Config) (io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	switch strings.ToLower(cfg.TimeFormat) {
	case "unix":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	case "iso8601":
		zerolog.TimeFieldFormat = "2006-01-02T15:04:05.000Z07:00"
	default:
		zerolog.TimeFieldFormat = time.RFC3339
	}

	out, closer, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}

	var w io.Writer = out
	if strings.ToLower(cfg.Format) != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: strings.EqualFold(cfg.Output, "file")}
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	log.Debug().
		Str("level", level.String()).
		Str("format", cfg.Format).
		Str("output", cfg.Output).
		Msg("logger initialized")

	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openOutput(cfg Config) (io.Writer, io.Closer, error) {
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		return os.Stdout, nopCloser{}, nil
	case "file":
		if cfg.File == "" {
			return nil, nil, fmt.Errorf("log output is file but no file path is set")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %q: %w", cfg.File, err)
		}
		return f, f, nil
	default:
		return os.Stderr, nopCloser{}, nil
	}
}
