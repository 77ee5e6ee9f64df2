// Package config loads service configuration from defaults, an optional
// config file, .env files and KANBAN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/diaz/kanban/internal/assistant"
	"github.com/diaz/kanban/internal/capture"
	"github.com/diaz/kanban/internal/gesture"
	"github.com/diaz/kanban/internal/history"
	"github.com/diaz/kanban/internal/logger"
	"github.com/diaz/kanban/internal/plugin"
)

// EnvPrefix prefixes every environment override, e.g. KANBAN_SERVER_ADDR.
const EnvPrefix = "KANBAN"

// ConfigEnv names a config file that overrides the search path.
const ConfigEnv = "KANBAN_CONFIG"

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
	// Tray shows the system tray toggle while serving.
	Tray bool `mapstructure:"tray"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LLMConfig struct {
	assistant.Config `mapstructure:",squash"`
	// APIKeyEnv names the environment variable read when APIKey is empty.
	APIKeyEnv string `mapstructure:"api_key_env"`
}

// RedisConfig selects the Redis chat history backend. An empty URL keeps
// history in SQLite.
type RedisConfig struct {
	URL string        `mapstructure:"url"`
	TTL time.Duration `mapstructure:"ttl"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Camera   capture.Config `mapstructure:"camera"`
	Gesture  gesture.Config `mapstructure:"gesture"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Plugins  plugin.Config  `mapstructure:"plugins"`
	Log      logger.Config  `mapstructure:"log"`
}

// Dir returns the per-user data directory, ~/.kanban.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kanban"
	}
	return filepath.Join(home, ".kanban")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Path: filepath.Join(Dir(), "kanban.db")},
		Camera:   capture.DefaultConfig(),
		Gesture:  gesture.DefaultConfig(),
		LLM:      LLMConfig{Config: assistant.DefaultConfig(), APIKeyEnv: "OPENAI_API_KEY"},
		Redis:    RedisConfig{TTL: history.DefaultTTL},
		Plugins:  plugin.Config{Dir: filepath.Join(Dir(), "plugins"), Timeout: plugin.DefaultTimeout},
		Log:      logger.DefaultConfig(),
	}
}

// Load reads configuration. file may be empty, in which case KANBAN_CONFIG
// and then config.{yaml,toml,json} in the working directory and ~/.kanban
// are tried. A missing config file is not an error.
func Load(file string) (Config, error) {
	// .env never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file == "" {
		file = os.Getenv(ConfigEnv)
	}
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}

	if cfg.LLM.APIKey == "" && cfg.LLM.APIKeyEnv != "" {
		cfg.LLM.APIKey = os.Getenv(cfg.LLM.APIKeyEnv)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}
	if err := c.Gesture.Validate(); err != nil {
		return err
	}
	return nil
}

// setDefaults registers every key so environment overrides apply to keys
// that are absent from the config file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("server.tray", d.Server.Tray)

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("camera.enabled", d.Camera.Enabled)
	v.SetDefault("camera.device", d.Camera.Device)
	v.SetDefault("camera.width", d.Camera.Width)
	v.SetDefault("camera.height", d.Camera.Height)
	v.SetDefault("camera.mirror", d.Camera.Mirror)
	v.SetDefault("camera.motion_threshold", d.Camera.MotionThreshold)
	v.SetDefault("camera.idle_timeout", d.Camera.IdleTimeout)

	v.SetDefault("gesture.pointer_extended", d.Gesture.PointerExtended)
	v.SetDefault("gesture.pointer_curled", d.Gesture.PointerCurled)
	v.SetDefault("gesture.fist_curled", d.Gesture.FistCurled)
	v.SetDefault("gesture.smoothing_alpha", d.Gesture.SmoothingAlpha)
	v.SetDefault("gesture.stillness_radius", d.Gesture.StillnessRadius)
	v.SetDefault("gesture.dwell_duration", d.Gesture.DwellDuration)
	v.SetDefault("gesture.capture_radius", d.Gesture.CaptureRadius)
	v.SetDefault("gesture.viewport.width", d.Gesture.Viewport.Width)
	v.SetDefault("gesture.viewport.height", d.Gesture.Viewport.Height)

	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.api_key_env", d.LLM.APIKeyEnv)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.history_limit", d.LLM.HistoryLimit)

	v.SetDefault("redis.url", d.Redis.URL)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("plugins.dir", d.Plugins.Dir)
	v.SetDefault("plugins.timeout", d.Plugins.Timeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.time_format", d.Log.TimeFormat)
}
