package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at empty temp dirs so no
// real config or .env file is picked up.
func isolate(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(ConfigEnv, "")
	t.Setenv("OPENAI_API_KEY", "")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, filepath.Join(home, ".kanban", "kanban.db"), cfg.Database.Path)
	assert.Equal(t, 1280, cfg.Camera.Width)
	assert.Equal(t, 500*time.Millisecond, cfg.Gesture.DwellDuration)
	assert.InDelta(t, 0.4, cfg.Gesture.SmoothingAlpha, 1e-9)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Empty(t, cfg.LLM.APIKey)
	assert.Equal(t, 40*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, filepath.Join(home, ".kanban", "plugins"), cfg.Plugins.Dir)
	assert.Equal(t, 5*time.Second, cfg.Plugins.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "kanban.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
gesture:
  dwell_duration: 750ms
  capture_radius: 250
  viewport:
    width: 1920
    height: 1080
camera:
  enabled: false
redis:
  url: redis://localhost:6379/2
  ttl: 10m
plugins:
  dir: /opt/kanban/plugins
  timeout: 2s
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 750*time.Millisecond, cfg.Gesture.DwellDuration)
	assert.InDelta(t, 250, cfg.Gesture.CaptureRadius, 1e-9)
	assert.InDelta(t, 1920, cfg.Gesture.Viewport.Width, 1e-9)
	assert.False(t, cfg.Camera.Enabled)
	assert.Equal(t, "redis://localhost:6379/2", cfg.Redis.URL)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, "/opt/kanban/plugins", cfg.Plugins.Dir)
	assert.Equal(t, 2*time.Second, cfg.Plugins.Timeout)
	// untouched keys keep defaults
	assert.InDelta(t, 0.4, cfg.Gesture.SmoothingAlpha, 1e-9)
}

func TestLoad_ConfigEnvAndOverrides(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":7000\"\n"), 0644))

	t.Setenv(ConfigEnv, path)
	t.Setenv("KANBAN_SERVER_ADDR", ":7100")
	t.Setenv("KANBAN_GESTURE_STILLNESS_RADIUS", "20")
	t.Setenv("KANBAN_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7100", cfg.Server.Addr)
	assert.InDelta(t, 20, cfg.Gesture.StillnessRadius, 1e-9)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_APIKeyFromNamedEnv(t *testing.T) {
	isolate(t)
	t.Setenv("KANBAN_LLM_API_KEY_ENV", "MY_LLM_KEY")
	t.Setenv("MY_LLM_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	t.Setenv("KANBAN_DATABASE_PATH", "")
	os.Unsetenv("KANBAN_DATABASE_PATH")

	require.NoError(t, os.WriteFile(".env", []byte("KANBAN_DATABASE_PATH=/tmp/from-dotenv.db\n"), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-dotenv.db", cfg.Database.Path)
}

func TestLoad_InvalidGesture(t *testing.T) {
	isolate(t)
	t.Setenv("KANBAN_GESTURE_SMOOTHING_ALPHA", "1.5")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
