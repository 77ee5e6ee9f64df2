// Package tray provides a system tray menu for toggling hands-free mode.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog/log"
)

const (
	titleOn  = "● Hands-free on"
	titleOff = "○ Hands-free off"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool) error
	onOpen   func()
	onQuit   func()
	enabled  bool
	status   string
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray with hands-free mode off.
func New() *Tray {
	return &Tray{status: "Camera idle"}
}

// OnToggle sets the callback invoked when hands-free mode is toggled. A
// non-nil error keeps the previous state.
func (t *Tray) OnToggle(fn func(enabled bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback for the "Open board" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops a running tray.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Kanban")
	systray.SetTooltip("Hands-free Kanban board")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle camera gesture control")
	systray.AddSeparator()
	t.menuStatus = systray.AddMenuItem(t.status, "Board status")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open board...", "Open the board in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit the board server")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	log.Debug().Msg("tray exited")
}

func toggleTitle(enabled bool) string {
	if enabled {
		return titleOn
	}
	return titleOff
}

// handleToggle flips hands-free mode, reverting when the callback fails.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	want := !t.enabled
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		if err := callback(want); err != nil {
			log.Warn().Err(err).Bool("enabled", want).Msg("hands-free toggle failed")
			t.SetStatus("Camera unavailable")
			return
		}
	}
	t.SetEnabled(want)
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetEnabled records the hands-free state, e.g. when it was changed through
// the HTTP API.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetStatus updates the status line in the menu.
func (t *Tray) SetStatus(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = text
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(text)
	}
}

// Status returns the current status line.
func (t *Tray) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
