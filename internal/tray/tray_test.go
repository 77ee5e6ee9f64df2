package tray

import (
	"errors"
	"testing"
)

func TestTray_Toggle(t *testing.T) {
	tr := New()
	if tr.IsEnabled() {
		t.Fatal("hands-free should start off")
	}

	var calls []bool
	tr.OnToggle(func(enabled bool) error {
		calls = append(calls, enabled)
		return nil
	})

	tr.handleToggle()
	if !tr.IsEnabled() {
		t.Error("expected enabled after toggle")
	}
	tr.handleToggle()
	if tr.IsEnabled() {
		t.Error("expected disabled after second toggle")
	}

	if len(calls) != 2 || !calls[0] || calls[1] {
		t.Errorf("unexpected callback calls %v", calls)
	}
}

func TestTray_ToggleFailureKeepsState(t *testing.T) {
	tr := New()
	tr.OnToggle(func(bool) error { return errors.New("no camera") })

	tr.handleToggle()
	if tr.IsEnabled() {
		t.Error("failed start must leave hands-free off")
	}
	if tr.Status() != "Camera unavailable" {
		t.Errorf("unexpected status %q", tr.Status())
	}
}

func TestTray_OpenAndStatus(t *testing.T) {
	tr := New()

	opened := false
	tr.OnOpen(func() { opened = true })
	tr.handleOpen()
	if !opened {
		t.Error("expected open callback")
	}

	tr.SetStatus("3 pending")
	tr.SetEnabled(true)
	if tr.Status() != "3 pending" || !tr.IsEnabled() {
		t.Errorf("unexpected state %q %v", tr.Status(), tr.IsEnabled())
	}
}
