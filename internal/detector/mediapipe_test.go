package detector

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestMediaPipeDetector_RestartsAfterBrokenPipe(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	// The first process exits without answering; later ones answer every
	// frame with no hands.
	marker := filepath.Join(t.TempDir(), "started")
	script := `if [ -f "` + marker + `" ]; then echo '{"hands":[]}'; cat >/dev/null; else touch "` + marker + `"; exit 0; fi`
	d := &MediaPipeDetector{command: []string{"sh", "-c", script}}
	defer d.Close()

	if _, err := d.exchange([]byte("frame")); err == nil {
		t.Fatal("expected an error from a tracker that exited")
	}
	if d.started || d.stdin != nil {
		t.Fatal("a failed exchange should stop the tracker")
	}

	hands, err := d.exchange([]byte("frame"))
	if err != nil {
		t.Fatalf("exchange after restart: %v", err)
	}
	if len(hands) != 0 {
		t.Errorf("expected no hands, got %d", len(hands))
	}
	if !d.started {
		t.Error("expected the restarted tracker to stay up")
	}
}
