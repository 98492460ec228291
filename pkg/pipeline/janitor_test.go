package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJanitorSweep(t *testing.T) {
	dir := t.TempDir()

	stale := filepath.Join(dir, "old_video.mp4")
	fresh := filepath.Join(dir, "new_narration.mp3")
	for _, path := range []string{stale, fresh} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	oldTime := time.Now().Add(-100 * time.Hour)
	if err := os.Chtimes(stale, oldTime, oldTime); err != nil {
		t.Fatal(err)
	}

	j := NewJanitor(dir, 72*time.Hour)
	if removed := j.Sweep(time.Now()); removed != 1 {
		t.Errorf("removed %d files, want 1", removed)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale file survived sweep")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh file removed: %v", err)
	}
}

func TestJanitorMissingDir(t *testing.T) {
	j := NewJanitor(filepath.Join(t.TempDir(), "does-not-exist"), time.Hour)
	if removed := j.Sweep(time.Now()); removed != 0 {
		t.Errorf("removed %d files from a missing dir", removed)
	}
}
