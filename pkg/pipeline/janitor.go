package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Janitor deletes generated media files past their TTL. Cleanup is
// advisory-only: it does not cross-check the database for rows still
// referencing a file, so a very old job can end up with dangling paths.
// That inconsistency is accepted; completed uploads no longer need the
// local files.
type Janitor struct {
	mediaDir string
	ttl      time.Duration
}

// NewJanitor creates a media janitor for mediaDir.
func NewJanitor(mediaDir string, ttl time.Duration) *Janitor {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Janitor{mediaDir: mediaDir, ttl: ttl}
}

// Sweep removes files older than the TTL and returns how many were
// deleted. A missing media dir is not an error.
func (j *Janitor) Sweep(now time.Time) int {
	entries, err := os.ReadDir(j.mediaDir)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "janitor: read media dir: %v\n", err)
		}
		return 0
	}

	removed := 0
	cutoff := now.Add(-j.ttl)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(j.mediaDir, entry.Name())
		if err := os.Remove(path); err != nil {
			fmt.Fprintf(os.Stderr, "janitor: remove %s: %v\n", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		fmt.Fprintf(os.Stderr, "janitor: removed %d stale media files\n", removed)
	}
	return removed
}

// Run sweeps on a ticker until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(time.Now())
		}
	}
}
