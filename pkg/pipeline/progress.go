package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kimdw524/trendcast/internal/store"
)

// Progress is the ephemeral, in-memory view of a job's advancement.
// Never persisted: a process restart loses it, while the job row in the
// store keeps its last committed status.
type Progress struct {
	JobID               string           `json:"job_id"`
	Stage               store.JobStatus  `json:"stage"`
	Percent             float64          `json:"percent"`
	Message             string           `json:"message"`
	StartTime           time.Time        `json:"start_time"`
	EstimatedCompletion time.Time        `json:"estimated_completion,omitempty"`

	terminalAt time.Time
}

// Tracker is the concurrency-safe arena of per-job progress. One map, one
// periodic sweep; no per-job timers.
type Tracker struct {
	mu       sync.RWMutex
	jobs     map[string]*Progress
	cooldown time.Duration
}

// NewTracker creates a progress tracker. Terminal entries are evicted by
// Sweep once they have been terminal for cooldown.
func NewTracker(cooldown time.Duration) *Tracker {
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	return &Tracker{
		jobs:     make(map[string]*Progress),
		cooldown: cooldown,
	}
}

// Update records a job's stage transition. Percent never decreases while
// the job is live; a terminal stage freezes the entry and starts the
// eviction cooldown.
func (t *Tracker) Update(jobID string, stage store.JobStatus, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.jobs[jobID]
	if !ok {
		p = &Progress{JobID: jobID, StartTime: time.Now()}
		t.jobs[jobID] = p
	}
	if !p.terminalAt.IsZero() {
		return
	}

	percent := progressTargets[stage]
	if stage == store.JobFailed {
		percent = p.Percent // failure keeps the last reached percent
	}
	if percent > p.Percent {
		p.Percent = percent
	}
	p.Stage = stage
	p.Message = message

	// Linear extrapolation: start + elapsed/percent*100.
	if p.Percent > 0 && p.Percent < 100 {
		elapsed := time.Since(p.StartTime)
		total := time.Duration(float64(elapsed) / p.Percent * 100)
		p.EstimatedCompletion = p.StartTime.Add(total)
	}

	if stage.Terminal() {
		p.terminalAt = time.Now()
		if stage == store.JobCompleted {
			p.Percent = 100
		}
	}
}

// Get returns a copy of a job's progress.
func (t *Tracker) Get(jobID string) (Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.jobs[jobID]
	if !ok {
		return Progress{}, false
	}
	return *p, true
}

// Active returns all live (non-terminal) entries, oldest first.
func (t *Tracker) Active() []Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var active []Progress
	for _, p := range t.jobs {
		if p.terminalAt.IsZero() {
			active = append(active, *p)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].StartTime.Before(active[j].StartTime)
	})
	return active
}

// Sweep evicts terminal entries past the cooldown and returns how many
// were removed.
func (t *Tracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, p := range t.jobs {
		if !p.terminalAt.IsZero() && now.Sub(p.terminalAt) >= t.cooldown {
			delete(t.jobs, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps on a ticker until ctx is cancelled.
func (t *Tracker) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep(time.Now())
		}
	}
}
