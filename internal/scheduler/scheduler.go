package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kimdw524/trendcast/pkg/alert"
	"github.com/kimdw524/trendcast/pkg/pipeline"
	"github.com/kimdw524/trendcast/pkg/trend"
)

// Scheduler runs periodic discovery and housekeeping. Each discovery run
// can launch a video job for the selected topic; jobs run detached and
// concurrently with later runs.
type Scheduler struct {
	engine       *trend.Engine
	orchestrator *pipeline.Orchestrator
	janitor      *pipeline.Janitor
	alertMgr     *alert.Manager
	discoverInt  time.Duration
	cleanupInt   time.Duration
	autoJobs     bool
}

// New creates a new scheduler.
func New(
	engine *trend.Engine,
	orchestrator *pipeline.Orchestrator,
	janitor *pipeline.Janitor,
	alertMgr *alert.Manager,
	discoverInt, cleanupInt time.Duration,
	autoJobs bool,
) *Scheduler {
	if discoverInt == 0 {
		discoverInt = 6 * time.Hour
	}
	if cleanupInt == 0 {
		cleanupInt = time.Hour
	}
	return &Scheduler{
		engine:       engine,
		orchestrator: orchestrator,
		janitor:      janitor,
		alertMgr:     alertMgr,
		discoverInt:  discoverInt,
		cleanupInt:   cleanupInt,
		autoJobs:     autoJobs,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	discoverTicker := time.NewTicker(s.discoverInt)
	cleanupTicker := time.NewTicker(s.cleanupInt)
	defer discoverTicker.Stop()
	defer cleanupTicker.Stop()

	// The progress arena sweeps on its own shorter cadence.
	go s.orchestrator.Progress().RunSweeper(ctx, 30*time.Second)

	// Run immediately on start.
	fmt.Fprintln(os.Stderr, "scheduler: initial discovery...")
	s.discoverAndLaunch(ctx)

	fmt.Fprintf(os.Stderr, "scheduler: running (discover every %s, cleanup every %s)\n",
		s.discoverInt, s.cleanupInt)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "scheduler: stopped")
			return ctx.Err()
		case <-discoverTicker.C:
			fmt.Fprintln(os.Stderr, "scheduler: discovering...")
			s.discoverAndLaunch(ctx)
		case <-cleanupTicker.C:
			s.janitor.Sweep(time.Now())
		}
	}
}

func (s *Scheduler) discoverAndLaunch(ctx context.Context) {
	result, err := s.engine.Discover(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  discovery error: %v\n", err)
		if errors.Is(err, trend.ErrNoTopicSelected) {
			s.alertRunFailure(ctx, "No topic could be selected from any source or the fallback list.")
		}
		return
	}

	selected := result.Selected
	fmt.Fprintf(os.Stderr, "  selected topic: %q (%.0f predicted views, confidence %.2f)\n",
		selected.CanonicalKeyword, selected.PredictedViews, selected.Confidence)

	if !s.autoJobs {
		return
	}

	job, err := s.orchestrator.CreateJob(ctx, selected.CanonicalKeyword, selected.Category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  job create error: %v\n", err)
		return
	}

	// The pipeline outlives this tick; it runs against the background
	// context so an in-flight job survives until process shutdown.
	go s.orchestrator.Run(context.Background(), job)
	fmt.Fprintf(os.Stderr, "  launched job %s\n", job.ID)
}

func (s *Scheduler) alertRunFailure(ctx context.Context, body string) {
	if !s.alertMgr.HasNotifiers() {
		return
	}
	notification := &alert.Notification{
		Kind:  alert.KindRunFailure,
		Title: "Trend discovery run failed",
		Body:  body,
	}
	if err := s.alertMgr.Broadcast(ctx, notification); err != nil {
		fmt.Fprintf(os.Stderr, "  alert error: %v\n", err)
	}
}
