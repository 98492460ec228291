package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/kimdw524/trendcast/internal/store"
)

// ErrStageTimeout means a stage's poll loop exceeded its bound. Treated by
// the orchestrator exactly like any other collaborator failure.
var ErrStageTimeout = errors.New("stage timed out")

// Stage collaborator contracts. Each collaborator is a black box that owns
// its own retry/backoff; the orchestrator calls it once per stage and takes
// the result as final.

// ScriptWriter turns a topic into narration-ready script text.
type ScriptWriter interface {
	WriteScript(ctx context.Context, topic, category string) (string, error)
}

// Narrator converts script text to an audio file and returns its path.
type Narrator interface {
	Narrate(ctx context.Context, jobID, script string) (string, error)
}

// VideoSynthesizer produces a video from script and narration and returns
// the video file path.
type VideoSynthesizer interface {
	Synthesize(ctx context.Context, jobID, script, narrationPath string) (string, error)
}

// ThumbnailRenderer produces one or more thumbnail images for a topic.
type ThumbnailRenderer interface {
	Render(ctx context.Context, jobID, topic string) ([]string, error)
}

// Uploader publishes the finished video and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, job *store.VideoJob) (string, error)
}

// progressTargets are the fixed percent each stage transition sets,
// calibrated to relative expected stage cost.
var progressTargets = map[store.JobStatus]float64{
	store.JobCreated:             5,
	store.JobScriptGeneration:    15,
	store.JobNarration:           30,
	store.JobVideoSynthesis:      50,
	store.JobThumbnailGeneration: 70,
	store.JobUpload:              85,
	store.JobCompleted:           100,
}

// withRetry runs fn up to attempts times with a fixed delay between tries.
// Collaborators use it for their internal retry; the orchestrator never
// retries across a stage boundary.
func withRetry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
