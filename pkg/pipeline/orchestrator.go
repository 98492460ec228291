package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kimdw524/trendcast/internal/store"
	"github.com/kimdw524/trendcast/pkg/alert"
)

// Options control which optional stages run. Skipped stages leave their
// output fields empty and do not block completion.
type Options struct {
	SkipVideoSynthesis bool
	SkipThumbnails     bool
	SkipUpload         bool
}

// Orchestrator drives a video job through the pipeline stages in order,
// persisting every transition. Stages run strictly sequentially within a
// job; separate jobs run concurrently and share only the store and the
// progress tracker.
//
// There is no mid-pipeline retry: a stage failure finalizes the job as
// failed. RetryJob starts a brand-new job for the same topic instead of
// resuming, so completed stage work is deliberately discarded.
type Orchestrator struct {
	store    store.Store
	script   ScriptWriter
	narrator Narrator
	video    VideoSynthesizer
	thumbs   ThumbnailRenderer
	uploader Uploader
	progress *Tracker
	alerts   *alert.Manager
	opts     Options
}

// NewOrchestrator wires the orchestrator to its collaborators.
func NewOrchestrator(
	s store.Store,
	script ScriptWriter,
	narrator Narrator,
	video VideoSynthesizer,
	thumbs ThumbnailRenderer,
	uploader Uploader,
	progress *Tracker,
	alerts *alert.Manager,
	opts Options,
) *Orchestrator {
	if progress == nil {
		progress = NewTracker(0)
	}
	return &Orchestrator{
		store:    s,
		script:   script,
		narrator: narrator,
		video:    video,
		thumbs:   thumbs,
		uploader: uploader,
		progress: progress,
		alerts:   alerts,
		opts:     opts,
	}
}

// Progress exposes the tracker for the query surface.
func (o *Orchestrator) Progress() *Tracker { return o.progress }

// CreateJob persists a new job for a topic, starting at created.
func (o *Orchestrator) CreateJob(ctx context.Context, topic, category string) (*store.VideoJob, error) {
	if topic == "" {
		return nil, fmt.Errorf("create job: topic required")
	}
	if category == "" {
		category = "general"
	}

	job := &store.VideoJob{
		ID:       uuid.NewString(),
		Status:   store.JobCreated,
		Topic:    topic,
		Category: category,
	}
	if err := o.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job for %q: %w", topic, err)
	}

	o.progress.Update(job.ID, store.JobCreated, "job created")
	return job, nil
}

// Run executes the pipeline for a job until completed or failed. The
// returned error mirrors the failure recorded on the job; callers launching
// jobs in the background can ignore it.
func (o *Orchestrator) Run(ctx context.Context, job *store.VideoJob) error {
	fmt.Fprintf(os.Stderr, "job %s: starting pipeline for %q\n", job.ID, job.Topic)

	o.advance(ctx, job, store.JobScriptGeneration, "generating script")
	script, err := o.script.WriteScript(ctx, job.Topic, job.Category)
	if err != nil {
		return o.fail(ctx, job, "script generation", err)
	}
	job.ScriptText = script
	o.persist(ctx, job)

	o.advance(ctx, job, store.JobNarration, "synthesizing narration")
	narrationPath, err := o.narrator.Narrate(ctx, job.ID, job.ScriptText)
	if err != nil {
		return o.fail(ctx, job, "narration", err)
	}
	job.NarrationPath = narrationPath
	o.persist(ctx, job)

	if !o.opts.SkipVideoSynthesis {
		o.advance(ctx, job, store.JobVideoSynthesis, "rendering video")
		videoPath, err := o.video.Synthesize(ctx, job.ID, job.ScriptText, job.NarrationPath)
		if err != nil {
			return o.fail(ctx, job, "video synthesis", err)
		}
		job.VideoPath = videoPath
		o.persist(ctx, job)
	}

	if !o.opts.SkipThumbnails {
		o.advance(ctx, job, store.JobThumbnailGeneration, "rendering thumbnails")
		thumbs, err := o.thumbs.Render(ctx, job.ID, job.Topic)
		if err != nil {
			return o.fail(ctx, job, "thumbnail generation", err)
		}
		job.Thumbnails = thumbs
		o.persist(ctx, job)
	}

	if !o.opts.SkipUpload {
		o.advance(ctx, job, store.JobUpload, "uploading")
		uploadURL, err := o.uploader.Upload(ctx, job)
		if err != nil {
			return o.fail(ctx, job, "upload", err)
		}
		job.UploadURL = uploadURL
	}

	now := time.Now().UTC()
	job.Status = store.JobCompleted
	job.CompletedAt = &now
	o.persist(ctx, job)
	o.progress.Update(job.ID, store.JobCompleted, "completed")
	fmt.Fprintf(os.Stderr, "job %s: completed\n", job.ID)
	return nil
}

// RetryJob creates a brand-new job from a failed job's topic, restarting at
// created. No stage state carries over.
func (o *Orchestrator) RetryJob(ctx context.Context, jobID string) (*store.VideoJob, error) {
	old, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if old.Status != store.JobFailed {
		return nil, fmt.Errorf("retry job %s: status is %s, only failed jobs can be retried", jobID, old.Status)
	}
	return o.CreateJob(ctx, old.Topic, old.Category)
}

// advance moves the job to the next stage and records the transition.
func (o *Orchestrator) advance(ctx context.Context, job *store.VideoJob, stage store.JobStatus, message string) {
	job.Status = stage
	o.persist(ctx, job)
	o.progress.Update(job.ID, stage, message)
}

// persist writes the job best-effort. A storage failure is logged and the
// pipeline continues; it must never crash the process.
func (o *Orchestrator) persist(ctx context.Context, job *store.VideoJob) {
	if err := o.store.UpdateJob(ctx, job); err != nil {
		fmt.Fprintf(os.Stderr, "job %s: persist error: %v\n", job.ID, err)
	}
}

// fail finalizes the job as failed with a recorded message, notifies the
// alert sinks, and stops the pipeline.
func (o *Orchestrator) fail(ctx context.Context, job *store.VideoJob, stageName string, stageErr error) error {
	job.Status = store.JobFailed
	job.ErrorMessage = fmt.Sprintf("%s: %v", stageName, stageErr)
	o.persist(ctx, job)
	o.progress.Update(job.ID, store.JobFailed, job.ErrorMessage)

	fmt.Fprintf(os.Stderr, "job %s: failed at %s: %v\n", job.ID, stageName, stageErr)

	if o.alerts != nil && o.alerts.HasNotifiers() {
		notification := &alert.Notification{
			Kind:  alert.KindJobFailure,
			Title: fmt.Sprintf("Video job failed: %s", job.Topic),
			Body:  job.ErrorMessage,
			JobID: job.ID,
			Topic: job.Topic,
		}
		if err := o.alerts.Broadcast(ctx, notification); err != nil {
			fmt.Fprintf(os.Stderr, "job %s: alert error: %v\n", job.ID, err)
		}
	}

	return fmt.Errorf("job %s %s: %w", job.ID, stageName, stageErr)
}
