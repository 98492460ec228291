package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kimdw524/trendcast/internal/store"
)

// jobStore is an in-memory Store covering the job surface the orchestrator
// touches. Run and topic methods are inert.
type jobStore struct {
	jobs map[string]store.VideoJob
}

func newJobStore() *jobStore {
	return &jobStore{jobs: map[string]store.VideoJob{}}
}

func (s *jobStore) CreateRun(ctx context.Context, run *store.TrendRun) error  { return nil }
func (s *jobStore) FinishRun(ctx context.Context, run *store.TrendRun) error { return nil }
func (s *jobStore) ListRuns(ctx context.Context, limit int) ([]store.TrendRun, error) {
	return nil, nil
}
func (s *jobStore) CreateTopic(ctx context.Context, t *store.TrendingTopic) error { return nil }
func (s *jobStore) ListTopics(ctx context.Context, runID int64, limit int) ([]store.TrendingTopic, error) {
	return nil, nil
}

func (s *jobStore) CreateJob(ctx context.Context, job *store.VideoJob) error {
	s.jobs[job.ID] = *job
	return nil
}

func (s *jobStore) UpdateJob(ctx context.Context, job *store.VideoJob) error {
	s.jobs[job.ID] = *job
	return nil
}

func (s *jobStore) GetJob(ctx context.Context, id string) (*store.VideoJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &job, nil
}

func (s *jobStore) ListJobsByStatus(ctx context.Context, status store.JobStatus) ([]store.VideoJob, error) {
	var out []store.VideoJob
	for _, j := range s.jobs {
		if j.Status == status {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *jobStore) ListRecentJobs(ctx context.Context, limit int) ([]store.VideoJob, error) {
	var out []store.VideoJob
	for _, j := range s.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (s *jobStore) Close() error { return nil }

// Fake collaborators; each records whether it ran.

type fakeScript struct {
	called bool
	err    error
}

func (f *fakeScript) WriteScript(ctx context.Context, topic, category string) (string, error) {
	f.called = true
	if f.err != nil {
		return "", f.err
	}
	return "60초 안에 " + topic + "에 대해 알아봅니다.", nil
}

type fakeNarrator struct {
	called bool
	err    error
}

func (f *fakeNarrator) Narrate(ctx context.Context, jobID, script string) (string, error) {
	f.called = true
	if f.err != nil {
		return "", f.err
	}
	return "/media/" + jobID + "_narration.mp3", nil
}

type fakeSynthesizer struct {
	called bool
	err    error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, jobID, script, narrationPath string) (string, error) {
	f.called = true
	if f.err != nil {
		return "", f.err
	}
	return "/media/" + jobID + "_video.mp4", nil
}

type fakeThumbnails struct {
	called bool
	err    error
}

func (f *fakeThumbnails) Render(ctx context.Context, jobID, topic string) ([]string, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	return []string{"/media/" + jobID + "_thumb_1.png"}, nil
}

type fakeUploader struct {
	called bool
	err    error
}

func (f *fakeUploader) Upload(ctx context.Context, job *store.VideoJob) (string, error) {
	f.called = true
	if f.err != nil {
		return "", f.err
	}
	return "https://example.com/watch/" + job.ID, nil
}

type fixture struct {
	store    *jobStore
	script   *fakeScript
	narrator *fakeNarrator
	video    *fakeSynthesizer
	thumbs   *fakeThumbnails
	uploader *fakeUploader
	orch     *Orchestrator
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		store:    newJobStore(),
		script:   &fakeScript{},
		narrator: &fakeNarrator{},
		video:    &fakeSynthesizer{},
		thumbs:   &fakeThumbnails{},
		uploader: &fakeUploader{},
	}
	f.orch = NewOrchestrator(f.store, f.script, f.narrator, f.video, f.thumbs, f.uploader,
		NewTracker(time.Minute), nil, opts)
	return f
}

func TestRunFullPipeline(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()

	job, err := f.orch.CreateJob(ctx, "손흥민 해트트릭", "sports")
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.Status != store.JobCreated {
		t.Fatalf("new job status = %q, want created", job.Status)
	}

	if err := f.orch.Run(ctx, job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if job.Status != store.JobCompleted {
		t.Errorf("status = %q, want completed", job.Status)
	}
	if job.CompletedAt == nil {
		t.Error("completed job has no completion time")
	}
	if job.ScriptText == "" || job.NarrationPath == "" || job.VideoPath == "" || job.UploadURL == "" {
		t.Errorf("stage outputs missing: %+v", job)
	}
	if len(job.Thumbnails) == 0 {
		t.Error("no thumbnails recorded")
	}

	persisted, err := f.store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if persisted.Status != store.JobCompleted {
		t.Errorf("persisted status = %q, want completed", persisted.Status)
	}
}

func TestRunSkipsOptionalStages(t *testing.T) {
	f := newFixture(Options{SkipVideoSynthesis: true, SkipThumbnails: true, SkipUpload: true})
	ctx := context.Background()

	job, _ := f.orch.CreateJob(ctx, "환율 급등", "news")
	if err := f.orch.Run(ctx, job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if job.Status != store.JobCompleted {
		t.Errorf("status = %q, want completed despite skipped stages", job.Status)
	}
	if f.video.called || f.thumbs.called || f.uploader.called {
		t.Errorf("skipped stage invoked: video=%v thumbs=%v upload=%v",
			f.video.called, f.thumbs.called, f.uploader.called)
	}
	if job.VideoPath != "" || job.UploadURL != "" {
		t.Errorf("skipped stage left output: video=%q upload=%q", job.VideoPath, job.UploadURL)
	}
}

func TestRunScriptFailureStopsPipeline(t *testing.T) {
	f := newFixture(Options{})
	f.script.err = errors.New("llm: rate limited")
	ctx := context.Background()

	job, _ := f.orch.CreateJob(ctx, "급등주", "finance")
	err := f.orch.Run(ctx, job)
	if err == nil {
		t.Fatal("Run succeeded despite script failure")
	}

	if job.Status != store.JobFailed {
		t.Errorf("status = %q, want failed", job.Status)
	}
	if !strings.Contains(job.ErrorMessage, "script generation") {
		t.Errorf("error message %q does not name the failing stage", job.ErrorMessage)
	}
	if f.narrator.called || f.video.called || f.uploader.called {
		t.Error("downstream stage ran after failure")
	}
}

func TestRunUploadFailure(t *testing.T) {
	f := newFixture(Options{})
	f.uploader.err = errors.New("channel quota exceeded")
	ctx := context.Background()

	job, _ := f.orch.CreateJob(ctx, "전기차 보조금", "auto")
	if err := f.orch.Run(ctx, job); err == nil {
		t.Fatal("Run succeeded despite upload failure")
	}

	if job.Status != store.JobFailed {
		t.Errorf("status = %q, want failed", job.Status)
	}
	// Earlier stage outputs survive on the failed row for debugging.
	if job.VideoPath == "" {
		t.Error("video path lost on upload failure")
	}
	if job.CompletedAt != nil {
		t.Error("failed job has a completion time")
	}
}

func TestRetryJobCreatesFreshJob(t *testing.T) {
	f := newFixture(Options{})
	f.script.err = errors.New("boom")
	ctx := context.Background()

	job, _ := f.orch.CreateJob(ctx, "아이폰 17", "tech")
	f.orch.Run(ctx, job)

	retried, err := f.orch.RetryJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("RetryJob: %v", err)
	}
	if retried.ID == job.ID {
		t.Error("retry reused the failed job's id")
	}
	if retried.Topic != job.Topic || retried.Category != job.Category {
		t.Errorf("retry changed topic/category: %q/%q", retried.Topic, retried.Category)
	}
	if retried.Status != store.JobCreated {
		t.Errorf("retried job status = %q, want created", retried.Status)
	}
	if retried.ScriptText != "" || retried.ErrorMessage != "" {
		t.Error("retried job carried over stage state")
	}
}

func TestRetryJobRejectsNonFailed(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()

	job, _ := f.orch.CreateJob(ctx, "날씨", "general")
	f.orch.Run(ctx, job)

	if _, err := f.orch.RetryJob(ctx, job.ID); err == nil {
		t.Error("RetryJob accepted a completed job")
	}
	if _, err := f.orch.RetryJob(ctx, "no-such-id"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("RetryJob unknown id err = %v, want ErrNotFound", err)
	}
}

func TestCreateJobRequiresTopic(t *testing.T) {
	f := newFixture(Options{})
	if _, err := f.orch.CreateJob(context.Background(), "", "news"); err == nil {
		t.Error("CreateJob accepted an empty topic")
	}
}
