package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "trendcast.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	run := &TrendRun{Status: RunRunning, SourcesUsed: []string{"naver", "google"}}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("run id not assigned")
	}

	run.Status = RunCompleted
	run.TopicsFound = 7
	run.SelectedTopic = "손흥민 해트트릭"
	run.ExecutionMs = 1234
	if err := s.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	if run.FinishedAt == nil {
		t.Error("FinishRun did not stamp finished_at")
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.Status != RunCompleted || got.SelectedTopic != "손흥민 해트트릭" || got.TopicsFound != 7 {
		t.Errorf("round-tripped run mismatch: %+v", got)
	}
	if len(got.SourcesUsed) != 2 || got.SourcesUsed[0] != "naver" {
		t.Errorf("sources round-trip failed: %v", got.SourcesUsed)
	}
}

func TestTopicsScopedToRun(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := &TrendRun{}
	second := &TrendRun{}
	if err := s.CreateRun(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateRun(ctx, second); err != nil {
		t.Fatal(err)
	}

	topics := []*TrendingTopic{
		{RunID: first.ID, Keyword: "환율", Category: "finance", AggregatedScore: 80, Selected: true, Sources: []string{"naver"}},
		{RunID: first.ID, Keyword: "날씨", Category: "general", AggregatedScore: 20},
		{RunID: second.ID, Keyword: "아이폰 17", Category: "tech", AggregatedScore: 95, Selected: true},
	}
	for _, topic := range topics {
		if err := s.CreateTopic(ctx, topic); err != nil {
			t.Fatalf("CreateTopic %q: %v", topic.Keyword, err)
		}
	}

	scoped, err := s.ListTopics(ctx, first.ID, 0)
	if err != nil {
		t.Fatalf("ListTopics: %v", err)
	}
	if len(scoped) != 2 {
		t.Fatalf("got %d topics for run %d, want 2", len(scoped), first.ID)
	}
	for _, topic := range scoped {
		if topic.RunID != first.ID {
			t.Errorf("topic %q leaked from run %d", topic.Keyword, topic.RunID)
		}
	}

	all, err := s.ListTopics(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListTopics all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d topics unscoped, want 3", len(all))
	}
}

func TestJobCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	job := &VideoJob{
		ID:       "c2c5f934-1c5e-4a1a-9a36-7a0d2f3cce01",
		Topic:    "비트코인 ETF",
		Category: "finance",
	}
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.Status != JobCreated {
		t.Errorf("default status = %q, want created", job.Status)
	}

	job.Status = JobUpload
	job.ScriptText = "오늘의 주제는 비트코인 ETF입니다."
	job.NarrationPath = "/media/narration.mp3"
	job.Thumbnails = []string{"/media/thumb_1.png", "/media/thumb_2.png"}
	if err := s.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != JobUpload || got.ScriptText != job.ScriptText {
		t.Errorf("round-tripped job mismatch: %+v", got)
	}
	if len(got.Thumbnails) != 2 || got.Thumbnails[1] != "/media/thumb_2.png" {
		t.Errorf("thumbnails round-trip failed: %v", got.Thumbnails)
	}

	now := time.Now().UTC()
	job.Status = JobCompleted
	job.CompletedAt = &now
	if err := s.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob completed: %v", err)
	}
	got, _ = s.GetJob(ctx, job.ID)
	if got.CompletedAt == nil {
		t.Error("completed_at not persisted")
	}
}

func TestGetJobNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetJob(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListJobsByStatus(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	jobs := []*VideoJob{
		{ID: "a", Topic: "t1", Status: JobFailed, ErrorMessage: "narration: tts unavailable"},
		{ID: "b", Topic: "t2", Status: JobCompleted},
		{ID: "c", Topic: "t3", Status: JobFailed, ErrorMessage: "upload: quota"},
	}
	for _, job := range jobs {
		if err := s.CreateJob(ctx, job); err != nil {
			t.Fatal(err)
		}
	}

	failed, err := s.ListJobsByStatus(ctx, JobFailed)
	if err != nil {
		t.Fatalf("ListJobsByStatus: %v", err)
	}
	if len(failed) != 2 {
		t.Fatalf("got %d failed jobs, want 2", len(failed))
	}
	for _, job := range failed {
		if job.ErrorMessage == "" {
			t.Errorf("failed job %s has no error message", job.ID)
		}
	}

	recent, err := s.ListRecentJobs(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentJobs: %v", err)
	}
	if len(recent) != 3 {
		t.Errorf("got %d recent jobs, want 3", len(recent))
	}
}

func TestJobStatusTerminal(t *testing.T) {
	for _, status := range JobStatusOrder {
		wantTerminal := status == JobCompleted
		if status.Terminal() != wantTerminal {
			t.Errorf("%s.Terminal() = %v, want %v", status, status.Terminal(), wantTerminal)
		}
	}
	if !JobFailed.Terminal() {
		t.Error("failed must be terminal")
	}
}
