package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// JobStatus is the lifecycle state of a video job. Jobs only move forward
// through the pipeline order; failed is reachable from any non-terminal
// state.
type JobStatus string

const (
	JobCreated             JobStatus = "created"
	JobScriptGeneration    JobStatus = "script_generation"
	JobNarration           JobStatus = "narration"
	JobVideoSynthesis      JobStatus = "video_synthesis"
	JobThumbnailGeneration JobStatus = "thumbnail_generation"
	JobUpload              JobStatus = "upload"
	JobCompleted           JobStatus = "completed"
	JobFailed              JobStatus = "failed"
)

// JobStatusOrder is the forward progression of the pipeline.
var JobStatusOrder = []JobStatus{
	JobCreated,
	JobScriptGeneration,
	JobNarration,
	JobVideoSynthesis,
	JobThumbnailGeneration,
	JobUpload,
	JobCompleted,
}

// Terminal reports whether a job in this status will never move again.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// TrendRun is one discovery run, append-only: created at run start and
// finalized once at run end.
type TrendRun struct {
	ID            int64      `db:"id" json:"id"`
	Status        string     `db:"status" json:"status"`
	SourcesJSON   string     `db:"sources_used" json:"-"`
	SourcesUsed   []string   `db:"-" json:"sources_used"`
	TopicsFound   int        `db:"topics_found" json:"topics_found"`
	SelectedTopic string     `db:"selected_topic" json:"selected_topic"`
	ExecutionMs   int64      `db:"execution_ms" json:"execution_ms"`
	ErrorMessage  string     `db:"error_message" json:"error_message,omitempty"`
	StartedAt     time.Time  `db:"started_at" json:"started_at"`
	FinishedAt    *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}

// TrendingTopic is the flattened snapshot of one aggregated trend at
// selection time, keyed to the run that produced it.
type TrendingTopic struct {
	ID              int64     `db:"id" json:"id"`
	RunID           int64     `db:"run_id" json:"run_id"`
	Keyword         string    `db:"keyword" json:"keyword"`
	Category        string    `db:"category" json:"category"`
	AggregatedScore float64   `db:"aggregated_score" json:"aggregated_score"`
	PredictedViews  float64   `db:"predicted_views" json:"predicted_views"`
	Confidence      float64   `db:"confidence" json:"confidence"`
	Velocity        float64   `db:"velocity" json:"velocity"`
	CrossPlatform   bool      `db:"cross_platform" json:"cross_platform"`
	Selected        bool      `db:"selected" json:"selected"`
	SourcesJSON     string    `db:"sources" json:"-"`
	Sources         []string  `db:"-" json:"sources"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// VideoJob is one topic moving through the production pipeline. Mutated by
// the orchestrator at each stage boundary.
type VideoJob struct {
	ID             string     `db:"id" json:"id"`
	Status         JobStatus  `db:"status" json:"status"`
	Topic          string     `db:"topic" json:"topic"`
	Category       string     `db:"category" json:"category"`
	ScriptText     string     `db:"script_text" json:"script_text,omitempty"`
	NarrationPath  string     `db:"narration_path" json:"narration_path,omitempty"`
	VideoPath      string     `db:"video_path" json:"video_path,omitempty"`
	ThumbnailsJSON string     `db:"thumbnails" json:"-"`
	Thumbnails     []string   `db:"-" json:"thumbnails,omitempty"`
	UploadURL      string     `db:"upload_url" json:"upload_url,omitempty"`
	ErrorMessage   string     `db:"error_message" json:"error_message,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface.
type Store interface {
	CreateRun(ctx context.Context, run *TrendRun) error
	FinishRun(ctx context.Context, run *TrendRun) error
	ListRuns(ctx context.Context, limit int) ([]TrendRun, error)

	CreateTopic(ctx context.Context, t *TrendingTopic) error
	ListTopics(ctx context.Context, runID int64, limit int) ([]TrendingTopic, error)

	CreateJob(ctx context.Context, job *VideoJob) error
	UpdateJob(ctx context.Context, job *VideoJob) error
	GetJob(ctx context.Context, id string) (*VideoJob, error)
	ListJobsByStatus(ctx context.Context, status JobStatus) ([]VideoJob, error)
	ListRecentJobs(ctx context.Context, limit int) ([]VideoJob, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *TrendRun) error {
	sourcesJSON, _ := json.Marshal(run.SourcesUsed)
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trend_runs (status, sources_used, topics_found, selected_topic, execution_ms, error_message, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.Status, string(sourcesJSON), run.TopicsFound, run.SelectedTopic,
		run.ExecutionMs, run.ErrorMessage, run.StartedAt)
	if err != nil {
		return fmt.Errorf("insert trend run: %w", err)
	}
	run.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *TrendRun) error {
	sourcesJSON, _ := json.Marshal(run.SourcesUsed)
	now := time.Now().UTC()
	run.FinishedAt = &now

	_, err := s.db.ExecContext(ctx, `
		UPDATE trend_runs SET status = ?, sources_used = ?, topics_found = ?, selected_topic = ?,
			execution_ms = ?, error_message = ?, finished_at = ?
		WHERE id = ?
	`, run.Status, string(sourcesJSON), run.TopicsFound, run.SelectedTopic,
		run.ExecutionMs, run.ErrorMessage, run.FinishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("finish trend run %d: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]TrendRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []TrendRun
	err := s.db.SelectContext(ctx, &runs,
		"SELECT * FROM trend_runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list trend runs: %w", err)
	}
	for i := range runs {
		json.Unmarshal([]byte(runs[i].SourcesJSON), &runs[i].SourcesUsed)
	}
	return runs, nil
}

func (s *SQLiteStore) CreateTopic(ctx context.Context, t *TrendingTopic) error {
	sourcesJSON, _ := json.Marshal(t.Sources)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trending_topics (run_id, keyword, category, aggregated_score, predicted_views,
			confidence, velocity, cross_platform, selected, sources, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.RunID, t.Keyword, t.Category, t.AggregatedScore, t.PredictedViews,
		t.Confidence, t.Velocity, t.CrossPlatform, t.Selected, string(sourcesJSON), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert trending topic %q: %w", t.Keyword, err)
	}
	t.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) ListTopics(ctx context.Context, runID int64, limit int) ([]TrendingTopic, error) {
	query := "SELECT * FROM trending_topics WHERE 1=1"
	var args []any

	if runID > 0 {
		query += " AND run_id = ?"
		args = append(args, runID)
	}
	query += " ORDER BY created_at DESC, aggregated_score DESC"

	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var topics []TrendingTopic
	if err := s.db.SelectContext(ctx, &topics, query, args...); err != nil {
		return nil, fmt.Errorf("list trending topics: %w", err)
	}
	for i := range topics {
		json.Unmarshal([]byte(topics[i].SourcesJSON), &topics[i].Sources)
	}
	return topics, nil
}

func (s *SQLiteStore) CreateJob(ctx context.Context, job *VideoJob) error {
	thumbsJSON, _ := json.Marshal(job.Thumbnails)
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = JobCreated
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_jobs (id, status, topic, category, script_text, narration_path,
			video_path, thumbnails, upload_url, error_message, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.Status, job.Topic, job.Category, job.ScriptText, job.NarrationPath,
		job.VideoPath, string(thumbsJSON), job.UploadURL, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert video job %s: %w", job.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, job *VideoJob) error {
	thumbsJSON, _ := json.Marshal(job.Thumbnails)
	job.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		UPDATE video_jobs SET status = ?, topic = ?, category = ?, script_text = ?,
			narration_path = ?, video_path = ?, thumbnails = ?, upload_url = ?,
			error_message = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`, job.Status, job.Topic, job.Category, job.ScriptText, job.NarrationPath,
		job.VideoPath, string(thumbsJSON), job.UploadURL, job.ErrorMessage,
		job.UpdatedAt, job.CompletedAt, job.ID)
	if err != nil {
		return fmt.Errorf("update video job %s: %w", job.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*VideoJob, error) {
	var job VideoJob
	err := s.db.GetContext(ctx, &job, "SELECT * FROM video_jobs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("video job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get video job %s: %w", id, err)
	}
	json.Unmarshal([]byte(job.ThumbnailsJSON), &job.Thumbnails)
	return &job, nil
}

func (s *SQLiteStore) ListJobsByStatus(ctx context.Context, status JobStatus) ([]VideoJob, error) {
	var jobs []VideoJob
	err := s.db.SelectContext(ctx, &jobs,
		"SELECT * FROM video_jobs WHERE status = ? ORDER BY created_at DESC", status)
	if err != nil {
		return nil, fmt.Errorf("list jobs by status %s: %w", status, err)
	}
	for i := range jobs {
		json.Unmarshal([]byte(jobs[i].ThumbnailsJSON), &jobs[i].Thumbnails)
	}
	return jobs, nil
}

func (s *SQLiteStore) ListRecentJobs(ctx context.Context, limit int) ([]VideoJob, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []VideoJob
	err := s.db.SelectContext(ctx, &jobs,
		"SELECT * FROM video_jobs ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	for i := range jobs {
		json.Unmarshal([]byte(jobs[i].ThumbnailsJSON), &jobs[i].Thumbnails)
	}
	return jobs, nil
}
