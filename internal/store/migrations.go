package store

const schema = `
CREATE TABLE IF NOT EXISTS trend_runs (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    status         TEXT NOT NULL DEFAULT 'running',
    sources_used   TEXT NOT NULL DEFAULT '[]',
    topics_found   INTEGER NOT NULL DEFAULT 0,
    selected_topic TEXT NOT NULL DEFAULT '',
    execution_ms   INTEGER NOT NULL DEFAULT 0,
    error_message  TEXT NOT NULL DEFAULT '',
    started_at     DATETIME NOT NULL,
    finished_at    DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON trend_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON trend_runs(status);

CREATE TABLE IF NOT EXISTS trending_topics (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id           INTEGER NOT NULL REFERENCES trend_runs(id),
    keyword          TEXT NOT NULL,
    category         TEXT NOT NULL DEFAULT 'general',
    aggregated_score REAL NOT NULL DEFAULT 0,
    predicted_views  REAL NOT NULL DEFAULT 0,
    confidence       REAL NOT NULL DEFAULT 0,
    velocity         REAL NOT NULL DEFAULT 0,
    cross_platform   BOOLEAN NOT NULL DEFAULT 0,
    selected         BOOLEAN NOT NULL DEFAULT 0,
    sources          TEXT NOT NULL DEFAULT '[]',
    created_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_topics_run ON trending_topics(run_id);
CREATE INDEX IF NOT EXISTS idx_topics_score ON trending_topics(aggregated_score);

CREATE TABLE IF NOT EXISTS video_jobs (
    id             TEXT PRIMARY KEY,
    status         TEXT NOT NULL DEFAULT 'created',
    topic          TEXT NOT NULL,
    category       TEXT NOT NULL DEFAULT 'general',
    script_text    TEXT NOT NULL DEFAULT '',
    narration_path TEXT NOT NULL DEFAULT '',
    video_path     TEXT NOT NULL DEFAULT '',
    thumbnails     TEXT NOT NULL DEFAULT '[]',
    upload_url     TEXT NOT NULL DEFAULT '',
    error_message  TEXT NOT NULL DEFAULT '',
    created_at     DATETIME NOT NULL,
    updated_at     DATETIME NOT NULL,
    completed_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON video_jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created ON video_jobs(created_at);
`
