package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Discovery.Region != "KR" {
		t.Errorf("region = %q, want KR", cfg.Discovery.Region)
	}
	if got := cfg.Schedule.ParseDiscoverInterval(); got != 6*time.Hour {
		t.Errorf("discover interval = %v, want 6h", got)
	}
	if got := cfg.Pipeline.ParseMediaTTL(); got != 72*time.Hour {
		t.Errorf("media ttl = %v, want 72h", got)
	}
	if got := cfg.Pipeline.Video.ParseTimeout(); got != 10*time.Minute {
		t.Errorf("video timeout = %v, want 10m", got)
	}
	if len(cfg.Discovery.FallbackTopics) == 0 {
		t.Error("no fallback topics")
	}
	if len(cfg.Sources.Naver.Keywords) == 0 {
		t.Error("no naver seed keywords")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
database:
  path: /var/lib/trendcast/trendcast.db
schedule:
  discover_interval: 2h
discovery:
  region: US
  exclude_keywords: ["도박", "사기"]
sources:
  youtube:
    enabled: false
pipeline:
  skip_upload: true
server:
  port: 9090
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "/var/lib/trendcast/trendcast.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if got := cfg.Schedule.ParseDiscoverInterval(); got != 2*time.Hour {
		t.Errorf("discover interval = %v, want 2h", got)
	}
	if cfg.Discovery.Region != "US" {
		t.Errorf("region = %q, want US", cfg.Discovery.Region)
	}
	if len(cfg.Discovery.ExcludeKeywords) != 2 {
		t.Errorf("exclude keywords = %v", cfg.Discovery.ExcludeKeywords)
	}
	if cfg.Sources.YouTube.Enabled {
		t.Error("youtube still enabled")
	}
	if !cfg.Sources.Naver.Enabled {
		t.Error("untouched naver default lost")
	}
	if !cfg.Pipeline.SkipUpload {
		t.Error("skip_upload not applied")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load succeeded on a missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRENDCAST_DB_PATH", "/tmp/override.db")
	t.Setenv("NAVER_CLIENT_ID", "cid")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T/B/x")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Sources.Naver.ClientID != "cid" {
		t.Errorf("naver client id = %q", cfg.Sources.Naver.ClientID)
	}
	if cfg.Pipeline.Script.Provider != "anthropic" || cfg.Pipeline.Script.APIKey != "sk-test" {
		t.Errorf("script config = %+v", cfg.Pipeline.Script)
	}
	if !cfg.Alerts.Slack.Enabled || cfg.Alerts.Slack.WebhookURL == "" {
		t.Error("slack webhook env did not enable slack alerts")
	}
}
