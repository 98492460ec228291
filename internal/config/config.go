package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Sources   SourcesConfig   `yaml:"sources"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Server    ServerConfig    `yaml:"server"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig configures the daemon's periodic work.
type ScheduleConfig struct {
	DiscoverInterval string `yaml:"discover_interval"`
	CleanupInterval  string `yaml:"cleanup_interval"`
	AutoCreateJobs   bool   `yaml:"auto_create_jobs"`
}

// ParseDiscoverInterval returns the discovery interval as time.Duration.
func (s ScheduleConfig) ParseDiscoverInterval() time.Duration {
	d, err := time.ParseDuration(s.DiscoverInterval)
	if err != nil {
		return 6 * time.Hour
	}
	return d
}

// ParseCleanupInterval returns the cleanup interval as time.Duration.
func (s ScheduleConfig) ParseCleanupInterval() time.Duration {
	d, err := time.ParseDuration(s.CleanupInterval)
	if err != nil {
		return time.Hour
	}
	return d
}

// DiscoveryConfig configures the trend discovery run.
type DiscoveryConfig struct {
	Region          string   `yaml:"region"`
	Window          string   `yaml:"window"`
	FallbackTopics  []string `yaml:"fallback_topics"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
}

// ParseWindow returns the observation window as time.Duration.
func (d DiscoveryConfig) ParseWindow() time.Duration {
	w, err := time.ParseDuration(d.Window)
	if err != nil {
		return 24 * time.Hour
	}
	return w
}

// SourcesConfig holds configuration for all trend sources.
type SourcesConfig struct {
	Naver   NaverConfig   `yaml:"naver"`
	YouTube YouTubeConfig `yaml:"youtube"`
	Google  GoogleConfig  `yaml:"google"`
}

// NaverConfig for the Naver DataLab collector.
type NaverConfig struct {
	Enabled      bool     `yaml:"enabled"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Keywords     []string `yaml:"keywords"`
	RequestDelay string   `yaml:"request_delay"`
}

// ParseRequestDelay returns the inter-request delay as time.Duration.
func (n NaverConfig) ParseRequestDelay() time.Duration {
	d, err := time.ParseDuration(n.RequestDelay)
	if err != nil {
		return 300 * time.Millisecond
	}
	return d
}

// YouTubeConfig for the YouTube most-popular collector.
type YouTubeConfig struct {
	Enabled    bool   `yaml:"enabled"`
	APIKey     string `yaml:"api_key"`
	MaxResults int    `yaml:"max_results"`
}

// GoogleConfig for the Google Trends RSS collector.
type GoogleConfig struct {
	Enabled bool   `yaml:"enabled"`
	FeedURL string `yaml:"feed_url"`
}

// PipelineConfig configures the video production pipeline.
type PipelineConfig struct {
	MediaDir           string `yaml:"media_dir"`
	MediaTTL           string `yaml:"media_ttl"`
	SkipVideoSynthesis bool   `yaml:"skip_video_synthesis"`
	SkipThumbnails     bool   `yaml:"skip_thumbnails"`
	SkipUpload         bool   `yaml:"skip_upload"`

	Script    ScriptConfig    `yaml:"script"`
	TTS       TTSConfig       `yaml:"tts"`
	Video     VideoConfig     `yaml:"video"`
	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	Upload    UploadConfig    `yaml:"upload"`
}

// ParseMediaTTL returns the generated-media TTL as time.Duration.
func (p PipelineConfig) ParseMediaTTL() time.Duration {
	d, err := time.ParseDuration(p.MediaTTL)
	if err != nil {
		return 72 * time.Hour
	}
	return d
}

// ScriptConfig configures the LLM script writer.
type ScriptConfig struct {
	Provider string `yaml:"provider"` // "openai" or "anthropic"
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

// TTSConfig configures the narration collaborator.
type TTSConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Voice  string `yaml:"voice"`
}

// VideoConfig configures the video synthesis collaborator.
type VideoConfig struct {
	URL          string `yaml:"url"`
	APIKey       string `yaml:"api_key"`
	PollInterval string `yaml:"poll_interval"`
	Timeout      string `yaml:"timeout"`
}

// ParsePollInterval returns the synthesis poll interval as time.Duration.
func (v VideoConfig) ParsePollInterval() time.Duration {
	d, err := time.ParseDuration(v.PollInterval)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// ParseTimeout returns the synthesis poll cap as time.Duration.
func (v VideoConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(v.Timeout)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// ThumbnailConfig configures the thumbnail collaborator.
type ThumbnailConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Count  int    `yaml:"count"`
}

// UploadConfig configures the publish collaborator.
type UploadConfig struct {
	URL       string `yaml:"url"`
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// AlertsConfig configures alert destinations.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./trendcast.db"},
		Schedule: ScheduleConfig{
			DiscoverInterval: "6h",
			CleanupInterval:  "1h",
			AutoCreateJobs:   true,
		},
		Discovery: DiscoveryConfig{
			Region: "KR",
			Window: "24h",
			FallbackTopics: []string{
				"오늘의 주요 뉴스",
				"이번 주 화제의 인물",
				"최신 기술 트렌드",
			},
		},
		Sources: SourcesConfig{
			Naver: NaverConfig{
				Enabled: true,
				Keywords: []string{
					"날씨", "주식", "환율", "영화", "드라마",
					"게임", "여행", "부동산", "스포츠", "음악",
				},
				RequestDelay: "300ms",
			},
			YouTube: YouTubeConfig{Enabled: true, MaxResults: 25},
			Google:  GoogleConfig{Enabled: true},
		},
		Pipeline: PipelineConfig{
			MediaDir: "./media",
			MediaTTL: "72h",
			Script:   ScriptConfig{Provider: "openai", Model: "gpt-4o-mini"},
			TTS:      TTSConfig{Voice: "ko-KR-standard"},
			Video:    VideoConfig{PollInterval: "10s", Timeout: "10m"},
			Thumbnail: ThumbnailConfig{
				Count: 2,
			},
		},
		Alerts: AlertsConfig{},
		Server: ServerConfig{Port: 8080},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRENDCAST_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("NAVER_CLIENT_ID"); v != "" {
		cfg.Sources.Naver.ClientID = v
	}
	if v := os.Getenv("NAVER_CLIENT_SECRET"); v != "" {
		cfg.Sources.Naver.ClientSecret = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.Sources.YouTube.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Pipeline.Script.APIKey = v
		cfg.Pipeline.Script.Provider = "openai"
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Pipeline.Script.APIKey = v
		cfg.Pipeline.Script.Provider = "anthropic"
	}
	if v := os.Getenv("TTS_API_KEY"); v != "" {
		cfg.Pipeline.TTS.APIKey = v
	}
	if v := os.Getenv("UPLOAD_TOKEN"); v != "" {
		cfg.Pipeline.Upload.Token = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
}
