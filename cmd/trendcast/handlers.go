package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kimdw524/trendcast/internal/config"
	"github.com/kimdw524/trendcast/internal/scheduler"
	"github.com/kimdw524/trendcast/internal/store"
	"github.com/kimdw524/trendcast/pkg/alert"
	"github.com/kimdw524/trendcast/pkg/pipeline"
	"github.com/kimdw524/trendcast/pkg/server"
	"github.com/kimdw524/trendcast/pkg/source"
	"github.com/kimdw524/trendcast/pkg/trend"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildAdapters(cfg *config.Config) []source.Adapter {
	var adapters []source.Adapter

	if cfg.Sources.Naver.Enabled {
		adapters = append(adapters, source.NewNaver(
			cfg.Sources.Naver.ClientID,
			cfg.Sources.Naver.ClientSecret,
			cfg.Sources.Naver.Keywords,
			cfg.Sources.Naver.ParseRequestDelay(),
		))
	}
	if cfg.Sources.YouTube.Enabled {
		adapters = append(adapters, source.NewYouTube(cfg.Sources.YouTube.APIKey, cfg.Sources.YouTube.MaxResults))
	}
	if cfg.Sources.Google.Enabled {
		adapters = append(adapters, source.NewGoogleTrends(cfg.Sources.Google.FeedURL))
	}

	return adapters
}

func buildEngine(cfg *config.Config, db store.Store) *trend.Engine {
	filter := source.NewFilter(cfg.Discovery.ExcludeKeywords)
	return trend.NewEngine(db, buildAdapters(cfg), filter,
		cfg.Discovery.Region,
		cfg.Discovery.ParseWindow(),
		cfg.Discovery.FallbackTopics,
	)
}

func buildOrchestrator(cfg *config.Config, db store.Store, alertMgr *alert.Manager) *pipeline.Orchestrator {
	p := cfg.Pipeline

	script := pipeline.NewScriptClient(p.Script.Provider, p.Script.Model, p.Script.APIKey, p.Script.BaseURL)
	narrator := pipeline.NewTTSClient(p.TTS.URL, p.TTS.APIKey, p.TTS.Voice, p.MediaDir)
	synth := pipeline.NewSynthesisClient(p.Video.URL, p.Video.APIKey, p.MediaDir,
		p.Video.ParsePollInterval(), p.Video.ParseTimeout())
	thumbs := pipeline.NewThumbnailClient(p.Thumbnail.URL, p.Thumbnail.APIKey, p.MediaDir, p.Thumbnail.Count)
	uploader := pipeline.NewUploadClient(p.Upload.URL, p.Upload.Token, p.Upload.ChannelID)

	opts := pipeline.Options{
		SkipVideoSynthesis: p.SkipVideoSynthesis,
		SkipThumbnails:     p.SkipThumbnails,
		SkipUpload:         p.SkipUpload,
	}

	return pipeline.NewOrchestrator(db, script, narrator, synth, thumbs, uploader,
		pipeline.NewTracker(60*time.Second), alertMgr, opts)
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func runDiscover(jsonOutput, createJob bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	engine := buildEngine(cfg, db)

	result, err := engine.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}

	if jsonOutput {
		topics, err := db.ListTopics(ctx, result.Run.ID, 50)
		if err != nil {
			return fmt.Errorf("list topics: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"run": result.Run, "topics": topics})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tVIEWS\tCONF\tSOURCES\tCATEGORY\tKEYWORD")
	for _, c := range result.Clusters {
		fmt.Fprintf(w, "%.1f\t%.0f\t%.2f\t%d\t%s\t%s\n",
			c.AggregatedScore, c.PredictedViews, c.Confidence,
			len(c.Members), c.Category, c.CanonicalKeyword)
	}
	w.Flush()
	fmt.Printf("\nselected: %s\n", result.Selected.CanonicalKeyword)

	if !createJob {
		return nil
	}

	alertMgr := buildAlertManager(cfg)
	orchestrator := buildOrchestrator(cfg, db, alertMgr)
	job, err := orchestrator.CreateJob(ctx, result.Selected.CanonicalKeyword, result.Selected.Category)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	fmt.Printf("running job %s...\n", job.ID)
	if err := orchestrator.Run(ctx, job); err != nil {
		return err
	}
	fmt.Printf("job %s completed\n", job.ID)
	return nil
}

func runJobs(limit int, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	jobs, err := db.ListRecentJobs(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	}

	if len(jobs) == 0 {
		fmt.Println("no jobs yet (run: trendcast discover --create-job)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "STATUS", "TOPIC", "CREATED", "ERROR"})
	for _, job := range jobs {
		errMsg := job.ErrorMessage
		if len(errMsg) > 40 {
			errMsg = errMsg[:40] + "..."
		}
		t.AppendRow(table.Row{
			job.ID[:8],
			job.Status,
			job.Topic,
			job.CreatedAt.Format("2006-01-02 15:04"),
			errMsg,
		})
	}
	t.Render()
	return nil
}

func runRetry(jobID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	alertMgr := buildAlertManager(cfg)
	orchestrator := buildOrchestrator(cfg, db, alertMgr)

	job, err := orchestrator.RetryJob(ctx, jobID)
	if err != nil {
		return err
	}

	fmt.Printf("retrying %s as new job %s (topic: %s)\n", jobID, job.ID, job.Topic)
	if err := orchestrator.Run(ctx, job); err != nil {
		return err
	}
	fmt.Printf("job %s completed\n", job.ID)
	return nil
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	alertMgr := buildAlertManager(cfg)
	engine := buildEngine(cfg, db)
	orchestrator := buildOrchestrator(cfg, db, alertMgr)

	srv := server.New(db, engine, orchestrator, port, cfg.Schedule.AutoCreateJobs)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	alertMgr := buildAlertManager(cfg)
	engine := buildEngine(cfg, db)
	orchestrator := buildOrchestrator(cfg, db, alertMgr)
	janitor := pipeline.NewJanitor(cfg.Pipeline.MediaDir, cfg.Pipeline.ParseMediaTTL())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(engine, orchestrator, janitor, alertMgr,
		cfg.Schedule.ParseDiscoverInterval(),
		cfg.Schedule.ParseCleanupInterval(),
		cfg.Schedule.AutoCreateJobs,
	)

	// Start scheduler in background.
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
		}
	}()

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	srv := server.New(db, engine, orchestrator, port, cfg.Schedule.AutoCreateJobs)
	return srv.ListenAndServe()
}
