package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kimdw524/trendcast/internal/store"
)

// TTSClient converts script text to narration audio through an HTTP
// text-to-speech API.
type TTSClient struct {
	client   *http.Client
	url      string
	apiKey   string
	voice    string
	mediaDir string
	retries  int
}

// NewTTSClient creates a narration collaborator writing audio files under
// mediaDir.
func NewTTSClient(url, apiKey, voice, mediaDir string) *TTSClient {
	return &TTSClient{
		client:   &http.Client{Timeout: 2 * time.Minute},
		url:      url,
		apiKey:   apiKey,
		voice:    voice,
		mediaDir: mediaDir,
		retries:  2,
	}
}

func (t *TTSClient) Narrate(ctx context.Context, jobID, script string) (string, error) {
	if t.url == "" {
		return "", fmt.Errorf("narrator: endpoint required")
	}

	payload, _ := json.Marshal(map[string]string{
		"text":  script,
		"voice": t.voice,
	})

	outPath := filepath.Join(t.mediaDir, jobID+"_narration.mp3")

	err := withRetry(ctx, t.retries+1, 3*time.Second, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create tts request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if t.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+t.apiKey)
		}

		resp, err := t.client.Do(req)
		if err != nil {
			return fmt.Errorf("call tts: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("tts status %d", resp.StatusCode)
		}

		if err := os.MkdirAll(t.mediaDir, 0o755); err != nil {
			return fmt.Errorf("create media dir: %w", err)
		}
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create narration file: %w", err)
		}
		defer f.Close()

		if _, err := io.Copy(f, resp.Body); err != nil {
			return fmt.Errorf("write narration file: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return outPath, nil
}

// SynthesisClient drives an asynchronous video generation API: submit a
// render request, then poll until done or the bound expires.
type SynthesisClient struct {
	client       *http.Client
	url          string
	apiKey       string
	mediaDir     string
	pollInterval time.Duration
	timeout      time.Duration
}

// NewSynthesisClient creates a video synthesis collaborator. The poll loop
// is capped: exceeding it surfaces as ErrStageTimeout.
func NewSynthesisClient(url, apiKey, mediaDir string, pollInterval, timeout time.Duration) *SynthesisClient {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &SynthesisClient{
		client:       &http.Client{Timeout: 60 * time.Second},
		url:          url,
		apiKey:       apiKey,
		mediaDir:     mediaDir,
		pollInterval: pollInterval,
		timeout:      timeout,
	}
}

func (s *SynthesisClient) Synthesize(ctx context.Context, jobID, script, narrationPath string) (string, error) {
	if s.url == "" {
		return "", fmt.Errorf("synthesizer: endpoint required")
	}

	renderID, err := s.submit(ctx, jobID, script, narrationPath)
	if err != nil {
		return "", err
	}

	deadline := time.Now().Add(s.timeout)
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.pollInterval):
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("video synthesis after %s: %w", s.timeout, ErrStageTimeout)
		}

		done, videoURL, err := s.poll(ctx, renderID)
		if err != nil {
			// Transient poll errors don't kill the render; keep waiting.
			fmt.Fprintf(os.Stderr, "  synthesis poll error: %v\n", err)
			continue
		}
		if done {
			return s.download(ctx, jobID, videoURL)
		}
	}
}

func (s *SynthesisClient) submit(ctx context.Context, jobID, script, narrationPath string) (string, error) {
	payload, _ := json.Marshal(map[string]string{
		"job_ref":   jobID,
		"script":    script,
		"narration": narrationPath,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url+"/render", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit render: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("render submit status %d", resp.StatusCode)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode render submit: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("render submit: no render id returned")
	}
	return result.ID, nil
}

func (s *SynthesisClient) poll(ctx context.Context, renderID string) (bool, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"/render/"+renderID, nil)
	if err != nil {
		return false, "", fmt.Errorf("create poll request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("poll render: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("render poll status %d", resp.StatusCode)
	}

	var result struct {
		Status   string `json:"status"` // queued|rendering|done|failed
		VideoURL string `json:"video_url"`
		Error    string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, "", fmt.Errorf("decode render poll: %w", err)
	}

	switch result.Status {
	case "done":
		return true, result.VideoURL, nil
	case "failed":
		return false, "", fmt.Errorf("render failed: %s", result.Error)
	default:
		return false, "", nil
	}
}

func (s *SynthesisClient) download(ctx context.Context, jobID, videoURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return "", fmt.Errorf("create video download request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("video download status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	outPath := filepath.Join(s.mediaDir, jobID+"_video.mp4")
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create video file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("write video file: %w", err)
	}
	return outPath, nil
}

// ThumbnailClient renders thumbnail candidates through an HTTP image API.
type ThumbnailClient struct {
	client   *http.Client
	url      string
	apiKey   string
	mediaDir string
	count    int
	retries  int
}

// NewThumbnailClient creates a thumbnail collaborator producing count
// candidate images per job.
func NewThumbnailClient(url, apiKey, mediaDir string, count int) *ThumbnailClient {
	if count <= 0 {
		count = 2
	}
	return &ThumbnailClient{
		client:   &http.Client{Timeout: 90 * time.Second},
		url:      url,
		apiKey:   apiKey,
		mediaDir: mediaDir,
		count:    count,
		retries:  2,
	}
}

func (t *ThumbnailClient) Render(ctx context.Context, jobID, topic string) ([]string, error) {
	if t.url == "" {
		return nil, fmt.Errorf("thumbnail renderer: endpoint required")
	}

	var paths []string
	for i := 0; i < t.count; i++ {
		outPath := filepath.Join(t.mediaDir, fmt.Sprintf("%s_thumb_%d.png", jobID, i+1))

		err := withRetry(ctx, t.retries+1, 2*time.Second, func() error {
			payload, _ := json.Marshal(map[string]any{
				"topic":   topic,
				"variant": i + 1,
			})
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("create thumbnail request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			if t.apiKey != "" {
				req.Header.Set("Authorization", "Bearer "+t.apiKey)
			}

			resp, err := t.client.Do(req)
			if err != nil {
				return fmt.Errorf("call thumbnail renderer: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("thumbnail status %d", resp.StatusCode)
			}

			if err := os.MkdirAll(t.mediaDir, 0o755); err != nil {
				return fmt.Errorf("create media dir: %w", err)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create thumbnail file: %w", err)
			}
			defer f.Close()

			if _, err := io.Copy(f, resp.Body); err != nil {
				return fmt.Errorf("write thumbnail file: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		paths = append(paths, outPath)
	}

	return paths, nil
}

// UploadClient publishes the finished video through an HTTP upload API and
// returns the public URL.
type UploadClient struct {
	client  *http.Client
	url     string
	token   string
	channel string
	retries int
}

// NewUploadClient creates an upload collaborator.
func NewUploadClient(url, token, channel string) *UploadClient {
	return &UploadClient{
		client:  &http.Client{Timeout: 5 * time.Minute},
		url:     url,
		token:   token,
		channel: channel,
		retries: 2,
	}
}

func (u *UploadClient) Upload(ctx context.Context, job *store.VideoJob) (string, error) {
	if u.url == "" {
		return "", fmt.Errorf("uploader: endpoint required")
	}

	thumbnail := ""
	if len(job.Thumbnails) > 0 {
		thumbnail = job.Thumbnails[0]
	}
	payload, _ := json.Marshal(map[string]string{
		"title":      job.Topic,
		"category":   job.Category,
		"video":      job.VideoPath,
		"thumbnail":  thumbnail,
		"channel_id": u.channel,
	})

	var publicURL string
	err := withRetry(ctx, u.retries+1, 5*time.Second, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create upload request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if u.token != "" {
			req.Header.Set("Authorization", "Bearer "+u.token)
		}

		resp, err := u.client.Do(req)
		if err != nil {
			return fmt.Errorf("call uploader: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("upload status %d", resp.StatusCode)
		}

		var result struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decode upload response: %w", err)
		}
		if result.URL == "" {
			return fmt.Errorf("uploader: no url returned")
		}
		publicURL = result.URL
		return nil
	})
	if err != nil {
		return "", err
	}
	return publicURL, nil
}
