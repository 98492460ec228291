package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kimdw524/trendcast/internal/store"
)

func TestSynthesisClientPollsUntilDone(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/render":
			json.NewEncoder(w).Encode(map[string]string{"id": "r-1"})
		case strings.HasPrefix(r.URL.Path, "/render/"):
			if polls.Add(1) < 3 {
				json.NewEncoder(w).Encode(map[string]string{"status": "rendering"})
				return
			}
			json.NewEncoder(w).Encode(map[string]string{
				"status":    "done",
				"video_url": "http://" + r.Host + "/files/out.mp4",
			})
		case r.URL.Path == "/files/out.mp4":
			w.Write([]byte("mp4 bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	s := NewSynthesisClient(srv.URL, "key", dir, 5*time.Millisecond, time.Second)

	path, err := s.Synthesize(context.Background(), "job-1", "script", "/media/narration.mp3")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if path != filepath.Join(dir, "job-1_video.mp4") {
		t.Errorf("video path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "mp4 bytes" {
		t.Errorf("downloaded video content = %q, err %v", data, err)
	}
	if polls.Load() < 3 {
		t.Errorf("polled %d times, want at least 3", polls.Load())
	}
}

func TestSynthesisClientTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]string{"id": "r-2"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "rendering"})
	}))
	defer srv.Close()

	s := NewSynthesisClient(srv.URL, "", t.TempDir(), 5*time.Millisecond, 30*time.Millisecond)

	_, err := s.Synthesize(context.Background(), "job-2", "script", "")
	if !errors.Is(err, ErrStageTimeout) {
		t.Fatalf("err = %v, want ErrStageTimeout", err)
	}
}

func TestTTSClientWritesNarration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["voice"] != "ko-KR-standard" {
			t.Errorf("voice = %q", body["voice"])
		}
		w.Write([]byte("mp3 bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewTTSClient(srv.URL, "key", "ko-KR-standard", dir)

	path, err := c.Narrate(context.Background(), "job-1", "안녕하세요")
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if path != filepath.Join(dir, "job-1_narration.mp3") {
		t.Errorf("narration path = %q", path)
	}
	if data, _ := os.ReadFile(path); string(data) != "mp3 bytes" {
		t.Errorf("narration content = %q", data)
	}
}

func TestThumbnailClientRendersVariants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		fmt.Fprintf(w, "png variant %v", body["variant"])
	}))
	defer srv.Close()

	c := NewThumbnailClient(srv.URL, "", t.TempDir(), 3)
	paths, err := c.Render(context.Background(), "job-1", "손흥민")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("got %d thumbnails, want 3", len(paths))
	}
	for i, path := range paths {
		want := fmt.Sprintf("job-1_thumb_%d.png", i+1)
		if filepath.Base(path) != want {
			t.Errorf("thumbnail %d = %q, want %q", i, filepath.Base(path), want)
		}
	}
}

func TestUploadClientPublishes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("authorization = %q", got)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["title"] != "손흥민 해트트릭" || body["channel_id"] != "channel-1" {
			t.Errorf("upload payload = %v", body)
		}
		json.NewEncoder(w).Encode(map[string]string{"url": "https://example.com/watch/abc"})
	}))
	defer srv.Close()

	u := NewUploadClient(srv.URL, "token", "channel-1")
	url, err := u.Upload(context.Background(), &store.VideoJob{
		ID:         "job-1",
		Topic:      "손흥민 해트트릭",
		Category:   "sports",
		VideoPath:  "/media/job-1_video.mp4",
		Thumbnails: []string{"/media/job-1_thumb_1.png"},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://example.com/watch/abc" {
		t.Errorf("url = %q", url)
	}
}

func TestWithRetry(t *testing.T) {
	var calls atomic.Int32
	err := withRetry(context.Background(), 3, time.Millisecond, func() error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("fn called %d times, want 3", calls.Load())
	}

	calls.Store(0)
	err = withRetry(context.Background(), 2, time.Millisecond, func() error {
		calls.Add(1)
		return errors.New("permanent")
	})
	if err == nil || calls.Load() != 2 {
		t.Errorf("exhausted retry: err=%v calls=%d", err, calls.Load())
	}
}
