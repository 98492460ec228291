package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// YouTube collects the most-popular chart for a region via the Data API v3.
// Video titles become trend keywords; views and engagement ratios become the
// source metrics.
type YouTube struct {
	client     *http.Client
	apiKey     string
	maxResults int
}

// NewYouTube creates a new YouTube trending collector.
func NewYouTube(apiKey string, maxResults int) *YouTube {
	if maxResults <= 0 || maxResults > 50 {
		maxResults = 25
	}
	return &YouTube{
		client:     &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		maxResults: maxResults,
	}
}

func (y *YouTube) Name() SourceType { return SourceYouTube }

func (y *YouTube) FetchObservations(ctx context.Context, region string, window time.Duration) ([]Observation, error) {
	if y.apiKey == "" {
		return nil, fmt.Errorf("youtube: API key required (set YOUTUBE_API_KEY)")
	}
	if region == "" {
		region = "KR"
	}

	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("chart", "mostPopular")
	params.Set("regionCode", region)
	params.Set("maxResults", fmt.Sprintf("%d", y.maxResults))
	params.Set("key", y.apiKey)

	reqURL := "https://www.googleapis.com/youtube/v3/videos?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create youtube request: %w", err)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch youtube chart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube chart status %d", resp.StatusCode)
	}

	var result ytChartResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode youtube chart: %w", err)
	}

	cutoff := time.Time{}
	if window > 0 {
		cutoff = time.Now().Add(-window)
	}

	var observations []Observation
	for _, video := range result.Items {
		if video.Snippet.Title == "" {
			continue
		}
		if !cutoff.IsZero() && !video.Snippet.PublishedAt.IsZero() && video.Snippet.PublishedAt.Before(cutoff) {
			continue
		}

		views := float64(video.Statistics.ViewCount)
		engagement := 0.0
		if views > 0 {
			engagement = float64(video.Statistics.LikeCount+video.Statistics.CommentCount) / views
		}

		observations = append(observations, Observation{
			Source:       SourceYouTube,
			RawKeyword:   video.Snippet.Title,
			SearchVolume: views,
			Engagement:   engagement,
			Category:     MapYouTubeCategory(video.Snippet.CategoryID),
			Region:       region,
			ObservedAt:   time.Now().UTC(),
		})
	}

	return observations, nil
}

type ytChartResult struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string    `json:"title"`
			ChannelTitle string    `json:"channelTitle"`
			CategoryID   string    `json:"categoryId"`
			PublishedAt  time.Time `json:"publishedAt"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    int `json:"viewCount,string"`
			LikeCount    int `json:"likeCount,string"`
			CommentCount int `json:"commentCount,string"`
		} `json:"statistics"`
	} `json:"items"`
}
