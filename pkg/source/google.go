package source

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// GoogleTrends collects the daily trending searches RSS feed for a region.
// The feed carries an approximate traffic figure per keyword in the "ht"
// extension namespace.
type GoogleTrends struct {
	client  *http.Client
	parser  *gofeed.Parser
	feedURL string
}

// NewGoogleTrends creates a new Google Trends collector. feedURL overrides
// the default endpoint, mainly for tests.
func NewGoogleTrends(feedURL string) *GoogleTrends {
	if feedURL == "" {
		feedURL = "https://trends.google.com/trends/trending/rss"
	}
	return &GoogleTrends{
		client:  &http.Client{Timeout: 30 * time.Second},
		parser:  gofeed.NewParser(),
		feedURL: feedURL,
	}
}

func (g *GoogleTrends) Name() SourceType { return SourceGoogle }

func (g *GoogleTrends) FetchObservations(ctx context.Context, region string, window time.Duration) ([]Observation, error) {
	if region == "" {
		region = "KR"
	}

	reqURL := g.feedURL + "?geo=" + region
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create trends request: %w", err)
	}
	req.Header.Set("User-Agent", "trendcast/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch google trends: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google trends status %d", resp.StatusCode)
	}

	parsed, err := g.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse google trends feed: %w", err)
	}

	cutoff := time.Time{}
	if window > 0 {
		cutoff = time.Now().Add(-window)
	}

	var observations []Observation
	for _, entry := range parsed.Items {
		if entry.Title == "" {
			continue
		}

		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		}
		if !cutoff.IsZero() && published.Before(cutoff) {
			continue
		}

		observations = append(observations, Observation{
			Source:       SourceGoogle,
			RawKeyword:   entry.Title,
			SearchVolume: approxTraffic(entry),
			Category:     "general",
			Region:       region,
			ObservedAt:   time.Now().UTC(),
		})
	}

	return observations, nil
}

// approxTraffic reads the ht:approx_traffic extension, e.g. "20,000+".
func approxTraffic(entry *gofeed.Item) float64 {
	ns, ok := entry.Extensions["ht"]
	if !ok {
		return 0
	}
	exts, ok := ns["approx_traffic"]
	if !ok || len(exts) == 0 {
		return 0
	}

	raw := strings.TrimSuffix(strings.ReplaceAll(exts[0].Value, ",", ""), "+")
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return n
}
