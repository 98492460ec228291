package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Naver collects keyword trend data from the Naver DataLab search API.
// DataLab returns relative search ratios per period, from which the adapter
// derives a search volume estimate and a growth rate for each seed keyword.
type Naver struct {
	client       *http.Client
	clientID     string
	clientSecret string
	keywords     []string
	requestDelay time.Duration
	volumeScale  float64
}

// NewNaver creates a new Naver DataLab collector.
func NewNaver(clientID, clientSecret string, keywords []string, requestDelay time.Duration) *Naver {
	if requestDelay <= 0 {
		requestDelay = 300 * time.Millisecond
	}
	return &Naver{
		client:       &http.Client{Timeout: 15 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		keywords:     keywords,
		requestDelay: requestDelay,
		volumeScale:  500, // DataLab ratios are 0-100; scale to a searches-per-day estimate
	}
}

func (n *Naver) Name() SourceType { return SourceNaver }

func (n *Naver) FetchObservations(ctx context.Context, region string, window time.Duration) ([]Observation, error) {
	if n.clientID == "" || n.clientSecret == "" {
		return nil, fmt.Errorf("naver: client credentials required (set NAVER_CLIENT_ID / NAVER_CLIENT_SECRET)")
	}

	var observations []Observation

	for i, keyword := range n.keywords {
		// Explicit inter-request delay: DataLab throttles bursts hard.
		if i > 0 {
			select {
			case <-ctx.Done():
				return observations, ctx.Err()
			case <-time.After(n.requestDelay):
			}
		}

		obs, err := n.fetchKeyword(ctx, keyword, region, window)
		if err != nil {
			// A throttled or HTML error response skips this keyword only.
			fmt.Printf("  naver keyword %q error: %v\n", keyword, err)
			continue
		}
		if obs != nil {
			observations = append(observations, *obs)
		}
	}

	return observations, nil
}

func (n *Naver) fetchKeyword(ctx context.Context, keyword, region string, window time.Duration) (*Observation, error) {
	end := time.Now()
	start := end.Add(-window)
	if window <= 0 {
		start = end.AddDate(0, 0, -7)
	}

	payload := map[string]any{
		"startDate": start.Format("2006-01-02"),
		"endDate":   end.Format("2006-01-02"),
		"timeUnit":  "date",
		"keywordGroups": []map[string]any{
			{"groupName": keyword, "keywords": []string{keyword}},
		},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://openapi.naver.com/v1/datalab/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create datalab request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Naver-Client-Id", n.clientID)
	req.Header.Set("X-Naver-Client-Secret", n.clientSecret)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch datalab: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("datalab throttled (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("datalab status %d", resp.StatusCode)
	}
	// Naver serves an HTML error page on some auth failures with status 200.
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "text/html") {
		return nil, fmt.Errorf("datalab returned html instead of json")
	}

	var result datalabResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode datalab response: %w", err)
	}
	if len(result.Results) == 0 || len(result.Results[0].Data) == 0 {
		return nil, nil
	}

	points := result.Results[0].Data
	latest := points[len(points)-1].Ratio

	// Growth: latest period against the average of the preceding periods.
	growth := 0.0
	if len(points) > 1 {
		sum := 0.0
		for _, p := range points[:len(points)-1] {
			sum += p.Ratio
		}
		baseline := sum / float64(len(points)-1)
		if baseline > 0 {
			growth = (latest - baseline) / baseline * 100
		}
	}

	return &Observation{
		Source:       SourceNaver,
		RawKeyword:   keyword,
		SearchVolume: latest * n.volumeScale,
		GrowthRate:   growth,
		Category:     "general",
		Region:       region,
		ObservedAt:   time.Now().UTC(),
	}, nil
}

type datalabResult struct {
	Results []struct {
		Title string `json:"title"`
		Data  []struct {
			Period string  `json:"period"`
			Ratio  float64 `json:"ratio"`
		} `json:"data"`
	} `json:"results"`
}
