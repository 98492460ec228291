package source

import (
	"context"
	"time"
)

// SourceType identifies which platform an observation came from.
type SourceType string

const (
	SourceNaver   SourceType = "naver"
	SourceYouTube SourceType = "youtube"
	SourceGoogle  SourceType = "google"
)

// SourcePriority is the fixed order observations are processed in during
// entity resolution. Naver comes first because its keywords are the cleanest
// (search terms rather than video titles), so they make the best cluster
// labels. The order is a deliberate priority and must stay stable:
// resolution is order-sensitive.
var SourcePriority = []SourceType{SourceNaver, SourceYouTube, SourceGoogle}

// Observation is one source's report of a keyword's popularity at a point
// in time. Observations are immutable once created by an adapter.
type Observation struct {
	Source            SourceType `json:"source"`
	RawKeyword        string     `json:"raw_keyword"`
	NormalizedKeyword string     `json:"normalized_keyword"`
	SearchVolume      float64    `json:"search_volume"`         // searches, views, or approximate traffic
	GrowthRate        float64    `json:"growth_rate,omitempty"` // percent growth over the window (naver only)
	Engagement        float64    `json:"engagement,omitempty"`  // (likes+comments)/views (youtube only)
	Category          string     `json:"category"`
	Region            string     `json:"region"`
	ObservedAt        time.Time  `json:"observed_at"`
}

// Adapter fetches one source's raw trend data and converts it into
// observations. An empty result is a valid, non-error outcome. Adapters
// must bound their own network calls with a per-call timeout.
type Adapter interface {
	Name() SourceType
	FetchObservations(ctx context.Context, region string, window time.Duration) ([]Observation, error)
}

// AllSourceTypes returns all known source types in priority order.
func AllSourceTypes() []SourceType {
	return append([]SourceType(nil), SourcePriority...)
}
