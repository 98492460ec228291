package trend

import (
	"time"

	"github.com/kimdw524/trendcast/pkg/source"
)

// Per-source weights for score combination. Naver counts the most: its
// numbers are real search demand rather than already-consumed views.
var sourceWeights = map[source.SourceType]float64{
	source.SourceNaver:   1.5,
	source.SourceYouTube: 1.2,
	source.SourceGoogle:  1.0,
}

// volumeThresholds convert raw per-source volumes to a 0-100 metric.
// Different sources report on very different scales:
// - naver: daily searches (50k is a hot keyword)
// - youtube: chart video views (1M is a strong trending video)
// - google: approximate trending traffic (200k+ is front-page)
var volumeThresholds = map[source.SourceType]float64{
	source.SourceNaver:   50_000,
	source.SourceYouTube: 1_000_000,
	source.SourceGoogle:  200_000,
}

// defaultVelocity is the moderate constant used when no source can supply
// a velocity signal.
const defaultVelocity = 0.5

// crowdedCategories have high creator competition; a topic there is harder
// to win views on.
var crowdedCategories = map[string]float64{
	"entertainment": 0.8,
	"music":         0.8,
	"gaming":        0.7,
	"sports":        0.6,
	"news":          0.6,
}

// Score fills in every derived field of a cluster in place: aggregated
// score, predicted views, category, confidence, velocity, volatility,
// competitiveness, and the cross-platform flag.
func Score(c *Cluster) {
	c.CrossPlatform = len(c.Members) > 1
	c.AggregatedScore = aggregatedScore(c)
	c.PredictedViews = predictedViews(c)
	c.Category = pickCategory(c)
	c.Confidence = confidence(c)
	c.Velocity = velocity(c)
	c.Volatility = volatility(c.Velocity)
	c.Competitiveness = competitiveness(c)
}

// aggregatedScore is the weighted mean of each present source's normalized
// metric: Σ(metric·weight)/Σ(weight). A single-source cluster scores
// exactly that source's normalized metric.
func aggregatedScore(c *Cluster) float64 {
	sum, weightSum := 0.0, 0.0
	for st, obs := range c.Members {
		w := sourceWeights[st]
		sum += NormalizedMetric(obs) * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}

// NormalizedMetric maps a source's raw volume to 0-100 against that
// source's own scale.
func NormalizedMetric(obs source.Observation) float64 {
	threshold := volumeThresholds[obs.Source]
	if threshold <= 0 {
		return 0
	}
	ratio := obs.SearchVolume / threshold
	if ratio > 1 {
		return 100
	}
	return ratio * 100
}

// predictedViews is the max over each present source's own estimation.
func predictedViews(c *Cluster) float64 {
	best := 0.0
	for st, obs := range c.Members {
		v := 0.0
		switch st {
		case source.SourceNaver:
			// Search demand converts to views, amplified by growth.
			v = obs.SearchVolume * (1 + obs.GrowthRate/100) * 0.6
		case source.SourceYouTube:
			// Already-proven views, boosted by engagement.
			v = obs.SearchVolume * (1 + obs.Engagement)
		case source.SourceGoogle:
			// Trending traffic is broad interest; only a fraction watches.
			v = obs.SearchVolume * 0.4
		}
		if v > best {
			best = v
		}
	}
	return best
}

// pickCategory takes the first non-general category in priority order
// naver > google > youtube.
func pickCategory(c *Cluster) string {
	for _, st := range []source.SourceType{source.SourceNaver, source.SourceGoogle, source.SourceYouTube} {
		if obs, ok := c.Members[st]; ok && obs.Category != "" && obs.Category != "general" {
			return obs.Category
		}
	}
	return "general"
}

// confidence: base 0.5, +0.3 for cross-source presence, +0.2 when Naver
// confirms, up to +0.2 more from growth/engagement, capped at 1.0.
func confidence(c *Cluster) float64 {
	conf := 0.5
	if len(c.Members) > 1 {
		conf += 0.3
	}
	naver, hasNaver := c.Members[source.SourceNaver]
	if hasNaver {
		conf += 0.2
	}
	if hasNaver && naver.GrowthRate > 50 {
		conf += 0.1
	}
	if yt, ok := c.Members[source.SourceYouTube]; ok && yt.Engagement > 0.05 {
		conf += 0.1
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}

// velocity: Naver growth percent when present, else YouTube
// recency-weighted engagement rate, else the moderate default.
func velocity(c *Cluster) float64 {
	if naver, ok := c.Members[source.SourceNaver]; ok {
		return naver.GrowthRate
	}
	if yt, ok := c.Members[source.SourceYouTube]; ok {
		return yt.Engagement * recencyWeight(yt.ObservedAt) * 100
	}
	return defaultVelocity
}

// recencyWeight decays from 1.0 to 0.5 over 24 hours.
func recencyWeight(observedAt time.Time) float64 {
	age := time.Since(observedAt)
	if age <= 0 {
		return 1
	}
	w := 1 - age.Hours()/48
	if w < 0.5 {
		w = 0.5
	}
	return w
}

// volatility maps velocity onto [0,1]: 100%+ growth means fully volatile.
func volatility(velocity float64) float64 {
	v := velocity / 100
	if v < 0 {
		v = -v
	}
	if v > 1 {
		v = 1
	}
	return v
}

// competitiveness estimates how contested a topic already is: crowded
// categories score high, and a topic already on the YouTube chart means
// creators got there first.
func competitiveness(c *Cluster) float64 {
	comp := 0.4
	if base, ok := crowdedCategories[c.Category]; ok {
		comp = base
	}
	if _, ok := c.Members[source.SourceYouTube]; ok {
		comp += 0.1
	}
	if comp > 0.9 {
		comp = 0.9
	}
	return comp
}
