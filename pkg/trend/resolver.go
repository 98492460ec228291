package trend

import (
	"github.com/kimdw524/trendcast/pkg/source"
)

// similarityThreshold is the minimum normalized edit-distance similarity
// for two keywords to be treated as the same real-world topic.
const similarityThreshold = 0.7

// Cluster is the merged view of one or more observations believed to
// describe the same topic. Built here, scored in place by the Scorer,
// discarded after the run (its summary is persisted as a trending topic).
type Cluster struct {
	CanonicalKeyword string
	normalized       string
	Members          map[source.SourceType]source.Observation

	// Filled in by the Scorer.
	AggregatedScore float64
	PredictedViews  float64
	Confidence      float64
	CrossPlatform   bool
	Velocity        float64
	Volatility      float64
	Competitiveness float64
	Category        string
}

// Sources returns the member source names in priority order.
func (c *Cluster) Sources() []string {
	var names []string
	for _, st := range source.SourcePriority {
		if _, ok := c.Members[st]; ok {
			names = append(names, string(st))
		}
	}
	return names
}

// Resolve clusters observations across sources. Observations are processed
// in the fixed SourcePriority order: exact canonical match attaches first,
// otherwise the best fuzzy match at or above the threshold, otherwise a new
// single-member cluster. The first-seen raw keyword stays as the cluster
// label. Blank keywords are discarded.
//
// Matching is O(total²) per run. Fine at tens of keywords per source;
// revisit with prefix bucketing if volumes ever grow materially.
func Resolve(observations []source.Observation) []*Cluster {
	var clusters []*Cluster

	for _, st := range source.SourcePriority {
		for _, obs := range observations {
			if obs.Source != st {
				continue
			}

			normalized := obs.NormalizedKeyword
			if normalized == "" {
				normalized = Normalize(obs.RawKeyword)
			}
			if normalized == "" {
				continue
			}
			obs.NormalizedKeyword = normalized

			if target := match(clusters, normalized); target != nil {
				// One observation per source per cluster: the first
				// (higher-priority) member wins on collision.
				if _, taken := target.Members[obs.Source]; !taken {
					target.Members[obs.Source] = obs
				}
				continue
			}

			clusters = append(clusters, &Cluster{
				CanonicalKeyword: obs.RawKeyword,
				normalized:       normalized,
				Members:          map[source.SourceType]source.Observation{obs.Source: obs},
			})
		}
	}

	return clusters
}

// match finds the cluster for a normalized keyword: exact first, then the
// best fuzzy candidate at or above the threshold.
func match(clusters []*Cluster, normalized string) *Cluster {
	for _, c := range clusters {
		if c.normalized == normalized {
			return c
		}
	}

	var best *Cluster
	bestScore := 0.0
	for _, c := range clusters {
		s := Similarity(c.normalized, normalized)
		if s > bestScore {
			best, bestScore = c, s
		}
	}
	if bestScore >= similarityThreshold {
		return best
	}
	return nil
}

// Similarity is normalized edit-distance similarity:
// (maxLen − editDistance) / maxLen, over runes. 1 means identical,
// 0 means nothing in common.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	return float64(maxLen-editDistance(ra, rb)) / float64(maxLen)
}

// editDistance is the classic Levenshtein DP with a rolling row.
func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
