package trend

// Final selection weights: predicted reach dominates, but a volatile
// low-competition topic can overtake a bigger crowded one.
const (
	viewsWeight       = 0.6
	volatilityWeight  = 0.25
	competitionWeight = 0.15
)

// FinalScore ranks a scored cluster for selection.
func FinalScore(c *Cluster) float64 {
	return viewsWeight*c.PredictedViews +
		volatilityWeight*(c.Volatility*100) +
		competitionWeight*((1-c.Competitiveness)*100)
}

// SelectFinal picks the winning cluster. Ties go to the first-discovered
// cluster (discovery order is stable). An empty input yields nil: a
// defined "no topic" outcome, not an error.
func SelectFinal(clusters []*Cluster) *Cluster {
	var best *Cluster
	bestScore := 0.0

	for _, c := range clusters {
		s := FinalScore(c)
		if best == nil || s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}
