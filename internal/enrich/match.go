package enrich

// Matcher selects the best candidate for a query under a fixed rule set.
type Matcher struct {
	Weights   Weights
	Threshold int
}

// Best returns the index and score of the highest scoring candidate at or
// above the threshold. Each candidate is scored against every query variant
// and keeps its best score. Ties keep the first candidate seen.
func (m Matcher) Best(queries []Subject, candidates []Subject) (int, int, bool) {
	bestIdx, bestScore := -1, 0
	for i, c := range candidates {
		score := 0
		for _, q := range queries {
			if s := Score(m.Weights, q, c); s > score {
				score = s
			}
		}
		if score < m.Threshold {
			continue
		}
		if bestIdx < 0 || score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx < 0 {
		return -1, 0, false
	}
	return bestIdx, bestScore, true
}
