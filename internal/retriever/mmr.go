package retriever

// mmrCandidate is one item competing for a diversified slot; Vector is nil
// when no embedding is available for it (document lacked a dense leg), in
// which case similarity falls back to lexical token overlap.
type mmrCandidate struct {
	chunkID string
	score   float32
	vector  []float32
	text    string
}

// mmr greedily selects k items maximising λ·relevance − (1−λ)·maxSimilarity
// against already-chosen items: pick the best-scoring unseen candidate
// first, then repeatedly pick whichever remaining candidate is least
// redundant with what's already selected.
func mmr(candidates []mmrCandidate, k int, lambda float64) []mmrCandidate {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if lambda <= 0 {
		lambda = 0.5
	}

	remaining := append([]mmrCandidate(nil), candidates...)
	var selected []mmrCandidate

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestValue := -1e18
		for i, c := range remaining {
			maxSim := 0.0
			for _, s := range selected {
				sim := similarity(c, s)
				if sim > maxSim {
					maxSim = sim
				}
			}
			value := lambda*float64(c.score) - (1-lambda)*maxSim
			if value > bestValue {
				bestValue = value
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

func similarity(a, b mmrCandidate) float64 {
	if a.vector != nil && b.vector != nil {
		return float64(cosine(a.vector, b.vector))
	}
	return lexicalOverlap(a.text, b.text)
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float32
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	return dot
}

func lexicalOverlap(a, b string) float64 {
	aSet := tokenSet(a)
	bSet := tokenSet(b)
	if len(aSet) == 0 || len(bSet) == 0 {
		return 0
	}
	inter := 0
	for t := range aSet {
		if _, ok := bSet[t]; ok {
			inter++
		}
	}
	union := len(aSet) + len(bSet) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
