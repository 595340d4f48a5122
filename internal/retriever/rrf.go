package retriever

import "sort"

const rrfK = 60

type rankedID struct {
	chunkID string
	score   float64
}

// reciprocalRankFusion merges the dense and sparse ranked lists: each list
// contributes 1/(k+rank+1) to every chunk it ranks, summed across both
// lists, then sorted descending.
func reciprocalRankFusion(dense, sparse []string, k int) []rankedID {
	scores := make(map[string]float64)
	order := make([]string, 0, len(dense)+len(sparse))

	add := func(list []string) {
		for rank, id := range list {
			if _, ok := scores[id]; !ok {
				order = append(order, id)
			}
			scores[id] += 1.0 / float64(k+rank+1)
		}
	}
	add(dense)
	add(sparse)

	out := make([]rankedID, 0, len(order))
	for _, id := range order {
		out = append(out, rankedID{chunkID: id, score: scores[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}
