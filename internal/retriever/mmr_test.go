package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMMRReturnsTopScoreFirst(t *testing.T) {
	candidates := []mmrCandidate{
		{chunkID: "a", score: 0.9, vector: []float32{1, 0}},
		{chunkID: "b", score: 0.8, vector: []float32{1, 0}}, // near-duplicate of a
		{chunkID: "c", score: 0.5, vector: []float32{0, 1}}, // orthogonal, diverse
	}

	out := mmr(candidates, 2, 0.5)

	assert.Len(t, out, 2)
	assert.Equal(t, "a", out[0].chunkID)
	// With a near-duplicate penalised by similarity, the diverse item should
	// often win the second slot over the redundant one.
	assert.Equal(t, "c", out[1].chunkID)
}

func TestMMRRespectsK(t *testing.T) {
	candidates := []mmrCandidate{
		{chunkID: "a", score: 1, vector: []float32{1, 0}},
		{chunkID: "b", score: 0.9, vector: []float32{0, 1}},
		{chunkID: "c", score: 0.8, vector: []float32{0, 1}},
	}
	out := mmr(candidates, 1, 0.5)
	assert.Len(t, out, 1)
	assert.Equal(t, "a", out[0].chunkID)
}

func TestMMREmptyCandidates(t *testing.T) {
	assert.Nil(t, mmr(nil, 5, 0.5))
}

func TestLexicalOverlapFallsBackWithoutVectors(t *testing.T) {
	a := mmrCandidate{chunkID: "a", text: "the quick brown fox"}
	b := mmrCandidate{chunkID: "b", text: "the quick brown dog"}
	sim := similarity(a, b)
	assert.Greater(t, sim, 0.0)
	assert.Less(t, sim, 1.0)
}
