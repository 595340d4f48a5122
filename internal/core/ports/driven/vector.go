package driven

import "context"

// VectorHit is one result from a VectorIndex similarity search.
type VectorHit struct {
	ChunkID string
	Score   float32 // cosine similarity in [-1, 1], higher is closer
}

// VectorIndex is the dense ANN port. Implementations are rebuildable
// caches: the canonical vectors live in the Store, and Rebuild repopulates
// the index from there after a crash or cold start.
type VectorIndex interface {
	Upsert(ctx context.Context, chunkID string, vector []float32) error
	Remove(ctx context.Context, chunkID string) error
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)
	Rebuild(ctx context.Context, embeddings func(yield func(chunkID string, vector []float32) bool)) error
	// Get returns the stored vector for chunkID, if any, so callers (MMR
	// diversification) can compute cosine similarity without re-embedding.
	Get(ctx context.Context, chunkID string) ([]float32, bool)
	Len() int
}
