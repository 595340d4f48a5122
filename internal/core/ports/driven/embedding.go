package driven

import "context"

// Embedder produces unit-norm dense vectors. Passages and queries are
// encoded through separate methods because some models use asymmetric
// prompting (e.g. an "instruction:" prefix on the query side only).
type Embedder interface {
	Name() string
	Dim() int
	EncodePassages(ctx context.Context, texts []string) ([][]float32, error)
	EncodeQueries(ctx context.Context, texts []string) ([][]float32, error)
}

// CrossEncoder reranks a shortlist of (query, passage) pairs. Its score
// replaces the fusion score outright — it is never blended with RRF.
type CrossEncoder interface {
	Name() string
	Rerank(ctx context.Context, query string, passages []string) ([]float32, error)
}
