// Package hashed implements a deterministic hashed-feature embedder: the
// offline fallback used when no API-backed embedding model is configured,
// so ingestion and retrieval stay fully reproducible without network
// access. Tokens are hashed into a fixed-width vector (the classic hashing
// trick), then L2-normalised.
package hashed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

var _ driven.Embedder = (*Embedder)(nil)

const defaultDim = 256

type Embedder struct {
	dim int
}

func New() *Embedder { return &Embedder{dim: defaultDim} }

func (e *Embedder) Name() string { return "hashed-v1" }
func (e *Embedder) Dim() int     { return e.dim }

func (e *Embedder) EncodePassages(_ context.Context, texts []string) ([][]float32, error) {
	return e.encode(texts), nil
}

func (e *Embedder) EncodeQueries(_ context.Context, texts []string) ([][]float32, error) {
	return e.encode(texts), nil
}

func (e *Embedder) encode(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vectorFor(t)
	}
	return out
}

func (e *Embedder) vectorFor(text string) []float32 {
	v := make([]float32, e.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		idx := int(h.Sum32()) % e.dim
		if idx < 0 {
			idx += e.dim
		}
		v[idx] += 1
	}

	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(1.0 / math.Sqrt(sumSq))
	for i := range v {
		v[i] *= norm
	}
	return v
}
