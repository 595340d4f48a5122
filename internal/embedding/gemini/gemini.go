// Package gemini wraps google/generative-ai-go's embedding model as a
// driven.Embedder.
package gemini

import (
	"context"
	"fmt"
	"math"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

var _ driven.Embedder = (*Embedder)(nil)

type Embedder struct {
	client *genai.Client
	model  string
	dim    int
}

func New(ctx context.Context, apiKey string, model string, dim int) (*Embedder, error) {
	if model == "" {
		model = "embedding-001"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	return &Embedder{client: client, model: model, dim: dim}, nil
}

func (e *Embedder) Name() string { return e.model }
func (e *Embedder) Dim() int     { return e.dim }

func (e *Embedder) EncodePassages(ctx context.Context, texts []string) ([][]float32, error) {
	return e.encode(ctx, texts)
}

func (e *Embedder) EncodeQueries(ctx context.Context, texts []string) ([][]float32, error) {
	return e.encode(ctx, texts)
}

func (e *Embedder) encode(ctx context.Context, texts []string) ([][]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		res, err := em.EmbedContent(ctx, genai.Text(t))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
		}
		if res.Embedding == nil {
			return nil, domain.ErrEmbeddingUnavailable
		}
		out[i] = normalize(res.Embedding.Values)
	}
	return out, nil
}

func (e *Embedder) Close() error { return e.client.Close() }

func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(1.0 / math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * norm
	}
	return out
}
