// Package openai wraps sashabaranov/go-openai's embeddings endpoint as a
// driven.Embedder.
package openai

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

var _ driven.Embedder = (*Embedder)(nil)

type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dim    int
}

func New(apiKey string, model string, dim int) *Embedder {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &Embedder{
		client: openai.NewClient(apiKey),
		model:  openai.EmbeddingModel(model),
		dim:    dim,
	}
}

func (e *Embedder) Name() string { return string(e.model) }
func (e *Embedder) Dim() int     { return e.dim }

func (e *Embedder) EncodePassages(ctx context.Context, texts []string) ([][]float32, error) {
	return e.encode(ctx, texts)
}

func (e *Embedder) EncodeQueries(ctx context.Context, texts []string) ([][]float32, error) {
	return e.encode(ctx, texts)
}

func (e *Embedder) encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		out[d.Index] = normalize(d.Embedding)
	}
	return out, nil
}

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
