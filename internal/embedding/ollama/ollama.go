// Package ollama talks to a local Ollama daemon's /api/embeddings
// endpoint over a plain net/http client; no dedicated Ollama Go SDK is
// wired in, since the daemon's HTTP contract is simple enough that a
// thin client is the natural fit.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

var _ driven.Embedder = (*Embedder)(nil)

type Embedder struct {
	baseURL string
	model   string
	dim     int
	client  *http.Client
}

func New(baseURL, model string, dim int) *Embedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &Embedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		dim:     dim,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (e *Embedder) Name() string { return "ollama/" + e.model }
func (e *Embedder) Dim() int     { return e.dim }

func (e *Embedder) EncodePassages(ctx context.Context, texts []string) ([][]float32, error) {
	return e.encode(ctx, texts)
}

func (e *Embedder) EncodeQueries(ctx context.Context, texts []string) ([][]float32, error) {
	return e.encode(ctx, texts)
}

func (e *Embedder) encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := e.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Embedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	payload, _ := json.Marshal(map[string]any{"model": e.model, "prompt": text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: ollama status %d: %s", domain.ErrEmbeddingUnavailable, resp.StatusCode, string(body))
	}

	var parsed struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode ollama response: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return normalize(parsed.Embedding), nil
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
