// Package embedding selects one Embedder implementation at startup from
// config: a single construction-time choice, never a runtime
// string-keyed dispatch.
package embedding

import (
	"context"
	"fmt"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
	"github.com/context-cache/ctxc/internal/embedding/gemini"
	"github.com/context-cache/ctxc/internal/embedding/hashed"
	"github.com/context-cache/ctxc/internal/embedding/ollama"
	"github.com/context-cache/ctxc/internal/embedding/openai"
)

// Backend names the embedding provider chosen at startup.
type Backend string

const (
	BackendHashed Backend = "hashed"
	BackendOpenAI Backend = "openai"
	BackendGemini Backend = "gemini"
	BackendOllama Backend = "ollama"
)

// Config holds the fields any backend might need; irrelevant fields for a
// given backend are ignored.
type Config struct {
	Backend  Backend
	APIKey   string
	Model    string
	BaseURL  string
	Dim      int
}

func New(ctx context.Context, cfg Config) (driven.Embedder, error) {
	switch cfg.Backend {
	case "", BackendHashed:
		return hashed.New(), nil
	case BackendOpenAI:
		return openai.New(cfg.APIKey, cfg.Model, cfg.Dim), nil
	case BackendGemini:
		return gemini.New(ctx, cfg.APIKey, cfg.Model, cfg.Dim)
	case BackendOllama:
		return ollama.New(cfg.BaseURL, cfg.Model, cfg.Dim), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
}
