// Package hashed implements the offline CrossEncoder fallback: a lexical
// token-overlap score (Jaccard similarity over lowercased whitespace
// tokens) used when no real reranker model is configured.
package hashed

import (
	"context"
	"strings"

	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

var _ driven.CrossEncoder = (*CrossEncoder)(nil)

type CrossEncoder struct{}

func New() *CrossEncoder { return &CrossEncoder{} }

func (c *CrossEncoder) Name() string { return "lexical-jaccard" }

func (c *CrossEncoder) Rerank(_ context.Context, query string, passages []string) ([]float32, error) {
	qset := tokenSet(query)
	out := make([]float32, len(passages))
	for i, p := range passages {
		out[i] = jaccard(qset, tokenSet(p))
	}
	return out, nil
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float32(inter) / float32(union)
}
