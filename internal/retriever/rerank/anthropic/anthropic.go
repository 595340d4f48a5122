// Package anthropic implements the CrossEncoder port by prompting a Claude
// model for a single bounded relevance score per passage. The model is
// instructed to answer with only a number in [0, 1]: it never generates
// prose, and its output never becomes retrieved text itself, only a
// reranking signal.
package anthropic

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

var _ driven.CrossEncoder = (*CrossEncoder)(nil)

type CrossEncoder struct {
	client anthropic.Client
	model  string
}

func New(apiKey string, model string) *CrossEncoder {
	if model == "" {
		model = "claude-3-haiku-20240307"
	}
	return &CrossEncoder{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *CrossEncoder) Name() string { return "anthropic/" + c.model }

func (c *CrossEncoder) Rerank(ctx context.Context, query string, passages []string) ([]float32, error) {
	out := make([]float32, len(passages))
	for i, p := range passages {
		score, err := c.scoreOne(ctx, query, p)
		if err != nil {
			return nil, err
		}
		out[i] = score
	}
	return out, nil
}

func (c *CrossEncoder) scoreOne(ctx context.Context, query, passage string) (float32, error) {
	prompt := fmt.Sprintf(
		"Score how relevant the passage is to the query on a scale from 0.0 to 1.0.\n"+
			"Respond with only the number, nothing else.\n\nQuery: %s\n\nPassage: %s",
		query, passage,
	)

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 8,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrSearchUnavailable, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(text.String()), 32)
	if err != nil {
		return 0, nil
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return float32(score), nil
}
