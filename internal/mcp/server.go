// Package mcp exposes the retriever as an MCP server (query and why
// tools) over stdio or streamable HTTP (modelcontextprotocol/go-sdk).
package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driving"
)

const Version = "0.1.0"

type Server struct {
	retriever driving.Retriever
	server    *sdkmcp.Server
}

func NewServer(retriever driving.Retriever) *Server {
	impl := &sdkmcp.Implementation{Name: "context-cache", Version: Version}
	s := &Server{
		retriever: retriever,
		server:    sdkmcp.NewServer(impl, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := sdkmcp.NewStreamableHTTPHandler(func(_ *http.Request) *sdkmcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

type QueryInput struct {
	Text      string `json:"text" jsonschema:"the natural language query"`
	KFinal    int    `json:"k_final,omitempty" jsonschema:"number of results to return (default 8)"`
	UseRerank bool   `json:"use_rerank,omitempty" jsonschema:"enable cross-encoder reranking"`
}

type QueryOutput struct {
	QueryID string       `json:"query_id"`
	Results []ResultItem `json:"results"`
}

type WhyInput struct {
	QueryID string `json:"query_id" jsonschema:"the query_id returned by a prior query call"`
}

type ResultItem struct {
	Rank       int     `json:"rank"`
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Score      float32 `json:"score"`
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
	Path       string  `json:"path,omitempty"`
	Section    string  `json:"section,omitempty"`
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        "query",
		Description: "Run a hybrid dense+sparse retrieval query over the local context cache",
	}, s.handleQuery)

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        "why",
		Description: "Replay the frozen result set for a previously issued query_id",
	}, s.handleWhy)
}

func (s *Server) handleQuery(ctx context.Context, _ *sdkmcp.CallToolRequest, input QueryInput) (*sdkmcp.CallToolResult, QueryOutput, error) {
	opts := domain.DefaultRetrieveOptions()
	if input.KFinal > 0 {
		opts.KFinal = input.KFinal
	}
	opts.UseRerank = input.UseRerank

	q, items, err := s.retriever.Query(ctx, input.Text, opts)
	if err != nil {
		return nil, QueryOutput{}, fmt.Errorf("query: %w", err)
	}
	return nil, QueryOutput{QueryID: q.ID, Results: toResultItems(items)}, nil
}

func (s *Server) handleWhy(ctx context.Context, _ *sdkmcp.CallToolRequest, input WhyInput) (*sdkmcp.CallToolResult, QueryOutput, error) {
	q, items, err := s.retriever.Why(ctx, input.QueryID)
	if err != nil {
		return nil, QueryOutput{}, fmt.Errorf("why: %w", err)
	}
	return nil, QueryOutput{QueryID: q.ID, Results: toResultItems(items)}, nil
}

func toResultItems(items []domain.ResultItem) []ResultItem {
	out := make([]ResultItem, len(items))
	for i, it := range items {
		out[i] = ResultItem{
			Rank:       it.Rank,
			ChunkID:    it.ChunkID,
			DocumentID: it.DocumentID,
			Score:      it.Score,
			Title:      it.Title,
			Snippet:    it.Snippet,
			Path:       it.Provenance.Path,
			Section:    it.Provenance.Section,
		}
	}
	return out
}
