package driving

import (
	"context"

	"github.com/context-cache/ctxc/internal/core/domain"
)

// Retriever is the driving port for hybrid retrieval: dense + sparse
// fusion, optional rerank, MMR diversification, and provenance-stamped
// results recorded into the query journal.
type Retriever interface {
	Query(ctx context.Context, text string, opts domain.RetrieveOptions) (domain.Query, []domain.ResultItem, error)
	Why(ctx context.Context, queryID string) (domain.Query, []domain.ResultItem, error)
}
