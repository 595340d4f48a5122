// Package retriever implements hybrid retrieval: dense ANN + sparse BM25
// full text fused with Reciprocal Rank Fusion, an optional cross-encoder
// rerank whose score replaces the fused one outright, MMR
// diversification, and a frozen query-journal entry for later /why
// replay. The dense and sparse legs run in parallel and degrade
// gracefully when one is unavailable.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
	"github.com/context-cache/ctxc/internal/core/ports/driving"
	"github.com/context-cache/ctxc/internal/logger"
)

var _ driving.Retriever = (*Retriever)(nil)

const deletedDownweight = 0.5

type Retriever struct {
	store        driven.Store
	vectorIndex  driven.VectorIndex
	embedder     driven.Embedder
	crossEncoder driven.CrossEncoder
	snippetLen   int
}

func New(store driven.Store, vectorIndex driven.VectorIndex, embedder driven.Embedder, crossEncoder driven.CrossEncoder) *Retriever {
	return &Retriever{
		store:        store,
		vectorIndex:  vectorIndex,
		embedder:     embedder,
		crossEncoder: crossEncoder,
		snippetLen:   240,
	}
}

func (r *Retriever) Query(ctx context.Context, text string, opts domain.RetrieveOptions) (domain.Query, []domain.ResultItem, error) {
	logger.Section("Retrieval")
	logger.Debug("query=%q hybrid=%t rerank=%t k=%d", text, opts.UseHybrid, opts.UseRerank, opts.KFinal)

	if opts.KFinal <= 0 {
		opts.KFinal = 8
	}
	internalLimit := opts.KFinal * 4

	denseIDs, sparseHits, err := r.runLegs(ctx, text, opts, internalLimit)
	if err != nil {
		return domain.Query{}, nil, err
	}

	sparseIDs := make([]string, len(sparseHits))
	deleted := make(map[string]bool, len(sparseHits))
	for i, h := range sparseHits {
		sparseIDs[i] = h.ChunkID
		if h.IsDeleted {
			deleted[h.ChunkID] = true
		}
	}

	fused := reciprocalRankFusion(denseIDs, sparseIDs, rrfK)
	for i, f := range fused {
		if deleted[f.chunkID] {
			fused[i].score *= deletedDownweight
		}
	}
	sort.Slice(fused, func(i, j int) bool { return fused[i].score > fused[j].score })

	if len(fused) > internalLimit {
		fused = fused[:internalLimit]
	}

	items, err := r.hydrate(ctx, fused, text)
	if err != nil {
		return domain.Query{}, nil, err
	}

	if opts.UseRerank && r.crossEncoder != nil && len(items) > 0 {
		items, err = r.rerank(ctx, text, items)
		if err != nil {
			logger.Warn("rerank failed, keeping fused order: %v", err)
		}
	}

	items = r.diversify(ctx, items, opts)

	if len(items) > opts.KFinal {
		items = items[:opts.KFinal]
	}
	for i := range items {
		items[i].Rank = i + 1
	}

	q := domain.Query{
		ID:            uuid.New().String(),
		Text:          text,
		Filters:       opts.Filters,
		RerankEnabled: opts.UseRerank,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.store.RecordQuery(ctx, q); err != nil {
		return domain.Query{}, nil, fmt.Errorf("record query: %w", err)
	}
	results := make([]domain.QueryResult, len(items))
	for i, it := range items {
		results[i] = domain.QueryResult{QueryID: q.ID, ChunkID: it.ChunkID, Rank: it.Rank, Score: it.Score, ProvenanceSnapshot: it}
	}
	if err := r.store.RecordResults(ctx, q.ID, results); err != nil {
		return domain.Query{}, nil, fmt.Errorf("record results: %w", err)
	}

	return q, items, nil
}

func (r *Retriever) Why(ctx context.Context, queryID string) (domain.Query, []domain.ResultItem, error) {
	q, results, err := r.store.FetchWhy(ctx, queryID)
	if err != nil {
		return domain.Query{}, nil, err
	}
	items := make([]domain.ResultItem, len(results))
	for i, res := range results {
		items[i] = res.ProvenanceSnapshot
	}
	return q, items, nil
}

// runLegs executes dense and sparse search in parallel. Dense runs
// unconditionally (it is the only leg available with hybrid off); sparse
// FTS runs only when opts.UseHybrid is set. Either leg degrades gracefully
// if the other errors or is unconfigured.
func (r *Retriever) runLegs(ctx context.Context, text string, opts domain.RetrieveOptions, limit int) ([]string, []driven.FTSHit, error) {
	var denseIDs []string
	var sparseHits []driven.FTSHit
	var denseErr, sparseErr error

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if r.vectorIndex != nil && r.embedder != nil {
			denseIDs, denseErr = r.denseSearch(ctx, text, limit)
		} else {
			denseErr = domain.ErrVectorIndexUnavailable
		}
	}()

	if opts.UseHybrid {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := r.store.SearchFTS(ctx, text, opts.Filters, limit)
			sparseHits, sparseErr = hits, err
		}()
	}
	wg.Wait()

	if denseErr != nil && (!opts.UseHybrid || sparseErr != nil) {
		return nil, nil, fmt.Errorf("retrieval: dense=%v sparse=%v", denseErr, sparseErr)
	}
	return denseIDs, sparseHits, nil
}

func (r *Retriever) denseSearch(ctx context.Context, text string, limit int) ([]string, error) {
	vecs, err := r.embedder.EncodeQueries(ctx, []string{text})
	if err != nil || len(vecs) == 0 {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	hits, err := r.vectorIndex.Search(ctx, vecs[0], limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	return ids, nil
}

func (r *Retriever) hydrate(ctx context.Context, ranked []rankedID, query string) ([]domain.ResultItem, error) {
	items := make([]domain.ResultItem, 0, len(ranked))
	for _, rk := range ranked {
		chunk, err := r.store.GetChunk(ctx, rk.chunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", rk.chunkID, err)
		}
		doc, err := r.store.GetDocument(ctx, chunk.DocumentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get document %s: %w", chunk.DocumentID, err)
		}

		items = append(items, domain.ResultItem{
			ChunkID:    chunk.ID,
			DocumentID: doc.ID,
			Score:      float32(rk.score),
			Title:      doc.Title,
			Snippet:    snippet(chunk.Text, query, r.snippetLen),
			Text:       chunk.Text,
			Provenance: domain.Provenance{
				Path:       doc.ExternalID,
				PageFrom:   chunk.Meta.PageFrom,
				PageTo:     chunk.Meta.PageTo,
				Section:    chunk.Meta.Section,
				ModifiedTS: doc.ModifiedTS,
			},
		})
	}
	return items, nil
}

func (r *Retriever) rerank(ctx context.Context, query string, items []domain.ResultItem) ([]domain.ResultItem, error) {
	passages := make([]string, len(items))
	for i, it := range items {
		passages[i] = it.Text
	}
	scores, err := r.crossEncoder.Rerank(ctx, query, passages)
	if err != nil {
		return items, err
	}
	for i := range items {
		if i < len(scores) {
			items[i].Score = scores[i]
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	return items, nil
}

func (r *Retriever) diversify(ctx context.Context, items []domain.ResultItem, opts domain.RetrieveOptions) []domain.ResultItem {
	if len(items) == 0 {
		return items
	}
	lambda := opts.MMRLambda
	if lambda <= 0 {
		lambda = 0.5
	}

	candidates := make([]mmrCandidate, len(items))
	for i, it := range items {
		var vector []float32
		if r.vectorIndex != nil {
			if v, ok := r.vectorIndex.Get(ctx, it.ChunkID); ok {
				vector = v
			}
		}
		candidates[i] = mmrCandidate{chunkID: it.ChunkID, score: it.Score, text: it.Text, vector: vector}
	}

	k := opts.KFinal
	if k <= 0 || k > len(candidates) {
		k = len(candidates)
	}
	selected := mmr(candidates, k, lambda)

	byID := make(map[string]domain.ResultItem, len(items))
	for _, it := range items {
		byID[it.ChunkID] = it
	}
	out := make([]domain.ResultItem, len(selected))
	for i, c := range selected {
		out[i] = byID[c.chunkID]
	}
	return out
}
