package cli

import (
	"context"
	"fmt"

	"github.com/context-cache/ctxc/internal/chunker"
	cfgpkg "github.com/context-cache/ctxc/internal/config"
	"github.com/context-cache/ctxc/internal/embedding"
	"github.com/context-cache/ctxc/internal/ingest"
	"github.com/context-cache/ctxc/internal/loaders"
	"github.com/context-cache/ctxc/internal/retriever"
	"github.com/context-cache/ctxc/internal/retriever/rerank/hashed"
	"github.com/context-cache/ctxc/internal/scheduler"
	"github.com/context-cache/ctxc/internal/storage/sqlite"
	"github.com/context-cache/ctxc/internal/vectorindex"
	"github.com/context-cache/ctxc/internal/watcher"
)

var wired bool

// ensureWired loads config and constructs every service handle once, on
// first use by a subcommand. Commands that only print static information
// (version) never call this and so work without a workspace on disk.
func ensureWired(ctx context.Context) error {
	if wired {
		return nil
	}

	c, err := cfgpkg.Load(dataDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c

	st, err := sqlite.NewStore(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	emb, err := embedding.New(ctx, embedding.Config{
		Backend: embedding.Backend(cfg.Embedding.Backend),
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
		BaseURL: cfg.Embedding.BaseURL,
		Dim:     cfg.Embedding.Dim,
	})
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}

	vi := vectorindex.New()
	if err := vi.Rebuild(ctx, func(yield func(chunkID string, vector []float32) bool) {
		embs, err := st.ListAllChunkEmbeddings(ctx, emb.Name())
		if err != nil {
			return
		}
		for _, e := range embs {
			if !yield(e.ChunkID, e.Vector) {
				return
			}
		}
	}); err != nil {
		return fmt.Errorf("rebuild vector index: %w", err)
	}

	reg := loaders.New()
	loaders.RegisterDefaults(reg)

	chk := chunker.New(chunker.ApproxTokeniser{}, chunker.Budget{
		Target: cfg.Chunk.TargetTokens,
		Max:    cfg.Chunk.MaxTokens,
		Min:    cfg.Chunk.MinTokens,
	})

	crossEncoder := hashed.New()

	storeSvc = st
	ingestSvc = ingest.New(st, reg, chk, emb, vi)
	retrieverSvc = retriever.New(st, vi, emb, crossEncoder)
	watcherSvc = watcher.New(st, ingestSvc)
	schedulerSvc = scheduler.New(cfg.SchedulerWorkers, 256)
	crossEncoderSvc = crossEncoder

	wired = true
	return nil
}
