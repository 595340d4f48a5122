// Package ingest orchestrates the ingest pipeline: load raw bytes, dedup
// by sha256, chunk, embed, and persist — one IngestJob per call, with
// per-file failures recorded on the job rather than aborting the batch.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
	"github.com/context-cache/ctxc/internal/core/ports/driving"
	"github.com/context-cache/ctxc/internal/dedup"
	"github.com/context-cache/ctxc/internal/logger"
)

var _ driving.IngestService = (*Pipeline)(nil)

type Pipeline struct {
	store       driven.Store
	registry    driven.LoaderRegistry
	chunker     driven.Chunker
	embedder    driven.Embedder
	vectorIndex driven.VectorIndex
}

func New(store driven.Store, registry driven.LoaderRegistry, chunker driven.Chunker, embedder driven.Embedder, vectorIndex driven.VectorIndex) *Pipeline {
	return &Pipeline{
		store:       store,
		registry:    registry,
		chunker:     chunker,
		embedder:    embedder,
		vectorIndex: vectorIndex,
	}
}

func (p *Pipeline) IngestPaths(ctx context.Context, sourceID string, paths []string, priority domain.Priority) (domain.IngestJob, error) {
	job := domain.IngestJob{
		ID:       uuid.New().String(),
		SourceID: sourceID,
		Status:   domain.JobStatusRunning,
		Priority: priority,
	}
	start := time.Now()
	job.StartedAt = &start
	if err := p.store.CreateIngestJob(ctx, job); err != nil {
		return domain.IngestJob{}, fmt.Errorf("create ingest job: %w", err)
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			job.CancelReason = err.Error()
			break
		}
		if err := p.ingestOne(ctx, sourceID, path, &job.Stats); err != nil {
			logger.Error("ingest %s: %v", path, err)
			job.Stats.Errors = append(job.Stats.Errors, fmt.Sprintf("%s: %v", path, err))
		}
	}

	finish := time.Now()
	job.FinishedAt = &finish
	job.Stats.DurationMS = finish.Sub(start).Milliseconds()
	job.Status = domain.JobStatusDone
	if len(job.Stats.Errors) > 0 && job.Stats.DocumentsAdded == 0 && job.Stats.DocumentsSkipped == 0 {
		job.Status = domain.JobStatusError
	}
	if err := p.store.UpdateIngestJob(ctx, job); err != nil {
		return job, fmt.Errorf("update ingest job: %w", err)
	}
	return job, nil
}

func (p *Pipeline) IngestSource(ctx context.Context, sourceID string, priority domain.Priority) (domain.IngestJob, error) {
	src, err := p.store.GetSource(ctx, sourceID)
	if err != nil {
		return domain.IngestJob{}, fmt.Errorf("get source: %w", err)
	}
	paths, err := walkSource(src)
	if err != nil {
		return domain.IngestJob{}, fmt.Errorf("walk source: %w", err)
	}
	return p.IngestPaths(ctx, sourceID, paths, priority)
}

func (p *Pipeline) RemovePaths(ctx context.Context, sourceID string, paths []string) error {
	for _, path := range paths {
		sha, err := shaOfPath(path)
		if err != nil {
			continue
		}
		doc, found, err := p.store.GetDocumentBySHA256(ctx, sha)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if err := p.store.MarkDeleted(ctx, doc.ID); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) JobStatus(ctx context.Context, jobID string) (domain.IngestJob, error) {
	return p.store.GetIngestJob(ctx, jobID)
}

func (p *Pipeline) ingestOne(ctx context.Context, sourceID, path string, stats *domain.IngestStats) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	mime := mimeFromExt(path)
	loader, ok := p.registry.Resolve(path, mime)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedType, path)
	}

	raw := domain.RawDocument{SourceID: sourceID, Path: path, MIME: mime, Content: content, ModTime: info.ModTime().UnixMilli()}
	docs, err := loader.Load(raw)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		doc.SourceID = sourceID
		doc.SHA256 = dedup.SHA256Hex(content)
		doc.SizeBytes = int64(len(content))
		mtime := info.ModTime()
		doc.ModifiedTS = &mtime

		created, err := p.store.UpsertDocument(ctx, doc)
		if err != nil {
			return fmt.Errorf("upsert document: %w", err)
		}
		if !created {
			stats.DocumentsSkipped++
			continue
		}

		if err := p.chunkAndIndex(ctx, doc); err != nil {
			return fmt.Errorf("chunk and index: %w", err)
		}
		stats.DocumentsAdded++
	}
	return nil
}

func (p *Pipeline) chunkAndIndex(ctx context.Context, doc domain.Document) error {
	chunks, err := p.chunker.Chunk(doc)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}
	chunks = dedup.CollapseChunks(chunks)
	for i := range chunks {
		chunks[i].ID = uuid.New().String()
	}

	var embeddings []domain.Embedding
	if p.embedder != nil && len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vecs, err := p.embedder.EncodePassages(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed passages: %w", err)
		}
		embeddings = make([]domain.Embedding, len(chunks))
		for i, c := range chunks {
			embeddings[i] = domain.Embedding{ChunkID: c.ID, Model: p.embedder.Name(), Dim: p.embedder.Dim(), Vector: vecs[i], Style: domain.EmbeddingStyleDense}
		}
	}

	if err := p.store.InsertChunks(ctx, doc.ID, chunks, embeddings); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}

	if p.vectorIndex != nil {
		for _, e := range embeddings {
			if err := p.vectorIndex.Upsert(ctx, e.ChunkID, e.Vector); err != nil {
				return fmt.Errorf("vector upsert: %w", err)
			}
		}
	}
	return nil
}

func walkSource(src domain.Source) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(src.URI, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if matchesSource(src, path) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

func matchesSource(src domain.Source, path string) bool {
	base := filepath.Base(path)
	if len(src.ExcludeGlob) > 0 {
		for _, pat := range src.ExcludeGlob {
			if ok, _ := filepath.Match(pat, base); ok {
				return false
			}
		}
	}
	if len(src.IncludeGlob) == 0 {
		return true
	}
	for _, pat := range src.IncludeGlob {
		if ok, _ := filepath.Match(pat, base); ok {
			return true
		}
	}
	return false
}

func shaOfPath(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return dedup.SHA256Hex(content), nil
}

func mimeFromExt(path string) string {
	switch filepath.Ext(path) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	case ".eml":
		return "message/rfc822"
	case ".mbox":
		return "application/mbox"
	case ".html", ".htm":
		return "text/html"
	default:
		return "text/plain"
	}
}
