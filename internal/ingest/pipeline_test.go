package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
	"github.com/context-cache/ctxc/internal/loaders"
)

func newLoaderRegistry() driven.LoaderRegistry {
	r := loaders.New()
	loaders.RegisterDefaults(r)
	return r
}

type fakeStore struct {
	sources     map[string]domain.Source
	docsBySHA   map[string]domain.Document
	jobs        map[string]domain.IngestJob
	chunksByDoc map[string][]domain.Chunk
	deletedIDs  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sources:     map[string]domain.Source{},
		docsBySHA:   map[string]domain.Document{},
		jobs:        map[string]domain.IngestJob{},
		chunksByDoc: map[string][]domain.Chunk{},
	}
}

func (f *fakeStore) UpsertSource(ctx context.Context, s domain.Source) error { panic("unused") }
func (f *fakeStore) GetSource(ctx context.Context, id string) (domain.Source, error) {
	s, ok := f.sources[id]
	if !ok {
		return domain.Source{}, domain.ErrNotFound
	}
	return s, nil
}
func (f *fakeStore) ListSources(ctx context.Context) ([]domain.Source, error) { panic("unused") }
func (f *fakeStore) DeleteSource(ctx context.Context, id string) error       { panic("unused") }

func (f *fakeStore) UpsertDocument(ctx context.Context, d domain.Document) (bool, error) {
	if existing, ok := f.docsBySHA[d.SHA256]; ok {
		_ = existing
		return false, nil
	}
	f.docsBySHA[d.SHA256] = d
	return true, nil
}
func (f *fakeStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	panic("unused")
}
func (f *fakeStore) GetDocumentBySHA256(ctx context.Context, sha256 string) (domain.Document, bool, error) {
	d, ok := f.docsBySHA[sha256]
	return d, ok, nil
}
func (f *fakeStore) ListDocuments(ctx context.Context, sourceID string) ([]domain.Document, error) {
	panic("unused")
}
func (f *fakeStore) MarkDeleted(ctx context.Context, documentID string) error {
	f.deletedIDs = append(f.deletedIDs, documentID)
	return nil
}

func (f *fakeStore) InsertChunks(ctx context.Context, documentID string, chunks []domain.Chunk, embeddings []domain.Embedding) error {
	f.chunksByDoc[documentID] = chunks
	return nil
}
func (f *fakeStore) GetChunk(ctx context.Context, id string) (domain.Chunk, error) {
	panic("unused")
}
func (f *fakeStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return f.chunksByDoc[documentID], nil
}
func (f *fakeStore) ListAllChunkEmbeddings(ctx context.Context, model string) ([]domain.Embedding, error) {
	panic("unused")
}
func (f *fakeStore) SearchFTS(ctx context.Context, queryText string, filters domain.SearchFilters, limit int) ([]driven.FTSHit, error) {
	panic("unused")
}
func (f *fakeStore) UpsertTag(ctx context.Context, t domain.Tag) error          { panic("unused") }
func (f *fakeStore) TagDocument(ctx context.Context, documentID, tagID string) error {
	panic("unused")
}
func (f *fakeStore) TagChunk(ctx context.Context, chunkID, tagID string) error { panic("unused") }
func (f *fakeStore) ListTags(ctx context.Context) ([]domain.Tag, error)        { panic("unused") }

func (f *fakeStore) CreateIngestJob(ctx context.Context, j domain.IngestJob) error {
	f.jobs[j.ID] = j
	return nil
}
func (f *fakeStore) UpdateIngestJob(ctx context.Context, j domain.IngestJob) error {
	f.jobs[j.ID] = j
	return nil
}
func (f *fakeStore) GetIngestJob(ctx context.Context, id string) (domain.IngestJob, error) {
	j, ok := f.jobs[id]
	if !ok {
		return domain.IngestJob{}, domain.ErrNotFound
	}
	return j, nil
}

func (f *fakeStore) RecordQuery(ctx context.Context, q domain.Query) error { panic("unused") }
func (f *fakeStore) RecordResults(ctx context.Context, queryID string, results []domain.QueryResult) error {
	panic("unused")
}
func (f *fakeStore) FetchWhy(ctx context.Context, queryID string) (domain.Query, []domain.QueryResult, error) {
	panic("unused")
}
func (f *fakeStore) Close() error { return nil }

var _ driven.Store = (*fakeStore)(nil)

type fakeChunker struct{}

func (fakeChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	return []domain.Chunk{{DocumentID: doc.ID, Ordinal: 0, Text: doc.Text, TokenCount: len(doc.Text) / 4}}, nil
}

type fakeEmbedder struct{ dim int }

func (e fakeEmbedder) Name() string { return "fake-v1" }
func (e fakeEmbedder) Dim() int     { return e.dim }
func (e fakeEmbedder) EncodePassages(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, e.dim)
	}
	return out, nil
}
func (e fakeEmbedder) EncodeQueries(ctx context.Context, texts []string) ([][]float32, error) {
	return e.EncodePassages(ctx, texts)
}

type fakeVectorIndex struct{ upserted []string }

func (v *fakeVectorIndex) Upsert(ctx context.Context, chunkID string, vector []float32) error {
	v.upserted = append(v.upserted, chunkID)
	return nil
}
func (v *fakeVectorIndex) Remove(ctx context.Context, chunkID string) error { return nil }
func (v *fakeVectorIndex) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	return nil, nil
}
func (v *fakeVectorIndex) Rebuild(ctx context.Context, embeddings func(yield func(chunkID string, vector []float32) bool)) error {
	return nil
}
func (v *fakeVectorIndex) Get(ctx context.Context, chunkID string) ([]float32, bool) { return nil, false }
func (v *fakeVectorIndex) Len() int                                                  { return len(v.upserted) }

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestPathsAddsNewDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "note.md", "# Title\n\nbody text here")

	registry := newLoaderRegistry()
	store := newFakeStore()
	vidx := &fakeVectorIndex{}
	p := New(store, registry, fakeChunker{}, fakeEmbedder{dim: 4}, vidx)

	job, err := p.IngestPaths(context.Background(), "s1", []string{path}, domain.PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusDone, job.Status)
	assert.Equal(t, 1, job.Stats.DocumentsAdded)
	assert.Equal(t, 1, vidx.Len())
}

func TestIngestPathsSkipsUnchangedSHA(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "note.md", "same content")

	registry := newLoaderRegistry()
	store := newFakeStore()
	p := New(store, registry, fakeChunker{}, nil, nil)

	_, err := p.IngestPaths(context.Background(), "s1", []string{path}, domain.PriorityNormal)
	require.NoError(t, err)

	job, err := p.IngestPaths(context.Background(), "s1", []string{path}, domain.PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, 1, job.Stats.DocumentsSkipped)
}

func TestIngestPathsRecordsErrorForUnreadableFile(t *testing.T) {
	registry := newLoaderRegistry()
	store := newFakeStore()
	p := New(store, registry, fakeChunker{}, nil, nil)

	job, err := p.IngestPaths(context.Background(), "s1", []string{"/does/not/exist.md"}, domain.PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusError, job.Status)
	require.Len(t, job.Stats.Errors, 1)
}

func TestIngestSourceWalksDirectory(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.md", "content a")
	writeTempFile(t, dir, "b.md", "content b")

	registry := newLoaderRegistry()
	store := newFakeStore()
	store.sources["s1"] = domain.Source{ID: "s1", Kind: domain.SourceKindFolder, URI: dir}
	p := New(store, registry, fakeChunker{}, nil, nil)

	job, err := p.IngestSource(context.Background(), "s1", domain.PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, 2, job.Stats.DocumentsAdded)
}

func TestRemovePathsMarksMatchingDocumentDeleted(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "note.md", "to remove")

	registry := newLoaderRegistry()
	store := newFakeStore()
	p := New(store, registry, fakeChunker{}, nil, nil)

	_, err := p.IngestPaths(context.Background(), "s1", []string{path}, domain.PriorityNormal)
	require.NoError(t, err)

	require.NoError(t, p.RemovePaths(context.Background(), "s1", []string{path}))
	require.Len(t, store.deletedIDs, 1)
}

func TestJobStatusReturnsRecordedJob(t *testing.T) {
	store := newFakeStore()
	p := New(store, newLoaderRegistry(), fakeChunker{}, nil, nil)
	store.jobs["j1"] = domain.IngestJob{ID: "j1", Status: domain.JobStatusDone}

	job, err := p.JobStatus(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusDone, job.Status)
}
