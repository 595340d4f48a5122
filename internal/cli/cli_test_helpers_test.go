package cli

import (
	"context"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

// fakeCLIStore implements driven.Store for command-level tests; only the
// methods the CLI commands actually call are functional, the rest panic if
// reached.
type fakeCLIStore struct {
	sources    []domain.Source
	tags       []domain.Tag
	upserted   []domain.Source
	deletedID  string
	documents  []domain.Document
	chunks     map[string][]domain.Chunk
}

func (f *fakeCLIStore) UpsertSource(ctx context.Context, s domain.Source) error {
	f.upserted = append(f.upserted, s)
	return nil
}
func (f *fakeCLIStore) GetSource(ctx context.Context, id string) (domain.Source, error) {
	panic("unused")
}
func (f *fakeCLIStore) ListSources(ctx context.Context) ([]domain.Source, error) { return f.sources, nil }
func (f *fakeCLIStore) DeleteSource(ctx context.Context, id string) error {
	f.deletedID = id
	return nil
}
func (f *fakeCLIStore) UpsertDocument(ctx context.Context, d domain.Document) (bool, error) {
	panic("unused")
}
func (f *fakeCLIStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	panic("unused")
}
func (f *fakeCLIStore) GetDocumentBySHA256(ctx context.Context, sha256 string) (domain.Document, bool, error) {
	panic("unused")
}
func (f *fakeCLIStore) ListDocuments(ctx context.Context, sourceID string) ([]domain.Document, error) {
	var out []domain.Document
	for _, d := range f.documents {
		if d.SourceID == sourceID {
			out = append(out, d)
		}
	}
	return out, nil
}
func (f *fakeCLIStore) MarkDeleted(ctx context.Context, documentID string) error { panic("unused") }
func (f *fakeCLIStore) InsertChunks(ctx context.Context, documentID string, chunks []domain.Chunk, embeddings []domain.Embedding) error {
	panic("unused")
}
func (f *fakeCLIStore) GetChunk(ctx context.Context, id string) (domain.Chunk, error) {
	panic("unused")
}
func (f *fakeCLIStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return f.chunks[documentID], nil
}
func (f *fakeCLIStore) ListAllChunkEmbeddings(ctx context.Context, model string) ([]domain.Embedding, error) {
	panic("unused")
}
func (f *fakeCLIStore) SearchFTS(ctx context.Context, queryText string, filters domain.SearchFilters, limit int) ([]driven.FTSHit, error) {
	panic("unused")
}
func (f *fakeCLIStore) UpsertTag(ctx context.Context, t domain.Tag) error { panic("unused") }
func (f *fakeCLIStore) TagDocument(ctx context.Context, documentID, tagID string) error {
	panic("unused")
}
func (f *fakeCLIStore) TagChunk(ctx context.Context, chunkID, tagID string) error { panic("unused") }
func (f *fakeCLIStore) ListTags(ctx context.Context) ([]domain.Tag, error)        { return f.tags, nil }
func (f *fakeCLIStore) CreateIngestJob(ctx context.Context, j domain.IngestJob) error {
	panic("unused")
}
func (f *fakeCLIStore) UpdateIngestJob(ctx context.Context, j domain.IngestJob) error {
	panic("unused")
}
func (f *fakeCLIStore) GetIngestJob(ctx context.Context, id string) (domain.IngestJob, error) {
	panic("unused")
}
func (f *fakeCLIStore) RecordQuery(ctx context.Context, q domain.Query) error { panic("unused") }
func (f *fakeCLIStore) RecordResults(ctx context.Context, queryID string, results []domain.QueryResult) error {
	panic("unused")
}
func (f *fakeCLIStore) FetchWhy(ctx context.Context, queryID string) (domain.Query, []domain.QueryResult, error) {
	panic("unused")
}
func (f *fakeCLIStore) Close() error { return nil }

var _ driven.Store = (*fakeCLIStore)(nil)

type fakeCLIRetriever struct {
	query   domain.Query
	results []domain.ResultItem
	err     error
}

func (f *fakeCLIRetriever) Query(ctx context.Context, text string, opts domain.RetrieveOptions) (domain.Query, []domain.ResultItem, error) {
	if f.err != nil {
		return domain.Query{}, nil, f.err
	}
	return f.query, f.results, nil
}

func (f *fakeCLIRetriever) Why(ctx context.Context, queryID string) (domain.Query, []domain.ResultItem, error) {
	if f.err != nil {
		return domain.Query{}, nil, f.err
	}
	return f.query, f.results, nil
}

type fakeCLIIngest struct {
	job          domain.IngestJob
	err          error
	lastSourceID string
	lastPaths    []string
}

func (f *fakeCLIIngest) IngestPaths(ctx context.Context, sourceID string, paths []string, priority domain.Priority) (domain.IngestJob, error) {
	f.lastSourceID = sourceID
	f.lastPaths = paths
	return f.job, f.err
}
func (f *fakeCLIIngest) IngestSource(ctx context.Context, sourceID string, priority domain.Priority) (domain.IngestJob, error) {
	f.lastSourceID = sourceID
	return f.job, f.err
}
func (f *fakeCLIIngest) RemovePaths(ctx context.Context, sourceID string, paths []string) error {
	return nil
}
func (f *fakeCLIIngest) JobStatus(ctx context.Context, jobID string) (domain.IngestJob, error) {
	return f.job, f.err
}

// setupTestCLIServices wires package-level service handles to fakes and
// marks the lazy wiring done, so subcommands skip ensureWired's real
// config/store/embedder construction entirely. Returns a cleanup func that
// restores the pre-test state.
func setupTestCLIServices(store *fakeCLIStore, retriever *fakeCLIRetriever) func() {
	return setupTestCLIServicesWithIngest(store, retriever, &fakeCLIIngest{})
}

func setupTestCLIServicesWithIngest(store *fakeCLIStore, retriever *fakeCLIRetriever, ingest *fakeCLIIngest) func() {
	prevWired := wired
	prevStore := storeSvc
	prevRetriever := retrieverSvc
	prevIngest := ingestSvc

	storeSvc = store
	retrieverSvc = retriever
	ingestSvc = ingest
	wired = true

	return func() {
		wired = prevWired
		storeSvc = prevStore
		retrieverSvc = prevRetriever
		ingestSvc = prevIngest
	}
}
