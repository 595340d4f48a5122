package driven

import (
	"context"

	"github.com/context-cache/ctxc/internal/core/domain"
)

// Store is the single persistence port: one embedded database file backing
// sources, documents, chunks, embeddings, tags, ingest jobs and the query
// journal. All methods are safe for concurrent use; writers serialise
// internally.
type Store interface {
	UpsertSource(ctx context.Context, s domain.Source) error
	GetSource(ctx context.Context, id string) (domain.Source, error)
	ListSources(ctx context.Context) ([]domain.Source, error)
	DeleteSource(ctx context.Context, id string) error

	// UpsertDocument is a metadata-only no-op when sha256 is unchanged from
	// the stored row.
	UpsertDocument(ctx context.Context, d domain.Document) (created bool, err error)
	GetDocument(ctx context.Context, id string) (domain.Document, error)
	GetDocumentBySHA256(ctx context.Context, sha256 string) (domain.Document, bool, error)
	ListDocuments(ctx context.Context, sourceID string) ([]domain.Document, error)
	MarkDeleted(ctx context.Context, documentID string) error

	// InsertChunks replaces all chunks (and their embeddings) for a document
	// transactionally: delete-then-insert, never a partial rewrite.
	InsertChunks(ctx context.Context, documentID string, chunks []domain.Chunk, embeddings []domain.Embedding) error
	GetChunk(ctx context.Context, id string) (domain.Chunk, error)
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)
	ListAllChunkEmbeddings(ctx context.Context, model string) ([]domain.Embedding, error)

	// SearchFTS runs the BM25 full-text query (sparse leg of retrieval) and
	// returns chunk IDs ranked by relevance, most relevant first.
	SearchFTS(ctx context.Context, queryText string, filters domain.SearchFilters, limit int) ([]FTSHit, error)

	UpsertTag(ctx context.Context, t domain.Tag) error
	TagDocument(ctx context.Context, documentID, tagID string) error
	TagChunk(ctx context.Context, chunkID, tagID string) error
	ListTags(ctx context.Context) ([]domain.Tag, error)

	CreateIngestJob(ctx context.Context, j domain.IngestJob) error
	UpdateIngestJob(ctx context.Context, j domain.IngestJob) error
	GetIngestJob(ctx context.Context, id string) (domain.IngestJob, error)

	// RecordQuery and RecordResults together freeze a query journal entry.
	// Once RecordResults returns, that (query, results) pair never changes —
	// /why replays it verbatim regardless of later ingests or deletes.
	RecordQuery(ctx context.Context, q domain.Query) error
	RecordResults(ctx context.Context, queryID string, results []domain.QueryResult) error
	FetchWhy(ctx context.Context, queryID string) (domain.Query, []domain.QueryResult, error)

	Close() error
}

// FTSHit is one row out of the sparse full-text leg, carrying the BM25 score
// the fusion stage needs before any normalisation. IsDeleted is carried
// through (rather than filtered out in SQL) so the retriever can down-weight
// a soft-deleted document's chunks instead of hard-excluding them — the
// dense leg already stops surfacing them once the vector index cache next
// rebuilds, so this keeps both legs converging on the same end state
// without a sparse-side result disappearing mid-flight.
type FTSHit struct {
	ChunkID    string
	DocumentID string
	BM25Score  float64
	IsDeleted  bool
}
