package domain

import "time"

// SearchFilters narrows a query to a subset of the corpus. All fields are
// optional; a zero value means "no filter on this dimension".
type SearchFilters struct {
	SourceIDs     []string
	MIME          []string
	ModifiedAfter *time.Time
	ModifiedBefore *time.Time
	Tags          []string
}

// RetrieveOptions configures one call to the Retriever.
type RetrieveOptions struct {
	KFinal      int
	UseHybrid   bool
	UseRerank   bool
	MMRLambda   float64
	Filters     SearchFilters
	ReturnText  bool
	Deadline    *time.Time
}

// DefaultRetrieveOptions mirrors the HTTP contract's defaults.
func DefaultRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{
		KFinal:     8,
		UseHybrid:  true,
		UseRerank:  true,
		MMRLambda:  0.5,
		ReturnText: true,
	}
}

// Query is the frozen record of a retrieval request. Once its ranked
// snapshot is written via RecordResults, it is immutable: /why replays it
// verbatim regardless of later ingests or deletes.
type Query struct {
	ID             string
	Text           string
	Filters        SearchFilters
	RerankEnabled  bool
	CreatedAt      time.Time
}

// Provenance pins a result to the exact document span it came from.
type Provenance struct {
	SourceLabel string
	Path        string
	PageFrom    *int
	PageTo      *int
	Section     string
	ModifiedTS  *time.Time
}

// ResultItem is one ranked, provenance-stamped hit returned by the Retriever
// and frozen into the query journal.
type ResultItem struct {
	Rank         int
	ChunkID      string
	DocumentID   string
	Score        float32
	DenseScore   *float32
	SparseScore  *float32
	Title        string
	Snippet      string
	Text         string
	Provenance   Provenance
	DeepLink     string
}

// QueryResult is the persisted-row form of a ResultItem, keyed by query and
// rank, as stored by the query journal.
type QueryResult struct {
	QueryID            string
	ChunkID            string
	Rank               int
	Score              float32
	ProvenanceSnapshot ResultItem
}
