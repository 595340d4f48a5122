package domain

import "time"

// Document is the canonical representation of ingested content after
// loading and normalisation. sha256 uniquely identifies the raw bytes that
// produced it: re-ingesting identical bytes is a metadata-only no-op.
type Document struct {
	ID          string
	SourceID    string
	ExternalID  string
	Title       string
	Author      string
	CreatedTS   *time.Time
	ModifiedTS  *time.Time
	MIME        string
	SHA256      string
	Text        string
	Meta        DocumentMeta
	SizeBytes   int64
	IsDeleted   bool
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DocumentMeta carries loader-produced structural metadata. Pages is only
// populated by loaders that can address page boundaries (PDF).
type DocumentMeta struct {
	Tags  []string   `json:"tags,omitempty"`
	Pages []PageSpan `json:"pages,omitempty"`
	Lang  string     `json:"lang,omitempty"`
	Extra map[string]any `json:"extra,omitempty"`
}

// PageSpan maps a page number to the character range it occupies within the
// normalised document text, so the chunker can stamp page_from/page_to on
// chunks that cross or sit within a page boundary.
type PageSpan struct {
	Index      int `json:"index"`
	StartChar  int `json:"start_char"`
	EndChar    int `json:"end_char"`
}

// Chunk is a contiguous, retrieval-sized span of a Document's normalised
// text. Invariant: 0 <= StartChar < EndChar <= len(document.Text), and
// Text == document.Text[StartChar:EndChar].
type Chunk struct {
	ID         string
	DocumentID string
	Ordinal    int
	StartChar  int
	EndChar    int
	Text       string
	TokenCount int
	Meta       ChunkMeta
}

// ChunkMeta records structural hints and chunking provenance.
type ChunkMeta struct {
	Section      string `json:"section,omitempty"`
	PageFrom     *int   `json:"page_from,omitempty"`
	PageTo       *int   `json:"page_to,omitempty"`
	TokeniserKind string `json:"tokeniser,omitempty"`
	Fingerprint  uint64 `json:"fingerprint,omitempty"`
}

// EmbeddingStyle distinguishes how an Embedding vector was produced.
type EmbeddingStyle string

const (
	EmbeddingStyleDense  EmbeddingStyle = "dense"
	EmbeddingStyleSparse EmbeddingStyle = "sparse"
	EmbeddingStyleHybrid EmbeddingStyle = "hybrid"
)

// Embedding is keyed by (ChunkID, Model); ‖Vector‖₂ must equal 1 within 1e-6.
type Embedding struct {
	ChunkID string
	Model   string
	Dim     int
	Vector  []float32
	Style   EmbeddingStyle
}

// Tag is a user- or front-matter-derived label attached to documents and
// chunks via many-to-many join tables in the Store.
type Tag struct {
	ID    string
	Label string
}
