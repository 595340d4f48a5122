package driven

import "github.com/context-cache/ctxc/internal/core/domain"

// Tokeniser counts tokens for chunk budgeting. Swappable: a real BPE
// tokeniser in production, a ceil(runes/4) approximation offline.
type Tokeniser interface {
	Kind() string
	Count(s string) int
}

// Chunker splits a Document's normalised text into retrieval-sized Chunks,
// honouring target/max/min token budgets and structural boundaries
// (headings, pages) where the source format provides them.
type Chunker interface {
	Chunk(doc domain.Document) ([]domain.Chunk, error)
}
