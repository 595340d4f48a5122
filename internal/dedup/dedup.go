// Package dedup implements two dedup gates: a file-level sha256 gate that
// makes re-ingesting identical bytes a metadata-only no-op, and a
// chunk-level fingerprint gate that collapses exact-duplicate chunks
// within one document (e.g. a boilerplate footer repeated on every page)
// before they reach the vector index.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/context-cache/ctxc/internal/core/domain"
)

// SHA256Hex returns the lowercase hex sha256 of content, used as
// Document.SHA256 for the file-level dedup gate.
func SHA256Hex(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// Unchanged reports whether newSHA matches a document already on record,
// meaning re-ingestion is a metadata-only no-op.
func Unchanged(existing domain.Document, newSHA string) bool {
	return existing.SHA256 == newSHA
}

// CollapseChunks drops chunks whose Meta.Fingerprint repeats an earlier
// chunk's within the same document, keeping the first occurrence. Order is
// preserved.
func CollapseChunks(chunks []domain.Chunk) []domain.Chunk {
	seen := make(map[uint64]bool, len(chunks))
	out := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Meta.Fingerprint != 0 && seen[c.Meta.Fingerprint] {
			continue
		}
		seen[c.Meta.Fingerprint] = true
		out = append(out, c)
	}
	return out
}
