// Package export snapshots a source's documents and chunks to a single
// JSON-lines bundle, optionally encrypted with AES-256-GCM before being
// written to disk or uploaded to S3.
package export

import (
	"bufio"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

// Record is one line of an export bundle: a document and the chunks
// derived from it, in ingest order.
type Record struct {
	Document domain.Document `json:"document"`
	Chunks   []domain.Chunk  `json:"chunks"`
}

// WriteBundle streams every document (and its chunks) for sourceID as
// newline-delimited JSON into w. An empty sourceID exports every source.
func WriteBundle(ctx context.Context, store driven.Store, w io.Writer, sourceID string) error {
	docs, err := store.ListDocuments(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, doc := range docs {
		chunks, err := store.GetChunks(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("get chunks for %s: %w", doc.ID, err)
		}
		if err := enc.Encode(Record{Document: doc, Chunks: chunks}); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return bw.Flush()
}

// Encrypt seals plaintext with AES-256-GCM under key (must be 32 bytes),
// prefixing the output with a freshly generated nonce.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt: ciphertext must be nonce-prefixed as Encrypt
// produces it.
func Decrypt(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext shorter than nonce")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
