package export

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

type fakeExportStore struct {
	docs   []domain.Document
	chunks map[string][]domain.Chunk
}

func (f *fakeExportStore) UpsertSource(ctx context.Context, s domain.Source) error { panic("unused") }
func (f *fakeExportStore) GetSource(ctx context.Context, id string) (domain.Source, error) {
	panic("unused")
}
func (f *fakeExportStore) ListSources(ctx context.Context) ([]domain.Source, error) {
	panic("unused")
}
func (f *fakeExportStore) DeleteSource(ctx context.Context, id string) error { panic("unused") }
func (f *fakeExportStore) UpsertDocument(ctx context.Context, d domain.Document) (bool, error) {
	panic("unused")
}
func (f *fakeExportStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	panic("unused")
}
func (f *fakeExportStore) GetDocumentBySHA256(ctx context.Context, sha256 string) (domain.Document, bool, error) {
	panic("unused")
}
func (f *fakeExportStore) ListDocuments(ctx context.Context, sourceID string) ([]domain.Document, error) {
	return f.docs, nil
}
func (f *fakeExportStore) MarkDeleted(ctx context.Context, documentID string) error {
	panic("unused")
}
func (f *fakeExportStore) InsertChunks(ctx context.Context, documentID string, chunks []domain.Chunk, embeddings []domain.Embedding) error {
	panic("unused")
}
func (f *fakeExportStore) GetChunk(ctx context.Context, id string) (domain.Chunk, error) {
	panic("unused")
}
func (f *fakeExportStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return f.chunks[documentID], nil
}
func (f *fakeExportStore) ListAllChunkEmbeddings(ctx context.Context, model string) ([]domain.Embedding, error) {
	panic("unused")
}
func (f *fakeExportStore) SearchFTS(ctx context.Context, queryText string, filters domain.SearchFilters, limit int) ([]driven.FTSHit, error) {
	panic("unused")
}
func (f *fakeExportStore) UpsertTag(ctx context.Context, t domain.Tag) error { panic("unused") }
func (f *fakeExportStore) TagDocument(ctx context.Context, documentID, tagID string) error {
	panic("unused")
}
func (f *fakeExportStore) TagChunk(ctx context.Context, chunkID, tagID string) error {
	panic("unused")
}
func (f *fakeExportStore) ListTags(ctx context.Context) ([]domain.Tag, error) { panic("unused") }
func (f *fakeExportStore) CreateIngestJob(ctx context.Context, j domain.IngestJob) error {
	panic("unused")
}
func (f *fakeExportStore) UpdateIngestJob(ctx context.Context, j domain.IngestJob) error {
	panic("unused")
}
func (f *fakeExportStore) GetIngestJob(ctx context.Context, id string) (domain.IngestJob, error) {
	panic("unused")
}
func (f *fakeExportStore) RecordQuery(ctx context.Context, q domain.Query) error { panic("unused") }
func (f *fakeExportStore) RecordResults(ctx context.Context, queryID string, results []domain.QueryResult) error {
	panic("unused")
}
func (f *fakeExportStore) FetchWhy(ctx context.Context, queryID string) (domain.Query, []domain.QueryResult, error) {
	panic("unused")
}
func (f *fakeExportStore) Close() error { return nil }

var _ driven.Store = (*fakeExportStore)(nil)

func TestWriteBundleEmitsOneLinePerDocument(t *testing.T) {
	store := &fakeExportStore{
		docs: []domain.Document{{ID: "d1", Title: "a"}, {ID: "d2", Title: "b"}},
		chunks: map[string][]domain.Chunk{
			"d1": {{ID: "c1", DocumentID: "d1"}},
			"d2": {{ID: "c2", DocumentID: "d2"}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteBundle(context.Background(), store, &buf, ""))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var rec Record
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "d1", rec.Document.ID)
	require.Len(t, rec.Chunks, 1)
}

func TestWriteBundleEmptyStoreProducesNoLines(t *testing.T) {
	store := &fakeExportStore{}
	var buf bytes.Buffer
	require.NoError(t, WriteBundle(context.Background(), store, &buf, ""))
	assert.Empty(t, buf.Bytes())
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	plaintext := []byte("hello context cache")
	ciphertext, err := Encrypt(key, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	got, err := Decrypt(key, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestDecryptRejectsTruncatedCiphertext(t *testing.T) {
	key := make([]byte, 32)
	_, err := Decrypt(key, []byte("short"))
	assert.Error(t, err)
}

func TestEncryptRejectsWrongKeySize(t *testing.T) {
	_, err := Encrypt([]byte("tooshort"), []byte("data"))
	assert.Error(t, err)
}

func TestNewS3UploaderRejectsMissingRegion(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), "", "bucket", "", "")
	assert.Error(t, err)
}

func TestNewS3UploaderRejectsMissingBucket(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), "us-east-1", "", "", "")
	assert.Error(t, err)
}
