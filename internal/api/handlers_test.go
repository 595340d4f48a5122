package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

// fakeStore implements driven.Store with just enough behaviour for the
// handler tests; methods the handlers under test never reach panic if
// called.
type fakeStore struct {
	sources          []domain.Source
	tags             []domain.Tag
	deletedID        string
	upsertErr        error
	deleteErr        error
	docsBySource     map[string][]domain.Document
	taggedDocIDs     []string
	markedDeletedIDs []string
}

func (f *fakeStore) UpsertSource(ctx context.Context, s domain.Source) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.sources = append(f.sources, s)
	return nil
}
func (f *fakeStore) GetSource(ctx context.Context, id string) (domain.Source, error) {
	for _, s := range f.sources {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Source{}, domain.ErrNotFound
}
func (f *fakeStore) ListSources(ctx context.Context) ([]domain.Source, error) { return f.sources, nil }
func (f *fakeStore) DeleteSource(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedID = id
	return nil
}
func (f *fakeStore) UpsertDocument(ctx context.Context, d domain.Document) (bool, error) {
	panic("not implemented")
}
func (f *fakeStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	panic("not implemented")
}
func (f *fakeStore) GetDocumentBySHA256(ctx context.Context, sha256 string) (domain.Document, bool, error) {
	panic("not implemented")
}
func (f *fakeStore) ListDocuments(ctx context.Context, sourceID string) ([]domain.Document, error) {
	return f.docsBySource[sourceID], nil
}
func (f *fakeStore) MarkDeleted(ctx context.Context, documentID string) error {
	f.markedDeletedIDs = append(f.markedDeletedIDs, documentID)
	return nil
}
func (f *fakeStore) InsertChunks(ctx context.Context, documentID string, chunks []domain.Chunk, embeddings []domain.Embedding) error {
	panic("not implemented")
}
func (f *fakeStore) GetChunk(ctx context.Context, id string) (domain.Chunk, error) {
	panic("not implemented")
}
func (f *fakeStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	panic("not implemented")
}
func (f *fakeStore) ListAllChunkEmbeddings(ctx context.Context, model string) ([]domain.Embedding, error) {
	panic("not implemented")
}
func (f *fakeStore) SearchFTS(ctx context.Context, queryText string, filters domain.SearchFilters, limit int) ([]driven.FTSHit, error) {
	panic("not implemented")
}
func (f *fakeStore) UpsertTag(ctx context.Context, t domain.Tag) error {
	f.tags = append(f.tags, t)
	return nil
}
func (f *fakeStore) TagDocument(ctx context.Context, documentID, tagID string) error {
	f.taggedDocIDs = append(f.taggedDocIDs, documentID)
	return nil
}
func (f *fakeStore) TagChunk(ctx context.Context, chunkID, tagID string) error {
	panic("not implemented")
}
func (f *fakeStore) ListTags(ctx context.Context) ([]domain.Tag, error) { return f.tags, nil }
func (f *fakeStore) CreateIngestJob(ctx context.Context, j domain.IngestJob) error {
	panic("not implemented")
}
func (f *fakeStore) UpdateIngestJob(ctx context.Context, j domain.IngestJob) error {
	panic("not implemented")
}
func (f *fakeStore) GetIngestJob(ctx context.Context, id string) (domain.IngestJob, error) {
	panic("not implemented")
}
func (f *fakeStore) RecordQuery(ctx context.Context, q domain.Query) error {
	panic("not implemented")
}
func (f *fakeStore) RecordResults(ctx context.Context, queryID string, results []domain.QueryResult) error {
	panic("not implemented")
}
func (f *fakeStore) FetchWhy(ctx context.Context, queryID string) (domain.Query, []domain.QueryResult, error) {
	panic("not implemented")
}
func (f *fakeStore) Close() error { return nil }

var _ driven.Store = (*fakeStore)(nil)

type fakeRetriever struct {
	query      domain.Query
	results    []domain.ResultItem
	queryErr   error
	whyErr     error
	lastQueryText string
	lastWhyID     string
}

func (f *fakeRetriever) Query(ctx context.Context, text string, opts domain.RetrieveOptions) (domain.Query, []domain.ResultItem, error) {
	f.lastQueryText = text
	if f.queryErr != nil {
		return domain.Query{}, nil, f.queryErr
	}
	return f.query, f.results, nil
}

func (f *fakeRetriever) Why(ctx context.Context, queryID string) (domain.Query, []domain.ResultItem, error) {
	f.lastWhyID = queryID
	if f.whyErr != nil {
		return domain.Query{}, nil, f.whyErr
	}
	return f.query, f.results, nil
}

type fakeIngest struct {
	job          domain.IngestJob
	err          error
	lastSourceID string
	lastPaths    []string
}

func (f *fakeIngest) IngestPaths(ctx context.Context, sourceID string, paths []string, priority domain.Priority) (domain.IngestJob, error) {
	f.lastSourceID = sourceID
	f.lastPaths = paths
	return f.job, f.err
}
func (f *fakeIngest) IngestSource(ctx context.Context, sourceID string, priority domain.Priority) (domain.IngestJob, error) {
	f.lastSourceID = sourceID
	return f.job, f.err
}
func (f *fakeIngest) RemovePaths(ctx context.Context, sourceID string, paths []string) error {
	return nil
}
func (f *fakeIngest) JobStatus(ctx context.Context, jobID string) (domain.IngestJob, error) {
	return f.job, f.err
}

type fakeCrossEncoder struct {
	scores   []float32
	err      error
	lastText []string
}

func (f *fakeCrossEncoder) Name() string { return "fake-ce" }
func (f *fakeCrossEncoder) Rerank(ctx context.Context, query string, passages []string) ([]float32, error) {
	f.lastText = passages
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func newTestHandlers(store *fakeStore, retriever *fakeRetriever, ingest *fakeIngest) *Handlers {
	return &Handlers{Store: store, Retriever: retriever, Ingest: ingest}
}

func newTestHandlersWithCrossEncoder(store *fakeStore, ce *fakeCrossEncoder) *Handlers {
	return &Handlers{Store: store, Retriever: &fakeRetriever{}, Ingest: &fakeIngest{}, CrossEncoder: ce}
}

func doRequest(h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleListSources(t *testing.T) {
	store := &fakeStore{sources: []domain.Source{{ID: "s1", Kind: domain.SourceKindFolder, URI: "/data"}}}
	h := newTestHandlers(store, &fakeRetriever{}, &fakeIngest{})
	r := NewRouter(h, "")

	rec := doRequest(r, http.MethodGet, "/sources/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []domain.Source
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)
}

func TestHandleCreateSourceRejectsInvalidKind(t *testing.T) {
	h := newTestHandlers(&fakeStore{}, &fakeRetriever{}, &fakeIngest{})
	r := NewRouter(h, "")

	body, _ := json.Marshal(createSourceRequest{Kind: "bogus", URI: "/x"})
	rec := doRequest(r, http.MethodPost, "/sources/", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCreateSourceSucceeds(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandlers(store, &fakeRetriever{}, &fakeIngest{})
	r := NewRouter(h, "")

	body, _ := json.Marshal(createSourceRequest{Kind: "folder", URI: "/data", Label: "notes"})
	rec := doRequest(r, http.MethodPost, "/sources/", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.sources, 1)
	assert.Equal(t, "/data", store.sources[0].URI)
}

func TestHandleCreateSourceRejectsMalformedJSON(t *testing.T) {
	h := newTestHandlers(&fakeStore{}, &fakeRetriever{}, &fakeIngest{})
	r := NewRouter(h, "")

	rec := doRequest(r, http.MethodPost, "/sources/", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDeleteSource(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandlers(store, &fakeRetriever{}, &fakeIngest{})
	r := NewRouter(h, "")

	rec := doRequest(r, http.MethodDelete, "/sources/s1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "s1", store.deletedID)
}

func TestHandleIngestWithPaths(t *testing.T) {
	ingest := &fakeIngest{job: domain.IngestJob{ID: "job1", Status: domain.JobStatusQueued}}
	h := newTestHandlers(&fakeStore{}, &fakeRetriever{}, ingest)
	r := NewRouter(h, "")

	body, _ := json.Marshal(ingestRequest{SourceID: "s1", Paths: []string{"/a.md"}, Priority: "high"})
	rec := doRequest(r, http.MethodPost, "/ingest", body)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"/a.md"}, ingest.lastPaths)
}

func TestHandleIngestWithoutPathsSweepsSource(t *testing.T) {
	ingest := &fakeIngest{job: domain.IngestJob{ID: "job2"}}
	h := newTestHandlers(&fakeStore{}, &fakeRetriever{}, ingest)
	r := NewRouter(h, "")

	body, _ := json.Marshal(ingestRequest{SourceID: "s1"})
	rec := doRequest(r, http.MethodPost, "/ingest", body)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "s1", ingest.lastSourceID)
	assert.Nil(t, ingest.lastPaths)
}

func TestHandleIngestStatus(t *testing.T) {
	ingest := &fakeIngest{job: domain.IngestJob{ID: "job1", Status: domain.JobStatusDone}}
	h := newTestHandlers(&fakeStore{}, &fakeRetriever{}, ingest)
	r := NewRouter(h, "")

	rec := doRequest(r, http.MethodGet, "/ingest/job1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.IngestJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.JobStatusDone, got.Status)
}

func TestHandleQueryRequiresText(t *testing.T) {
	h := newTestHandlers(&fakeStore{}, &fakeRetriever{}, &fakeIngest{})
	r := NewRouter(h, "")

	body, _ := json.Marshal(queryRequest{})
	rec := doRequest(r, http.MethodPost, "/query", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuerySucceeds(t *testing.T) {
	retriever := &fakeRetriever{
		query:   domain.Query{ID: "q1"},
		results: []domain.ResultItem{{ChunkID: "c1", Score: 0.9}},
	}
	h := newTestHandlers(&fakeStore{}, retriever, &fakeIngest{})
	r := NewRouter(h, "")

	body, _ := json.Marshal(queryRequest{Query: "hello"})
	rec := doRequest(r, http.MethodPost, "/query", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var got queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "q1", got.QueryID)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "hello", retriever.lastQueryText)
}

func TestHandleQueryRejectsBlankQuery(t *testing.T) {
	h := newTestHandlers(&fakeStore{}, &fakeRetriever{}, &fakeIngest{})
	r := NewRouter(h, "")

	body, _ := json.Marshal(queryRequest{Query: ""})
	rec := doRequest(r, http.MethodPost, "/query", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "query must be non-empty", problem.Detail)
}

func TestHandleQueryAppliesFiltersAndOptions(t *testing.T) {
	retriever := &fakeRetriever{query: domain.Query{ID: "q1"}}
	h := newTestHandlers(&fakeStore{}, retriever, &fakeIngest{})
	r := NewRouter(h, "")

	hybrid := false
	body, _ := json.Marshal(queryRequest{
		Query:  "paragraph one",
		K:      2,
		Hybrid: &hybrid,
		Filters: &queryFilters{
			SourceIDs: []string{"s1"},
		},
	})
	rec := doRequest(r, http.MethodPost, "/query", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paragraph one", retriever.lastQueryText)
}

func TestHandleWhy(t *testing.T) {
	retriever := &fakeRetriever{
		query:   domain.Query{ID: "q1"},
		results: []domain.ResultItem{{ChunkID: "c1"}},
	}
	h := newTestHandlers(&fakeStore{}, retriever, &fakeIngest{})
	r := NewRouter(h, "")

	rec := doRequest(r, http.MethodGet, "/why/q1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "q1", retriever.lastWhyID)
}

func TestHandleWhyUnknownReturnsNotFound(t *testing.T) {
	retriever := &fakeRetriever{whyErr: domain.ErrNotFound}
	h := newTestHandlers(&fakeStore{}, retriever, &fakeIngest{})
	r := NewRouter(h, "")

	rec := doRequest(r, http.MethodGet, "/why/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListTags(t *testing.T) {
	store := &fakeStore{tags: []domain.Tag{{ID: "t1", Label: "work"}}}
	h := newTestHandlers(store, &fakeRetriever{}, &fakeIngest{})
	r := NewRouter(h, "")

	rec := doRequest(r, http.MethodGet, "/tags", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newTestHandlers(&fakeStore{}, &fakeRetriever{}, &fakeIngest{})
	r := NewRouter(h, "")

	rec := doRequest(r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got["ok"])
}

func TestHandleRerankScoresAndSortsCandidates(t *testing.T) {
	ce := &fakeCrossEncoder{scores: []float32{0.2, 0.9}}
	h := newTestHandlersWithCrossEncoder(&fakeStore{}, ce)
	r := NewRouter(h, "")

	body, _ := json.Marshal(rerankRequest{
		Query: "q",
		Candidates: []rerankCandidate{
			{ID: "a", Text: "alpha"},
			{ID: "b", Text: "beta"},
		},
	})
	rec := doRequest(r, http.MethodPost, "/rerank", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var got rerankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Results, 2)
	assert.Equal(t, "b", got.Results[0].ID)
	assert.Equal(t, "a", got.Results[1].ID)
}

func TestHandleRerankWithoutCrossEncoderFails(t *testing.T) {
	h := newTestHandlers(&fakeStore{}, &fakeRetriever{}, &fakeIngest{})
	r := NewRouter(h, "")

	body, _ := json.Marshal(rerankRequest{Query: "q", Candidates: []rerankCandidate{{ID: "a", Text: "alpha"}}})
	rec := doRequest(r, http.MethodPost, "/rerank", body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleUpsertTagsTagsEveryDocument(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandlers(store, &fakeRetriever{}, &fakeIngest{})
	r := NewRouter(h, "")

	body, _ := json.Marshal(upsertTagsRequest{DocumentIDs: []string{"d1", "d2"}, Tags: []string{"work"}})
	rec := doRequest(r, http.MethodPost, "/upsert_tags", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var got upsertTagsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Updated)
	assert.ElementsMatch(t, []string{"d1", "d2"}, store.taggedDocIDs)
}

func TestHandleUpsertTagsRejectsEmptyTags(t *testing.T) {
	h := newTestHandlers(&fakeStore{}, &fakeRetriever{}, &fakeIngest{})
	r := NewRouter(h, "")

	body, _ := json.Marshal(upsertTagsRequest{DocumentIDs: []string{"d1"}})
	rec := doRequest(r, http.MethodPost, "/upsert_tags", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDeleteMarksDocumentsDeleted(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandlers(store, &fakeRetriever{}, &fakeIngest{})
	r := NewRouter(h, "")

	body, _ := json.Marshal(deleteRequest{DocumentIDs: []string{"d1"}})
	rec := doRequest(r, http.MethodPost, "/delete", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"d1"}, store.markedDeletedIDs)
}

func TestHandleDeleteRejectsEmptyRequest(t *testing.T) {
	h := newTestHandlers(&fakeStore{}, &fakeRetriever{}, &fakeIngest{})
	r := NewRouter(h, "")

	body, _ := json.Marshal(deleteRequest{})
	rec := doRequest(r, http.MethodPost, "/delete", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterRejectsUnauthenticatedWhenSecretSet(t *testing.T) {
	h := newTestHandlers(&fakeStore{}, &fakeRetriever{}, &fakeIngest{})
	r := NewRouter(h, "secret")

	rec := doRequest(r, http.MethodGet, "/tags", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
