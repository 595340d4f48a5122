package api

import (
	"encoding/json"
	"hash/fnv"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/context-cache/ctxc/internal/core/domain"
)

type createSourceRequest struct {
	Kind        string   `json:"kind"`
	URI         string   `json:"uri"`
	Label       string   `json:"label"`
	IncludeGlob []string `json:"include_glob"`
	ExcludeGlob []string `json:"exclude_glob"`
}

func (h *Handlers) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.Store.ListSources(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

func (h *Handlers) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var req createSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}

	kind := domain.SourceKind(req.Kind)
	if !kind.Valid() {
		writeError(w, domain.NewFieldError("kind", "unsupported source kind"))
		return
	}

	now := time.Now().UTC()
	src := domain.Source{
		ID:          uuid.New().String(),
		Kind:        kind,
		URI:         req.URI,
		Label:       req.Label,
		IncludeGlob: req.IncludeGlob,
		ExcludeGlob: req.ExcludeGlob,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Store.UpsertSource(r.Context(), src); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

func (h *Handlers) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteSource(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ingestRequest struct {
	SourceID string   `json:"source_id"`
	Paths    []string `json:"paths"`
	Priority string   `json:"priority"`
}

func (h *Handlers) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}

	priority := domain.ParsePriority(req.Priority)
	var job domain.IngestJob
	var err error
	if len(req.Paths) > 0 {
		job, err = h.Ingest.IngestPaths(r.Context(), req.SourceID, req.Paths, priority)
	} else {
		job, err = h.Ingest.IngestSource(r.Context(), req.SourceID, priority)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (h *Handlers) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := h.Ingest.JobStatus(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// queryFilters mirrors domain.SearchFilters on the wire; modified_after/
// modified_before are accepted as RFC3339 strings since JSON has no native
// time type.
type queryFilters struct {
	SourceIDs      []string `json:"source_ids"`
	MIME           []string `json:"mime"`
	Tags           []string `json:"tags"`
	ModifiedAfter  string   `json:"modified_after"`
	ModifiedBefore string   `json:"modified_before"`
}

type queryRequest struct {
	Query      string        `json:"query"`
	K          int           `json:"k"`
	Hybrid     *bool         `json:"hybrid"`
	Filters    *queryFilters `json:"filters"`
	Rerank     *bool         `json:"rerank"`
	MMRLambda  float64       `json:"mmr_lambda"`
	ReturnText *bool         `json:"return_text"`
}

type queryResponse struct {
	QueryID string              `json:"query_id"`
	Results []domain.ResultItem `json:"results"`
}

func (h *Handlers) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	if req.Query == "" {
		writeError(w, domain.NewFieldError("query", "query must be non-empty"))
		return
	}

	opts := domain.DefaultRetrieveOptions()
	if req.K > 0 {
		opts.KFinal = req.K
		if opts.KFinal > 50 {
			opts.KFinal = 50
		}
	}
	if req.Hybrid != nil {
		opts.UseHybrid = *req.Hybrid
	}
	if req.Rerank != nil {
		opts.UseRerank = *req.Rerank
	}
	if req.MMRLambda > 0 && req.MMRLambda <= 1 {
		opts.MMRLambda = req.MMRLambda
	}
	if req.ReturnText != nil {
		opts.ReturnText = *req.ReturnText
	}
	if req.Filters != nil {
		opts.Filters = domain.SearchFilters{
			SourceIDs: req.Filters.SourceIDs,
			MIME:      req.Filters.MIME,
			Tags:      req.Filters.Tags,
		}
		if t, err := time.Parse(time.RFC3339, req.Filters.ModifiedAfter); err == nil {
			opts.Filters.ModifiedAfter = &t
		}
		if t, err := time.Parse(time.RFC3339, req.Filters.ModifiedBefore); err == nil {
			opts.Filters.ModifiedBefore = &t
		}
	}

	q, items, err := h.Retriever.Query(r.Context(), req.Query, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if !opts.ReturnText {
		for i := range items {
			items[i].Text = ""
		}
	}
	writeJSON(w, http.StatusOK, queryResponse{QueryID: q.ID, Results: items})
}

func (h *Handlers) handleWhy(w http.ResponseWriter, r *http.Request) {
	queryID := chi.URLParam(r, "queryID")
	q, items, err := h.Retriever.Why(r.Context(), queryID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{QueryID: q.ID, Results: items})
}

type rerankCandidate struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type rerankRequest struct {
	Query      string            `json:"query"`
	Candidates []rerankCandidate `json:"candidates"`
	Model      string            `json:"model"`
	TopK       int               `json:"top_k"`
}

type rerankResultItem struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

type rerankResponse struct {
	Results []rerankResultItem `json:"results"`
}

// handleRerank scores a caller-supplied candidate list against a query with
// the cross-encoder directly, independent of any prior /query fusion. This
// is the standalone scoring path for a client doing its own candidate
// generation; the MCP server does not use it.
func (h *Handlers) handleRerank(w http.ResponseWriter, r *http.Request) {
	var req rerankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	if req.Query == "" {
		writeError(w, domain.NewFieldError("query", "query must be non-empty"))
		return
	}
	if len(req.Candidates) == 0 {
		writeError(w, domain.NewFieldError("candidates", "candidates must be non-empty"))
		return
	}
	if h.CrossEncoder == nil {
		writeError(w, domain.ErrNotImplemented)
		return
	}

	passages := make([]string, len(req.Candidates))
	for i, c := range req.Candidates {
		passages[i] = c.Text
	}
	scores, err := h.CrossEncoder.Rerank(r.Context(), req.Query, passages)
	if err != nil {
		writeError(w, err)
		return
	}

	results := make([]rerankResultItem, len(req.Candidates))
	for i, c := range req.Candidates {
		var score float32
		if i < len(scores) {
			score = scores[i]
		}
		results[i] = rerankResultItem{ID: c.ID, Score: score}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}
	if topK < len(results) {
		results = results[:topK]
	}
	writeJSON(w, http.StatusOK, rerankResponse{Results: results})
}

type upsertTagsRequest struct {
	DocumentIDs []string `json:"document_ids"`
	Tags        []string `json:"tags"`
}

type upsertTagsResponse struct {
	Updated int `json:"updated"`
}

// tagID derives a stable id from a tag label so repeated upsert_tags calls
// for the same label reuse one tags row instead of growing duplicates.
func tagID(label string) string {
	h := fnv.New64a()
	h.Write([]byte(label))
	return strconv.FormatUint(h.Sum64(), 16)
}

func (h *Handlers) handleUpsertTags(w http.ResponseWriter, r *http.Request) {
	var req upsertTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	if len(req.DocumentIDs) == 0 {
		writeError(w, domain.NewFieldError("document_ids", "document_ids must be non-empty"))
		return
	}
	if len(req.Tags) == 0 {
		writeError(w, domain.NewFieldError("tags", "tags must be non-empty"))
		return
	}

	for _, label := range req.Tags {
		t := domain.Tag{ID: tagID(label), Label: label}
		if err := h.Store.UpsertTag(r.Context(), t); err != nil {
			writeError(w, err)
			return
		}
		for _, docID := range req.DocumentIDs {
			if err := h.Store.TagDocument(r.Context(), docID, t.ID); err != nil {
				writeError(w, err)
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, upsertTagsResponse{Updated: len(req.DocumentIDs)})
}

type deleteRequest struct {
	DocumentIDs []string `json:"document_ids"`
	SourceIDs   []string `json:"source_ids"`
	Hard        bool     `json:"hard"`
}

type deleteResponse struct {
	Status string `json:"status"`
}

// handleDelete always performs a soft delete (marks documents deleted but
// keeps their rows and journal history); the store has no hard-delete path,
// so Hard is accepted but currently has no additional effect.
func (h *Handlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	if len(req.DocumentIDs) == 0 && len(req.SourceIDs) == 0 {
		writeError(w, domain.NewFieldError("document_ids", "delete requires document_ids or source_ids"))
		return
	}

	for _, id := range req.DocumentIDs {
		if err := h.Store.MarkDeleted(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
	}
	for _, sourceID := range req.SourceIDs {
		docs, err := h.Store.ListDocuments(r.Context(), sourceID)
		if err != nil {
			writeError(w, err)
			return
		}
		for _, d := range docs {
			if err := h.Store.MarkDeleted(r.Context(), d.ID); err != nil {
				writeError(w, err)
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, deleteResponse{Status: "ok"})
}

func (h *Handlers) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.Store.ListTags(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}
