// Package api is the HTTP surface: a chi router exposing ingest, query,
// why, sources and tags endpoints, with RFC 7807 problem-details error
// bodies and an optional JWT bearer guard (chi.Router, middleware.Cors,
// golang-jwt/jwt/v5 bearer auth).
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/context-cache/ctxc/internal/core/domain"
)

// Problem is an RFC 7807 problem-details body.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, title string, err error) {
	p := Problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
	}
	if err != nil {
		p.Detail = err.Error()
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(p)
}

// writeError maps a domain sentinel error to an HTTP status and emits a
// problem-details body.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidInput):
		var fe *domain.FieldError
		if errors.As(err, &fe) {
			err = errors.New(fe.Detail)
		}
		writeProblem(w, http.StatusBadRequest, "invalid request", err)
	case errors.Is(err, domain.ErrAlreadyExists):
		writeProblem(w, http.StatusConflict, "already exists", err)
	case errors.Is(err, domain.ErrRateLimited):
		writeProblem(w, http.StatusTooManyRequests, "rate limited", err)
	case errors.Is(err, domain.ErrEmbeddingUnavailable), errors.Is(err, domain.ErrSearchUnavailable), errors.Is(err, domain.ErrVectorIndexUnavailable):
		writeProblem(w, http.StatusServiceUnavailable, "backend unavailable", err)
	default:
		writeProblem(w, http.StatusInternalServerError, "internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
