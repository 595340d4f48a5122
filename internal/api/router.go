package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/context-cache/ctxc/internal/core/ports/driven"
	"github.com/context-cache/ctxc/internal/core/ports/driving"
)

type Handlers struct {
	Store        driven.Store
	Retriever    driving.Retriever
	Ingest       driving.IngestService
	CrossEncoder driven.CrossEncoder
}

// NewRouter builds the HTTP surface. jwtSecret empty disables the bearer
// guard (local single-user default).
func NewRouter(h *Handlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(jwtSecret))

		r.Route("/sources", func(r chi.Router) {
			r.Get("/", h.handleListSources)
			r.Post("/", h.handleCreateSource)
			r.Delete("/{id}", h.handleDeleteSource)
		})

		r.Post("/ingest", h.handleIngest)
		r.Get("/ingest/{jobID}", h.handleIngestStatus)

		r.Post("/query", h.handleQuery)
		r.Post("/rerank", h.handleRerank)
		r.Get("/why/{queryID}", h.handleWhy)

		r.Post("/upsert_tags", h.handleUpsertTags)
		r.Post("/delete", h.handleDelete)
		r.Get("/tags", h.handleListTags)
	})

	return r
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
