package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted. Every route is
// read-only. sseHandler, if non-nil, is mounted at GET /events inside the
// auth group.
func NewRouter(svc *Service, logger *slog.Logger, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/notebooks", h.ListNotebooks)
	r.Get("/linked-notebooks", h.ListLinkedNotebooks)
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/{id}", h.GetNote)
	r.Get("/tags", h.ListTags)
	r.Get("/searches", h.ListSavedSearches)
	r.Get("/counts", h.Counts)
	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
