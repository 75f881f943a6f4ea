package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func intParam(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return max(n, 0)
}

// ListNotebooks handles GET /api/notebooks.
//
//	@Summary	List notebooks by name
//	@Tags		notebooks
//	@Produce	json
//	@Success	200	{array}	NotebookItem
//	@Security	BearerAuth
//	@Router		/notebooks [get]
func (h *Handler) ListNotebooks(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Notebooks(r.Context())
	if err != nil {
		h.writeError(w, "list notebooks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notebooks": items})
}

// ListNotes handles GET /api/notes.
//
//	@Summary	List notes, most recently updated first
//	@Tags		notes
//	@Produce	json
//	@Param		notebook	query		string	false	"Notebook local id"
//	@Param		tag			query		string	false	"Tag local id"
//	@Param		limit		query		int		false	"Page size"
//	@Param		offset		query		int		false	"Page offset"
//	@Param		deleted		query		bool	false	"Include notes in the trash"
//	@Success	200			{object}	NoteListResponse
//	@Failure	404			{object}	errResponse
//	@Security	BearerAuth
//	@Router		/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	deleted, _ := strconv.ParseBool(q.Get("deleted"))
	items, err := h.svc.Notes(r.Context(), NoteQuery{
		Notebook: q.Get("notebook"),
		Tag:      q.Get("tag"),
		Limit:    intParam(r, "limit"),
		Offset:   intParam(r, "offset"),
		Deleted:  deleted,
	})
	if err != nil {
		h.writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary	Get a note with its resource metadata
//	@Tags		notes
//	@Produce	json
//	@Param		id	path		string	true	"Note local id"
//	@Success	200	{object}	NoteDetail
//	@Failure	404	{object}	errResponse
//	@Security	BearerAuth
//	@Router		/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.Note(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// ListTags handles GET /api/tags.
//
//	@Summary	List tags with their note counts
//	@Tags		tags
//	@Produce	json
//	@Success	200	{array}	TagItem
//	@Security	BearerAuth
//	@Router		/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Tags(r.Context())
	if err != nil {
		h.writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": items})
}

// ListSavedSearches handles GET /api/searches.
//
//	@Summary	List saved searches
//	@Tags		searches
//	@Produce	json
//	@Success	200	{array}	SavedSearchItem
//	@Security	BearerAuth
//	@Router		/searches [get]
func (h *Handler) ListSavedSearches(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.SavedSearches(r.Context())
	if err != nil {
		h.writeError(w, "list saved searches", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"searches": items})
}

// ListLinkedNotebooks handles GET /api/linked-notebooks.
//
//	@Summary	List linked notebooks
//	@Tags		notebooks
//	@Produce	json
//	@Success	200	{array}	LinkedNotebookItem
//	@Security	BearerAuth
//	@Router		/linked-notebooks [get]
func (h *Handler) ListLinkedNotebooks(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.LinkedNotebooks(r.Context())
	if err != nil {
		h.writeError(w, "list linked notebooks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"linked_notebooks": items})
}

// Counts handles GET /api/counts.
//
//	@Summary	Entity counts
//	@Tags		stats
//	@Produce	json
//	@Success	200	{object}	Counts
//	@Security	BearerAuth
//	@Router		/counts [get]
func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Counts(r.Context())
	if err != nil {
		h.writeError(w, "counts", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Search handles GET /api/search.
//
//	@Summary	Search notes with the search grammar
//	@Tags		search
//	@Produce	json
//	@Param		q		query		string	true	"Search query"	example(tag:errand milk)
//	@Param		limit	query		int		false	"Max results"
//	@Success	200		{object}	NoteListResponse
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	items, err := h.svc.Search(r.Context(), q, intParam(r, "limit"))
	if err != nil {
		h.writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}
