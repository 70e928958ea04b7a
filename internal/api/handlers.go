// Package api implements the Laguz REST API using chi.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// noteID extracts the numeric note id from the URL.
func noteID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("note not found"))
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrParentNotFound):
		writeJSON(w, http.StatusBadRequest, errorBody("parent not found"))
	case errors.Is(err, apperr.ErrInvalidParentType):
		writeJSON(w, http.StatusBadRequest, errorBody("parent must be a note"))
	case errors.Is(err, apperr.ErrHasChildren):
		writeJSON(w, http.StatusConflict, errorBody("cannot delete note with children"))
	case errors.Is(err, apperr.ErrAllocationConflict):
		writeJSON(w, http.StatusConflict, errorBody("allocation conflict, retry the request"))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	note, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	note, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id, err := noteID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	note, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Backlinks handles GET /api/notes/{id}/backlinks.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	bl, err := h.svc.Backlinks(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Backlinks: bl})
}

// Tree handles GET /api/tree.
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	forest, err := h.svc.Tree(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{Tree: forest})
}

// TreeSelection handles GET /api/tree/selection.
func (h *Handler) TreeSelection(w http.ResponseWriter, r *http.Request) {
	opts, err := h.svc.ParentOptions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SelectionResponse{Options: opts})
}

// Bibliography handles GET /api/bibliography.
func (h *Handler) Bibliography(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Bibliography(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BibliographyResponse{Entries: entries})
}

// Render handles POST /api/render.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	blocks, html, err := h.svc.Render(r.Context(), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RenderResponse{Blocks: blocks, HTML: html})
}
