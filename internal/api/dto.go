package api

import (
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/noteservice"
	"github.com/starford/laguz/internal/render"
	"github.com/starford/laguz/internal/treeindex"
)

// CreateNoteRequest is the request body for creating a note (aliased from
// the domain layer; parent_id is meaningful only for type "note").
type CreateNoteRequest = noteservice.CreateRequest

// UpdateNoteRequest is the request body for updating a note. At least one
// field must be present.
type UpdateNoteRequest = noteservice.UpdateRequest

// NoteListResponse wraps the flat note listing.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// TreeResponse wraps the forest of note-type notes.
type TreeResponse struct {
	Tree []*treeindex.Node `json:"tree"`
}

// SelectionResponse wraps the flattened parent-selection list.
type SelectionResponse struct {
	Options []treeindex.SelectionEntry `json:"options"`
}

// BibliographyResponse wraps the flat bibliography listing.
type BibliographyResponse struct {
	Entries []models.Note `json:"entries"`
}

// RenderRequest is the request body for a content preview.
type RenderRequest struct {
	Content string `json:"content"`
}

// RenderResponse carries the structured render output and its HTML form.
type RenderResponse struct {
	Blocks []render.Block `json:"blocks"`
	HTML   string         `json:"html"`
}

// BacklinksResponse wraps the notes referencing a target via [[ref]].
type BacklinksResponse struct {
	Backlinks []models.Note `json:"backlinks"`
}
