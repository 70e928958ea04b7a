// Package noteservice coordinates validation, ref allocation, persistence,
// and rendering for note operations.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/render"
	"github.com/starford/laguz/internal/store"
	"github.com/starford/laguz/internal/treeindex"
)

// createRetries bounds retries after an allocation conflict. SQLite
// serialises writers, so in practice the first attempt wins.
const createRetries = 3

// Publisher receives note change notifications. May be nil.
type Publisher interface {
	PublishNoteEvent(kind string, id int64, ref string)
}

// Service is the request-level orchestration layer over the note store.
type Service struct {
	db     store.NoteStore
	events Publisher
}

// NewService creates a new note service. events may be nil.
func NewService(db store.NoteStore, events Publisher) *Service {
	return &Service{db: db, events: events}
}

// CreateRequest carries the fields of a note creation request.
type CreateRequest struct {
	Title    string `json:"title"`
	Type     string `json:"type"`
	ParentID *int64 `json:"parent_id"`
}

func (r *CreateRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	if r.Type == "" {
		r.Type = string(models.TypeNote)
	}
}

// Validate checks the normalised creation request.
func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Type, validation.In(string(models.TypeNote), string(models.TypeBib))),
	)
}

// UpdateRequest carries the mutable fields of an update request. Nil fields
// are left untouched; at least one must be present.
type UpdateRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// Validate checks the update request.
func (r UpdateRequest) Validate() error {
	if r.Title == nil && r.Content == nil {
		return errors.New("at least one of title or content is required")
	}
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return errors.New("title must not be blank")
	}
	return nil
}

// List returns the full flat note set ordered by type then ref.
func (s *Service) List(_ context.Context) ([]models.Note, error) {
	return s.db.ListAll()
}

// Get returns one note by id.
func (s *Service) Get(_ context.Context, id int64) (*models.Note, error) {
	return s.db.GetByID(id)
}

// Create validates the request, allocates a ref, and inserts the note.
// Allocation conflicts are retried as a whole, per request.
func (s *Service) Create(_ context.Context, req CreateRequest) (*models.Note, error) {
	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	typ := models.NoteType(req.Type)
	parentID := req.ParentID
	if typ == models.TypeBib {
		parentID = nil
	}

	var note *models.Note
	var err error
	for attempt := 0; attempt < createRetries; attempt++ {
		note, err = s.db.CreateNote(req.Title, typ, parentID)
		if !errors.Is(err, apperr.ErrAllocationConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	s.publish("created", note)
	return note, nil
}

// Update mutates title and/or content; ref, type, parent, and order are
// immutable after creation and cannot be changed here.
func (s *Service) Update(_ context.Context, id int64, req UpdateRequest) (*models.Note, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		req.Title = &trimmed
	}
	note, err := s.db.Update(id, req.Title, req.Content)
	if err != nil {
		return nil, err
	}
	s.publish("updated", note)
	return note, nil
}

// Delete removes a note, gated by the childless invariant.
func (s *Service) Delete(_ context.Context, id int64) error {
	note, err := s.db.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteIfChildless(id); err != nil {
		return err
	}
	s.publish("deleted", note)
	return nil
}

// Snapshot fetches the current flat note set and indexes it.
func (s *Service) Snapshot(_ context.Context) (*treeindex.Snapshot, error) {
	notes, err := s.db.ListAll()
	if err != nil {
		return nil, err
	}
	return treeindex.NewSnapshot(notes), nil
}

// Tree returns the forest of note-type notes.
func (s *Service) Tree(ctx context.Context) ([]*treeindex.Node, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Build(), nil
}

// ParentOptions returns the flattened, indentation-aware parent-selection list.
func (s *Service) ParentOptions(ctx context.Context) ([]treeindex.SelectionEntry, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return treeindex.FlattenForSelection(snap.Build()), nil
}

// Bibliography returns all bib entries ordered by order_index.
func (s *Service) Bibliography(ctx context.Context) ([]models.Note, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Bibliography(), nil
}

// Render resolves the given raw content against the current note set and
// returns structured blocks plus the HTML fragment.
func (s *Service) Render(ctx context.Context, content string) ([]render.Block, string, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, "", err
	}
	blocks := render.Render(content, snap)
	return blocks, render.WriteHTML(blocks), nil
}

// Backlinks returns every note whose content references the target note's
// ref through a resolved [[ref]] token.
func (s *Service) Backlinks(ctx context.Context, id int64) ([]models.Note, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	target, ok := snap.ByID(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}

	out := []models.Note{}
	for _, n := range snap.Notes() {
		if n.ID == target.ID {
			continue
		}
		for _, l := range render.ResolveLinks(n.Content, snap) {
			if !l.Unresolved && l.TargetID == target.ID {
				out = append(out, n)
				break
			}
		}
	}
	return out, nil
}

func (s *Service) publish(kind string, note *models.Note) {
	if s.events != nil {
		s.events.PublishNoteEvent(kind, note.ID, note.Ref)
	}
}
