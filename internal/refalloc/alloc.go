// Package refalloc computes the ref and order_index for a new note.
//
// A ref is allocated once and never reused: the allocator always takes the
// current maximum order_index of the sibling scope plus one, so numbering is
// monotonic within each scope and gaps remain after deletions.
package refalloc

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

// Scope identifies an order_index allocation domain: all bib entries
// globally, all root notes, or the direct children of one parent.
type Scope struct {
	Type     models.NoteType
	ParentID *int64
}

// BibScope is the global bibliography scope.
func BibScope() Scope {
	return Scope{Type: models.TypeBib}
}

// RootScope is the scope of root-level notes (parent_id IS NULL).
func RootScope() Scope {
	return Scope{Type: models.TypeNote}
}

// ChildScope is the scope of direct children of the given parent.
func ChildScope(parentID int64) Scope {
	return Scope{Type: models.TypeNote, ParentID: &parentID}
}

// Store is the subset of note store reads allocation needs. When allocation
// must be atomic with the subsequent insert, the caller passes a
// transaction-backed implementation.
type Store interface {
	GetByID(id int64) (*models.Note, error)
	MaxOrderIndex(scope Scope) (int, error)
}

// Allocation is the outcome of a successful ref allocation.
type Allocation struct {
	Ref        string
	OrderIndex int
	// ParentID is the normalised parent: always nil for bib entries.
	ParentID *int64
}

// Allocate computes a fresh ref and order_index for a new note of the given
// type. For bib entries parentID is ignored and forced nil. For notes a
// non-nil parentID must reference an existing note-type note; otherwise
// apperr.ErrParentNotFound or apperr.ErrInvalidParentType is returned.
func Allocate(st Store, typ models.NoteType, parentID *int64) (Allocation, error) {
	if typ == models.TypeBib {
		max, err := st.MaxOrderIndex(BibScope())
		if err != nil {
			return Allocation{}, fmt.Errorf("refalloc: max bib order: %w", err)
		}
		n := max + 1
		return Allocation{Ref: "B" + strconv.Itoa(n), OrderIndex: n}, nil
	}

	if parentID == nil {
		max, err := st.MaxOrderIndex(RootScope())
		if err != nil {
			return Allocation{}, fmt.Errorf("refalloc: max root order: %w", err)
		}
		n := max + 1
		return Allocation{Ref: strconv.Itoa(n), OrderIndex: n}, nil
	}

	parent, err := st.GetByID(*parentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Allocation{}, apperr.ErrParentNotFound
		}
		return Allocation{}, fmt.Errorf("refalloc: lookup parent %d: %w", *parentID, err)
	}
	if parent.Type != models.TypeNote {
		return Allocation{}, apperr.ErrInvalidParentType
	}

	max, err := st.MaxOrderIndex(ChildScope(parent.ID))
	if err != nil {
		return Allocation{}, fmt.Errorf("refalloc: max child order: %w", err)
	}
	n := max + 1
	return Allocation{
		Ref:        parent.Ref + "." + strconv.Itoa(n),
		OrderIndex: n,
		ParentID:   parentID,
	}, nil
}
