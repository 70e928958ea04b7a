// Package apperr defines the sentinel errors shared across Laguz layers.
package apperr

import "errors"

var (
	// ErrNotFound means the target note id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation means the request was rejected before any store mutation.
	ErrValidation = errors.New("validation failed")
	// ErrParentNotFound means parent_id references a nonexistent note.
	ErrParentNotFound = errors.New("parent not found")
	// ErrInvalidParentType means parent_id references a bib entry.
	ErrInvalidParentType = errors.New("parent must be a note")
	// ErrHasChildren means the delete was blocked by the childless invariant.
	ErrHasChildren = errors.New("note has children")
	// ErrAllocationConflict means two creations raced for the same sibling
	// scope; the whole creation request can be retried.
	ErrAllocationConflict = errors.New("ref allocation conflict")
)
