// Package models defines the domain types for Laguz.
package models

import "time"

// NoteType distinguishes hierarchical notes from flat bibliography entries.
type NoteType string

const (
	// TypeNote is a hierarchical note addressed by a dotted ref ("1", "1.2.3").
	TypeNote NoteType = "note"
	// TypeBib is a bibliography entry addressed by a "B"-prefixed ref ("B1").
	TypeBib NoteType = "bib"
)

// Valid reports whether t is one of the known note types.
func (t NoteType) Valid() bool {
	return t == TypeNote || t == TypeBib
}

// Note is the single persistent entity: one entry in the note set.
//
// Ref, Type, ParentID and OrderIndex are immutable after creation. Ref encodes
// the note's position in the hierarchy at creation time and is never
// recomputed, so gaps appear in the numbering after deletions.
type Note struct {
	ID         int64     `json:"id"`
	Ref        string    `json:"ref"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Type       NoteType  `json:"type"`
	ParentID   *int64    `json:"parent_id"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
