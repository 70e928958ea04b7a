// Package treeindex organises a flat note set into the hierarchy used for
// display, parent selection, and ref lookup.
package treeindex

import (
	"sort"

	"github.com/starford/laguz/internal/models"
)

// Snapshot is a point-in-time view of the full note set with parent→children
// adjacency built once up front. All queries are pure reads over this view;
// a fresh snapshot is taken per request rather than kept as shared state.
type Snapshot struct {
	notes    []models.Note
	byID     map[int64]*models.Note
	byRef    map[string]*models.Note
	children map[int64][]*models.Note // note-type only, sorted by order_index
	roots    []*models.Note           // note-type with nil parent, sorted
	bib      []*models.Note           // bib entries, sorted by order_index
}

// NewSnapshot indexes the given notes. The slice is copied; later mutations
// of the argument do not affect the snapshot.
func NewSnapshot(notes []models.Note) *Snapshot {
	s := &Snapshot{
		notes:    make([]models.Note, len(notes)),
		byID:     make(map[int64]*models.Note, len(notes)),
		byRef:    make(map[string]*models.Note, len(notes)),
		children: make(map[int64][]*models.Note),
	}
	copy(s.notes, notes)

	for i := range s.notes {
		n := &s.notes[i]
		s.byID[n.ID] = n
		s.byRef[n.Ref] = n

		switch {
		case n.Type == models.TypeBib:
			s.bib = append(s.bib, n)
		case n.ParentID == nil:
			s.roots = append(s.roots, n)
		default:
			s.children[*n.ParentID] = append(s.children[*n.ParentID], n)
		}
	}

	byOrder := func(ns []*models.Note) {
		sort.Slice(ns, func(i, j int) bool { return ns[i].OrderIndex < ns[j].OrderIndex })
	}
	byOrder(s.roots)
	byOrder(s.bib)
	for _, ns := range s.children {
		byOrder(ns)
	}
	return s
}

// ByID looks up a note by its surrogate id.
func (s *Snapshot) ByID(id int64) (*models.Note, bool) {
	n, ok := s.byID[id]
	return n, ok
}

// ByRef looks up a note by its ref, exact and case-sensitive.
func (s *Snapshot) ByRef(ref string) (*models.Note, bool) {
	n, ok := s.byRef[ref]
	return n, ok
}

// Notes returns the underlying flat note set.
func (s *Snapshot) Notes() []models.Note {
	return s.notes
}

// Node is one position in the forest: a note plus its ordered children.
type Node struct {
	Note     models.Note `json:"note"`
	Children []*Node     `json:"children"`
}

// Build produces the forest of note-type notes: roots ordered by order_index,
// each node carrying its children recursively in the same order. Bib entries
// never appear in the forest.
func (s *Snapshot) Build() []*Node {
	return s.buildNodes(s.roots)
}

func (s *Snapshot) buildNodes(ns []*models.Note) []*Node {
	out := make([]*Node, 0, len(ns))
	for _, n := range ns {
		out = append(out, &Node{
			Note:     *n,
			Children: s.buildNodes(s.children[n.ID]),
		})
	}
	return out
}

// SelectionEntry is one row of the indentation-aware parent-selection list.
type SelectionEntry struct {
	ID    int64  `json:"id"`
	Depth int    `json:"depth"`
	Ref   string `json:"ref"`
	Title string `json:"title"`
}

// FlattenForSelection walks the forest pre-order, emitting one entry per node
// with its nesting depth. Depth is display-only and never persisted.
func FlattenForSelection(forest []*Node) []SelectionEntry {
	out := make([]SelectionEntry, 0, len(forest))
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, node := range nodes {
			out = append(out, SelectionEntry{
				ID:    node.Note.ID,
				Depth: depth,
				Ref:   node.Note.Ref,
				Title: node.Note.Title,
			})
			walk(node.Children, depth+1)
		}
	}
	walk(forest, 0)
	return out
}

// Bibliography returns all bib entries ordered by order_index.
func (s *Snapshot) Bibliography() []models.Note {
	out := make([]models.Note, 0, len(s.bib))
	for _, n := range s.bib {
		out = append(out, *n)
	}
	return out
}
