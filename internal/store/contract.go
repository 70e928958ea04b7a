package store

import (
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/refalloc"
)

// NoteStore defines the durable note operations the rest of the application
// depends on. Consumers should depend on this interface rather than the
// concrete *DB type to facilitate testing with mocks.
type NoteStore interface {
	ListAll() ([]models.Note, error)
	GetByID(id int64) (*models.Note, error)
	CreateNote(title string, typ models.NoteType, parentID *int64) (*models.Note, error)
	Update(id int64, title, content *string) (*models.Note, error)
	DeleteIfChildless(id int64) error
	CountChildren(parentID int64) (int, error)
	MaxOrderIndex(scope refalloc.Scope) (int, error)
	Close() error
}

// Verify *DB satisfies NoteStore at compile time.
var _ NoteStore = (*DB)(nil)
