package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/refalloc"
)

// querier is satisfied by both *sql.DB and *sql.Tx so that scans and scope
// queries can run inside or outside a transaction.
type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

const noteColumns = `id, ref, title, content, type, parent_id, order_index, created_at, updated_at`

func scanNote(row *sql.Row) (*models.Note, error) {
	var n models.Note
	err := row.Scan(&n.ID, &n.Ref, &n.Title, &n.Content, &n.Type, &n.ParentID,
		&n.OrderIndex, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: scan note: %w", err)
	}
	return &n, nil
}

func getByID(q querier, id int64) (*models.Note, error) {
	return scanNote(q.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id))
}

// scopeKey is the ref_counters primary key for a sibling scope.
func scopeKey(scope refalloc.Scope) string {
	switch {
	case scope.Type == models.TypeBib:
		return "bib"
	case scope.ParentID == nil:
		return "root"
	default:
		return "child:" + strconv.FormatInt(*scope.ParentID, 10)
	}
}

// maxOrderIndex returns the highest order_index ever allocated in the scope:
// the max over the live rows or the scope counter, whichever is higher. The
// counter keeps deleted indexes out of reach, so numbering never goes back.
func maxOrderIndex(q querier, scope refalloc.Scope) (int, error) {
	var row *sql.Row
	switch {
	case scope.Type == models.TypeBib:
		row = q.QueryRow(`SELECT COALESCE(MAX(order_index), 0) FROM notes WHERE type = 'bib'`)
	case scope.ParentID == nil:
		row = q.QueryRow(`SELECT COALESCE(MAX(order_index), 0) FROM notes WHERE type = 'note' AND parent_id IS NULL`)
	default:
		row = q.QueryRow(`SELECT COALESCE(MAX(order_index), 0) FROM notes WHERE parent_id = ?`, *scope.ParentID)
	}
	var max int
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("store: max order index: %w", err)
	}

	var last int
	err := q.QueryRow(`SELECT last FROM ref_counters WHERE scope = ?`, scopeKey(scope)).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("store: scope counter: %w", err)
	}
	if last > max {
		max = last
	}
	return max, nil
}

// bumpScopeCounter records that index was allocated in the scope.
func bumpScopeCounter(q querier, scope refalloc.Scope, index int) error {
	_, err := q.Exec(`
		INSERT INTO ref_counters (scope, last) VALUES (?, ?)
		ON CONFLICT(scope) DO UPDATE SET last = MAX(last, excluded.last)
	`, scopeKey(scope), index)
	if err != nil {
		return fmt.Errorf("store: bump scope counter: %w", err)
	}
	return nil
}

func countChildren(q querier, parentID int64) (int, error) {
	var n int
	err := q.QueryRow(`SELECT COUNT(*) FROM notes WHERE parent_id = ?`, parentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count children: %w", err)
	}
	return n, nil
}

// txStore adapts a transaction to refalloc.Store so that allocation reads see
// the same snapshot the insert will run against.
type txStore struct {
	tx *sql.Tx
}

func (t txStore) GetByID(id int64) (*models.Note, error) {
	return getByID(t.tx, id)
}

func (t txStore) MaxOrderIndex(scope refalloc.Scope) (int, error) {
	return maxOrderIndex(t.tx, scope)
}

// ListAll returns every note ordered by type then ref (display convenience).
func (db *DB) ListAll() ([]models.Note, error) {
	rows, err := db.conn.Query(`SELECT ` + noteColumns + ` FROM notes ORDER BY type, ref`)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.Ref, &n.Title, &n.Content, &n.Type, &n.ParentID,
			&n.OrderIndex, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan note row: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// GetByID returns one note or apperr.ErrNotFound.
func (db *DB) GetByID(id int64) (*models.Note, error) {
	return getByID(db.conn, id)
}

// MaxOrderIndex returns the highest order_index in the given sibling scope,
// or 0 when the scope is empty.
func (db *DB) MaxOrderIndex(scope refalloc.Scope) (int, error) {
	return maxOrderIndex(db.conn, scope)
}

// CountChildren returns how many notes have the given parent.
func (db *DB) CountChildren(parentID int64) (int, error) {
	return countChildren(db.conn, parentID)
}

// CreateNote allocates a ref for the new note and inserts it within a single
// transaction, so two concurrent creations in the same sibling scope cannot
// observe the same max order_index and both commit. If the uniqueness guard
// fires anyway the caller gets apperr.ErrAllocationConflict and may retry.
func (db *DB) CreateNote(title string, typ models.NoteType, parentID *int64) (*models.Note, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	alloc, err := refalloc.Allocate(txStore{tx}, typ, parentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := tx.Exec(`
		INSERT INTO notes (ref, title, content, type, parent_id, order_index, created_at, updated_at)
		VALUES (?, ?, '', ?, ?, ?, ?, ?)
	`, alloc.Ref, title, string(typ), alloc.ParentID, alloc.OrderIndex, now, now)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, apperr.ErrAllocationConflict
		}
		return nil, fmt.Errorf("store: insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: last insert id: %w", err)
	}

	scope := refalloc.Scope{Type: typ, ParentID: alloc.ParentID}
	if err := bumpScopeCounter(tx, scope, alloc.OrderIndex); err != nil {
		return nil, err
	}

	note, err := getByID(tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit create: %w", err)
	}
	return note, nil
}

// Update mutates title and/or content and refreshes updated_at. Nil fields
// are left untouched. Returns apperr.ErrNotFound for an unknown id.
func (db *DB) Update(id int64, title, content *string) (*models.Note, error) {
	if title == nil && content == nil {
		return nil, apperr.ErrValidation
	}

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *title)
	}
	if content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *content)
	}
	args = append(args, id)

	res, err := db.conn.Exec(`UPDATE notes SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: update note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("store: rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperr.ErrNotFound
	}
	return getByID(db.conn, id)
}

// DeleteIfChildless removes a note only when nothing references it as parent.
// The child check and the delete run in one transaction, so a child created
// concurrently cannot slip in between. Never cascades.
func (db *DB) DeleteIfChildless(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	children, err := countChildren(tx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return apperr.ErrHasChildren
	}

	res, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}

	// The note had no children, so its child scope counter is dead weight.
	if _, err := tx.Exec(`DELETE FROM ref_counters WHERE scope = ?`,
		scopeKey(refalloc.ChildScope(id))); err != nil {
		return fmt.Errorf("store: drop scope counter: %w", err)
	}
	return tx.Commit()
}
