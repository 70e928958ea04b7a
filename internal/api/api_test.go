package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/noteservice"
	"github.com/starford/laguz/internal/testutil"
)

// testEnv sets up a temp SQLite DB, service, and router for testing.
func testEnv(t *testing.T) http.Handler {
	t.Helper()
	svc := noteservice.NewService(testutil.TestDB(t), nil)
	return NewRouter(svc, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createNote(t *testing.T, router http.Handler, body map[string]any) models.Note {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/notes", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var n models.Note
	if err := json.Unmarshal(w.Body.Bytes(), &n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestCreateAndGetNote(t *testing.T) {
	router := testEnv(t)

	created := createNote(t, router, map[string]any{"title": "Intro"})
	if created.Ref != "1" || created.Type != models.TypeNote {
		t.Errorf("created = %+v", created)
	}

	w := doJSON(t, router, http.MethodGet, "/notes/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "Intro" || got.Ref != "1" || got.ParentID != nil {
		t.Errorf("note = %+v", got)
	}
}

func TestCreate_RefsFollowHierarchy(t *testing.T) {
	router := testEnv(t)

	root := createNote(t, router, map[string]any{"title": "root"})
	child := createNote(t, router, map[string]any{"title": "child", "parent_id": root.ID})
	if child.Ref != "1.1" {
		t.Errorf("child ref = %q, want 1.1", child.Ref)
	}

	bib := createNote(t, router, map[string]any{"title": "paper", "type": "bib"})
	if bib.Ref != "B1" {
		t.Errorf("bib ref = %q, want B1", bib.Ref)
	}
}

func TestCreate_Validation(t *testing.T) {
	router := testEnv(t)

	w := doJSON(t, router, http.MethodPost, "/notes", map[string]any{"title": "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank title status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/notes", map[string]any{"title": "x", "parent_id": 99})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing parent status = %d, want 400", w.Code)
	}
}

func TestUpdateNote(t *testing.T) {
	router := testEnv(t)
	n := createNote(t, router, map[string]any{"title": "a"})

	w := doJSON(t, router, http.MethodPut, "/notes/1", map[string]any{"content": "body [[2]]"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	var updated models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Content != "body [[2]]" || updated.Ref != n.Ref {
		t.Errorf("updated = %+v", updated)
	}

	w = doJSON(t, router, http.MethodPut, "/notes/1", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty update status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodPut, "/notes/42", map[string]any{"title": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note status = %d, want 404", w.Code)
	}
}

func TestDeleteNote_ChildGuard(t *testing.T) {
	router := testEnv(t)
	root := createNote(t, router, map[string]any{"title": "root"})
	createNote(t, router, map[string]any{"title": "child", "parent_id": root.ID})

	w := doJSON(t, router, http.MethodDelete, "/notes/1", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("delete with child status = %d, want 409", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/notes/2", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete leaf status = %d, want 204", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/notes/2", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d, want 404", w.Code)
	}
}

func TestListNotes(t *testing.T) {
	router := testEnv(t)
	createNote(t, router, map[string]any{"title": "n"})
	createNote(t, router, map[string]any{"title": "b", "type": "bib"})

	w := doJSON(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Notes) != 2 {
		t.Errorf("list = %+v", resp)
	}
}

func TestTreeAndSelectionEndpoints(t *testing.T) {
	router := testEnv(t)
	root := createNote(t, router, map[string]any{"title": "root"})
	createNote(t, router, map[string]any{"title": "child", "parent_id": root.ID})

	w := doJSON(t, router, http.MethodGet, "/tree", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tree status = %d", w.Code)
	}
	var tree TreeResponse
	_ = json.Unmarshal(w.Body.Bytes(), &tree)
	if len(tree.Tree) != 1 || len(tree.Tree[0].Children) != 1 {
		t.Errorf("tree = %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/tree/selection", nil)
	var sel SelectionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sel)
	if len(sel.Options) != 2 || sel.Options[1].Depth != 1 {
		t.Errorf("selection = %s", w.Body.String())
	}
}

func TestBibliographyEndpoint(t *testing.T) {
	router := testEnv(t)
	createNote(t, router, map[string]any{"title": "paper", "type": "bib"})
	createNote(t, router, map[string]any{"title": "note"})

	w := doJSON(t, router, http.MethodGet, "/bibliography", nil)
	var resp BibliographyResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Entries) != 1 || resp.Entries[0].Ref != "B1" {
		t.Errorf("bibliography = %s", w.Body.String())
	}
}

func TestRenderEndpoint(t *testing.T) {
	router := testEnv(t)
	createNote(t, router, map[string]any{"title": "Methods"})

	w := doJSON(t, router, http.MethodPost, "/render", map[string]any{
		"content": "==warn== see [[1]] and [[9.9]]\n> quoted line",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("render status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp RenderResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	html := resp.HTML
	for _, want := range []string{
		"<mark>warn</mark>",
		"[[1 Methods]]",
		"[[9.9 (not found)]]",
		"<blockquote>quoted line</blockquote>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q: %q", want, html)
		}
	}
	if len(resp.Blocks) == 0 {
		t.Error("no blocks in render response")
	}
}

func TestBacklinksEndpoint(t *testing.T) {
	router := testEnv(t)
	createNote(t, router, map[string]any{"title": "target"})
	createNote(t, router, map[string]any{"title": "src"})
	doJSON(t, router, http.MethodPut, "/notes/2", map[string]any{"content": "see [[1]]"})

	w := doJSON(t, router, http.MethodGet, "/notes/1/backlinks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("backlinks status = %d", w.Code)
	}
	var resp BacklinksResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Backlinks) != 1 || resp.Backlinks[0].Ref != "2" {
		t.Errorf("backlinks = %s", w.Body.String())
	}
}

func TestInvalidID(t *testing.T) {
	router := testEnv(t)
	w := doJSON(t, router, http.MethodGet, "/notes/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
