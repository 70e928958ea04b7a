package noteservice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/testutil"
)

// recorder captures published note events.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) PublishNoteEvent(kind string, id int64, ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind+":"+ref)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func testService(t *testing.T) (*Service, *recorder) {
	t.Helper()
	rec := &recorder{}
	return NewService(testutil.TestDB(t), rec), rec
}

func TestCreate_RoundTrip(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{Title: "Intro"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Ref != "1" || got.Type != models.TypeNote || got.ParentID != nil ||
		got.Title != "Intro" || got.Content != "" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	for _, req := range []CreateRequest{
		{Title: ""},
		{Title: "   "},
		{Title: "ok", Type: "chapter"},
	} {
		if _, err := svc.Create(ctx, req); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Create(%+v): err = %v, want ErrValidation", req, err)
		}
	}

	// Nothing may have been written.
	notes, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("rejected requests left %d notes", len(notes))
	}
}

func TestCreate_TitleTrimmedAndTypeDefaulted(t *testing.T) {
	svc, _ := testService(t)
	n, err := svc.Create(context.Background(), CreateRequest{Title: "  Intro  "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.Title != "Intro" || n.Type != models.TypeNote {
		t.Errorf("note = %+v", n)
	}
}

func TestCreate_BibForcesNilParent(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	root, _ := svc.Create(ctx, CreateRequest{Title: "root"})
	bib, err := svc.Create(ctx, CreateRequest{Title: "paper", Type: "bib", ParentID: &root.ID})
	if err != nil {
		t.Fatalf("Create bib: %v", err)
	}
	if bib.Ref != "B1" || bib.ParentID != nil {
		t.Errorf("bib = %+v", bib)
	}
}

func TestCreate_ParentErrorsSurface(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	missing := int64(42)
	if _, err := svc.Create(ctx, CreateRequest{Title: "x", ParentID: &missing}); !errors.Is(err, apperr.ErrParentNotFound) {
		t.Errorf("err = %v, want ErrParentNotFound", err)
	}

	bib, _ := svc.Create(ctx, CreateRequest{Title: "paper", Type: "bib"})
	if _, err := svc.Create(ctx, CreateRequest{Title: "x", ParentID: &bib.ID}); !errors.Is(err, apperr.ErrInvalidParentType) {
		t.Errorf("err = %v, want ErrInvalidParentType", err)
	}
}

func TestUpdate_Validation(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	n, _ := svc.Create(ctx, CreateRequest{Title: "a"})

	if _, err := svc.Update(ctx, n.ID, UpdateRequest{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty update: err = %v", err)
	}
	blank := "  "
	if _, err := svc.Update(ctx, n.ID, UpdateRequest{Title: &blank}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("blank title: err = %v", err)
	}

	content := "body"
	updated, err := svc.Update(ctx, n.ID, UpdateRequest{Content: &content})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Content != "body" || updated.Title != "a" {
		t.Errorf("updated = %+v", updated)
	}
}

func TestDelete_GatedByChildren(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	root, _ := svc.Create(ctx, CreateRequest{Title: "root"})
	child, _ := svc.Create(ctx, CreateRequest{Title: "child", ParentID: &root.ID})

	if err := svc.Delete(ctx, root.ID); !errors.Is(err, apperr.ErrHasChildren) {
		t.Errorf("err = %v, want ErrHasChildren", err)
	}
	if err := svc.Delete(ctx, child.ID); err != nil {
		t.Fatalf("delete leaf: %v", err)
	}
	if err := svc.Delete(ctx, child.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double delete: err = %v", err)
	}
}

func TestEventsPublished(t *testing.T) {
	svc, rec := testService(t)
	ctx := context.Background()

	n, _ := svc.Create(ctx, CreateRequest{Title: "a"})
	title := "b"
	_, _ = svc.Update(ctx, n.ID, UpdateRequest{Title: &title})
	_ = svc.Delete(ctx, n.ID)

	want := []string{"created:1", "updated:1", "deleted:1"}
	got := rec.all()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTreeAndBibliographyViews(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	root, _ := svc.Create(ctx, CreateRequest{Title: "root"})
	_, _ = svc.Create(ctx, CreateRequest{Title: "child", ParentID: &root.ID})
	_, _ = svc.Create(ctx, CreateRequest{Title: "paper", Type: "bib"})

	forest, err := svc.Tree(ctx)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(forest) != 1 || forest[0].Note.Ref != "1" || len(forest[0].Children) != 1 {
		t.Errorf("forest = %+v", forest)
	}

	opts, err := svc.ParentOptions(ctx)
	if err != nil {
		t.Fatalf("ParentOptions: %v", err)
	}
	if len(opts) != 2 || opts[1].Depth != 1 || opts[1].Ref != "1.1" {
		t.Errorf("options = %+v", opts)
	}

	bib, err := svc.Bibliography(ctx)
	if err != nil {
		t.Fatalf("Bibliography: %v", err)
	}
	if len(bib) != 1 || bib[0].Ref != "B1" {
		t.Errorf("bibliography = %+v", bib)
	}
}

func TestRender_AgainstLiveNoteSet(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	_, _ = svc.Create(ctx, CreateRequest{Title: "Methods"})

	blocks, html, err := svc.Render(ctx, "see [[1]] and [[9.9]]")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("blocks = %+v", blocks)
	}
	if !strings.Contains(html, "[[1 Methods]]") || !strings.Contains(html, "[[9.9 (not found)]]") {
		t.Errorf("html = %q", html)
	}
}

func TestBacklinks(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	target, _ := svc.Create(ctx, CreateRequest{Title: "target"})
	src, _ := svc.Create(ctx, CreateRequest{Title: "src"})
	other, _ := svc.Create(ctx, CreateRequest{Title: "other"})

	content := "see [[" + target.Ref + "]]"
	_, _ = svc.Update(ctx, src.ID, UpdateRequest{Content: &content})
	broken := "see [[8.8]]"
	_, _ = svc.Update(ctx, other.ID, UpdateRequest{Content: &broken})

	bl, err := svc.Backlinks(ctx, target.ID)
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 1 || bl[0].ID != src.ID {
		t.Errorf("backlinks = %+v", bl)
	}

	if _, err := svc.Backlinks(ctx, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing target: err = %v", err)
	}
}
