package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	vitrail "vitrail"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "test.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInitIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "init.db"))
	defer s.Close()
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	if err := s.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
}

func TestCreateAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	w := vitrail.Window{
		ID:        vitrail.NewID(),
		Name:      "Timer",
		Title:     "Timer",
		Markup:    "<html><body><div id=\"t\">0</div></body></html>",
		CreatedAt: vitrail.NowUnix(),
	}
	if err := s.Create(ctx, w); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != w {
		t.Errorf("got %+v, want %+v", got, w)
	}

	byName, err := s.GetByName(ctx, "Timer")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if byName.ID != w.ID {
		t.Errorf("GetByName id = %q, want %q", byName.ID, w.ID)
	}
}

func TestGetUnknownID(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, vitrail.ErrWindowNotFound) {
		t.Errorf("err = %v, want ErrWindowNotFound", err)
	}
	_, err = s.GetByName(context.Background(), "missing")
	if !errors.Is(err, vitrail.ErrWindowNotFound) {
		t.Errorf("GetByName err = %v, want ErrWindowNotFound", err)
	}
}

func TestListOrderedByCreation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i, name := range []string{"a", "b", "c"} {
		w := vitrail.Window{ID: vitrail.NewID(), Name: name, Title: name, Markup: "<p></p>", CreatedAt: int64(1000 + i)}
		if err := s.Create(ctx, w); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(got))
	}
	for i, name := range []string{"a", "b", "c"} {
		if got[i].Name != name {
			t.Errorf("window %d = %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestUpdateMarkupAndTitle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	w := vitrail.Window{ID: vitrail.NewID(), Name: "Page", Title: "Page", Markup: "<p>old</p>", CreatedAt: 1}
	if err := s.Create(ctx, w); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.UpdateMarkup(ctx, w.ID, "<p>new</p>"); err != nil {
		t.Fatalf("UpdateMarkup: %v", err)
	}
	if err := s.UpdateTitle(ctx, w.ID, "Page v2"); err != nil {
		t.Fatalf("UpdateTitle: %v", err)
	}

	got, _ := s.Get(ctx, w.ID)
	if got.Markup != "<p>new</p>" {
		t.Errorf("markup = %q", got.Markup)
	}
	if got.Title != "Page v2" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.UpdateMarkup(ctx, "missing", "<p></p>"); !errors.Is(err, vitrail.ErrWindowNotFound) {
		t.Errorf("UpdateMarkup err = %v, want ErrWindowNotFound", err)
	}
	if err := s.UpdateTitle(ctx, "missing", "x"); !errors.Is(err, vitrail.ErrWindowNotFound) {
		t.Errorf("UpdateTitle err = %v, want ErrWindowNotFound", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	w := vitrail.Window{ID: vitrail.NewID(), Name: "Gone", Title: "Gone", Markup: "<p></p>", CreatedAt: 1}
	if err := s.Create(ctx, w); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(ctx, w.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, w.ID); !errors.Is(err, vitrail.ErrWindowNotFound) {
		t.Errorf("Get after delete = %v, want ErrWindowNotFound", err)
	}
	if err := s.Delete(ctx, w.ID); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestMarkupSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "windows.db")
	ctx := context.Background()

	s := New(path)
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	w := vitrail.Window{ID: vitrail.NewID(), Name: "Persist", Title: "Persist", Markup: "<p>kept</p>", CreatedAt: 1}
	if err := s.Create(ctx, w); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2 := New(path)
	defer s2.Close()
	if err := s2.Init(ctx); err != nil {
		t.Fatalf("reopen Init: %v", err)
	}
	got, err := s2.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Markup != "<p>kept</p>" {
		t.Errorf("markup = %q", got.Markup)
	}
}
