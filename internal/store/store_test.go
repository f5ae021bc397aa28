package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/genrelay/genrelay/internal/store"
)

// newTestStore creates a Store backed by a temporary SQLite database.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// makeGeneration returns a minimal Generation with sensible defaults.
func makeGeneration(id string, kind store.Kind, input string) *store.Generation {
	return &store.Generation{
		ID:        id,
		Kind:      kind,
		Input:     input,
		Status:    store.StatusOK,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestNew(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "new.db")
	st, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNew_InvalidPath(t *testing.T) {
	// A path under a non-existent directory should fail during open or migration.
	if _, err := store.New("/no/such/dir/test.db"); err == nil {
		t.Fatal("expected error for invalid path, got nil")
	}
}

func TestAddAndGet(t *testing.T) {
	st := newTestStore(t)

	g := makeGeneration("abc123", store.KindText, "2+2=")
	g.Output = "4"
	if err := st.Add(g); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := st.Get("abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Kind != store.KindText || got.Input != "2+2=" || got.Output != "4" {
		t.Errorf("Get returned %+v; want the stored values", got)
	}
	if got.Status != store.StatusOK {
		t.Errorf("Status = %q; want %q", got.Status, store.StatusOK)
	}
}

func TestGet_Missing(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.Get("nope"); err == nil {
		t.Fatal("expected error for missing ID, got nil")
	}
}

func TestAdd_ErrorRecord(t *testing.T) {
	st := newTestStore(t)

	g := makeGeneration("err1", store.KindImage, "http://example/broken.png")
	g.Status = store.StatusError
	g.Error = "fetch failed"
	if err := st.Add(g); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := st.Get("err1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != store.StatusError || got.Error != "fetch failed" {
		t.Errorf("Get returned %+v; want the error record", got)
	}
}

func TestList_OrderAndLimit(t *testing.T) {
	st := newTestStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"a", "b", "c"} {
		g := makeGeneration(id, store.KindText, "prompt "+id)
		g.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := st.Add(g); err != nil {
			t.Fatalf("Add(%q): %v", id, err)
		}
	}

	all, err := st.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List returned %d records; want 3", len(all))
	}
	if all[0].ID != "c" || all[2].ID != "a" {
		t.Errorf("List order = [%s %s %s]; want newest first", all[0].ID, all[1].ID, all[2].ID)
	}

	limited, err := st.List(2)
	if err != nil {
		t.Fatalf("List(2): %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d records; want 2", len(limited))
	}
}

func TestList_Empty(t *testing.T) {
	st := newTestStore(t)
	got, err := st.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List returned %d records; want 0", len(got))
	}
}
