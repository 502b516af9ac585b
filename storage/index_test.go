package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/richinex/convostore/internal/fsio"
)

func newTestIndex(t *testing.T) (*IndexStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.json")
	return NewIndexStore(fsio.NewOS(), path), path
}

func TestIndexLoadMissingFile(t *testing.T) {
	idx, _ := newTestIndex(t)

	if err := idx.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("expected empty index, got %d entries", idx.Len())
	}
}

func TestIndexLoadCorruptFileIsSoft(t *testing.T) {
	idx, path := newTestIndex(t)

	if err := os.WriteFile(path, []byte("{definitely not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := idx.Load(); err != nil {
		t.Fatalf("expected corrupt index to load as empty, got error: %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("expected empty index, got %d entries", idx.Len())
	}
}

func TestIndexUpsertReplacesAndSorts(t *testing.T) {
	idx, _ := newTestIndex(t)

	idx.Upsert(ConversationMeta{ID: "a", Title: "A", LastUpdated: 100})
	idx.Upsert(ConversationMeta{ID: "b", Title: "B", LastUpdated: 300})
	idx.Upsert(ConversationMeta{ID: "c", Title: "C", LastUpdated: 200})

	metas := idx.Snapshot()
	if len(metas) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(metas))
	}
	if metas[0].ID != "b" || metas[1].ID != "c" || metas[2].ID != "a" {
		t.Errorf("wrong order: %v %v %v", metas[0].ID, metas[1].ID, metas[2].ID)
	}

	// Replacing an id must not grow the list
	idx.Upsert(ConversationMeta{ID: "a", Title: "A2", LastUpdated: 400})
	metas = idx.Snapshot()
	if len(metas) != 3 {
		t.Fatalf("expected 3 entries after replace, got %d", len(metas))
	}
	if metas[0].ID != "a" || metas[0].Title != "A2" {
		t.Errorf("expected replaced entry first, got %+v", metas[0])
	}
}

func TestIndexRemove(t *testing.T) {
	idx, _ := newTestIndex(t)

	idx.Upsert(ConversationMeta{ID: "a", LastUpdated: 1})

	if !idx.Remove("a") {
		t.Error("expected Remove to report presence")
	}
	if idx.Remove("a") {
		t.Error("expected second Remove to be a no-op")
	}
	if idx.Len() != 0 {
		t.Errorf("expected empty index, got %d", idx.Len())
	}
}

func TestIndexSaveAndReload(t *testing.T) {
	idx, path := newTestIndex(t)

	idx.Upsert(ConversationMeta{ID: "a", Title: "Chat", CreatedAt: 10, LastUpdated: 20, MessageCount: 3})
	if err := idx.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := NewIndexStore(fsio.NewOS(), path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	metas := reloaded.Snapshot()
	if len(metas) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(metas))
	}
	if metas[0].ID != "a" || metas[0].MessageCount != 3 {
		t.Errorf("entry not preserved: %+v", metas[0])
	}
}

func TestIndexContains(t *testing.T) {
	idx, _ := newTestIndex(t)
	idx.Upsert(ConversationMeta{ID: "x", LastUpdated: 1})

	if !idx.Contains("x") {
		t.Error("expected Contains(x) to be true")
	}
	if idx.Contains("y") {
		t.Error("expected Contains(y) to be false")
	}
}
