package storage

import (
	"context"
	"testing"

	"github.com/richinex/convostore/record"
)

func TestMemoryStoreSaveLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := sampleRecord("c1")
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx, "c1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil || loaded.Title != "Sample c1" || len(loaded.Messages) != 2 {
		t.Errorf("record not preserved: %+v", loaded)
	}

	// Mutating the returned copy must not affect the store.
	loaded.Messages[0].Text = "mutated"
	again, _ := store.Load(ctx, "c1")
	if again.Messages[0].Text != "hello" {
		t.Error("expected stored messages to be isolated from callers")
	}
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	store := NewMemoryStore()

	rec, err := store.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil, got %+v", rec)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, sampleRecord("c1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	existed, err := store.Delete(ctx, "c1")
	if err != nil || !existed {
		t.Errorf("expected existed=true, got %v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "c1")
	if err != nil || existed {
		t.Errorf("expected existed=false, got %v err=%v", existed, err)
	}
}

func TestMemoryStoreListOrdering(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a := sampleRecord("a")
	a.LastUpdated = 100
	b := sampleRecord("b")
	b.LastUpdated = 300

	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, b); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	metas, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 2 || metas[0].ID != "b" || metas[1].ID != "a" {
		t.Errorf("expected [b a], got %+v", metas)
	}
}

func TestMemoryStoreClear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, sampleRecord("c1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	metas, _ := store.List(ctx)
	if len(metas) != 0 {
		t.Errorf("expected empty list, got %+v", metas)
	}
}

func TestMemoryStoreNormalizesOnSave(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := &record.Record{ID: "c1", Title: "Bare"}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, _ := store.Load(ctx, "c1")
	if loaded.Version != record.CurrentVersion {
		t.Errorf("expected version %d, got %d", record.CurrentVersion, loaded.Version)
	}
	if loaded.Timestamp == 0 || loaded.LastUpdated == 0 {
		t.Error("expected timestamps to be filled")
	}
	if loaded.Messages == nil {
		t.Error("expected non-nil messages slice")
	}
}
