package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"folio/api/internal/section"
)

func setupTestStore(t *testing.T) (*ExpansionStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewExpansionStore("redis://"+s.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("failed to create expansion store: %v", err)
	}
	return store, s
}

func TestSaveAndLoadExpansion(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	e := section.ExpansionFromIDs([]string{"sec_a", "sec_b"})

	if err := store.Save(ctx, "sess-1", "page-1", e); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, ok, err := store.Load(ctx, "sess-1", "page-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !ok {
		t.Fatal("expected stored expansion set")
	}
	if !loaded.Expanded("sec_a") || !loaded.Expanded("sec_b") {
		t.Errorf("loaded set missing ids: %v", loaded.IDs())
	}
	if loaded.Expanded("sec_c") {
		t.Error("loaded set has extra id")
	}
}

func TestLoadMissingIsNotAnError(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	_, ok, err := store.Load(context.Background(), "sess-1", "never-opened")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok {
		t.Fatal("expected no stored set for an unopened page")
	}
}

func TestExpansionExpires(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()
	store, err := NewExpansionStore("redis://"+s.Addr(), time.Second)
	if err != nil {
		t.Fatalf("failed to create expansion store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Save(ctx, "sess-1", "page-1", section.ExpansionFromIDs([]string{"sec_a"})); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	s.FastForward(2 * time.Second)

	_, ok, err := store.Load(ctx, "sess-1", "page-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok {
		t.Fatal("expansion set should have expired")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Save(ctx, "sess-1", "page-1", section.ExpansionFromIDs([]string{"sec_a"})); err != nil {
		t.Fatalf("Save sess-1 failed: %v", err)
	}
	if err := store.Save(ctx, "sess-2", "page-1", section.ExpansionFromIDs([]string{"sec_b"})); err != nil {
		t.Fatalf("Save sess-2 failed: %v", err)
	}

	one, ok, err := store.Load(ctx, "sess-1", "page-1")
	if err != nil || !ok {
		t.Fatalf("Load sess-1 failed: ok=%v err=%v", ok, err)
	}
	if one.Expanded("sec_b") {
		t.Error("sess-1 must not see sess-2 state")
	}

	two, ok, err := store.Load(ctx, "sess-2", "page-1")
	if err != nil || !ok {
		t.Fatalf("Load sess-2 failed: ok=%v err=%v", ok, err)
	}
	if !two.Expanded("sec_b") || two.Expanded("sec_a") {
		t.Errorf("sess-2 state wrong: %v", two.IDs())
	}
}

func TestClearExpansion(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Save(ctx, "sess-1", "page-1", section.ExpansionFromIDs([]string{"sec_a"})); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Clear(ctx, "sess-1", "page-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	_, ok, err := store.Load(ctx, "sess-1", "page-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok {
		t.Fatal("expected set to be gone after Clear")
	}

	// Clearing a missing key is fine.
	if err := store.Clear(ctx, "sess-1", "page-1"); err != nil {
		t.Fatalf("Clear of missing key failed: %v", err)
	}
}
