package section

import (
	"errors"
	"testing"
)

func TestReorderMovesBeforeTarget(t *testing.T) {
	// A(0), B(1) at root; C(0) under A. Drag B onto A.
	s := buildSample(t)

	outcome, err := s.Reorder("B", "A")
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if outcome != ReorderApplied {
		t.Fatalf("expected ReorderApplied, got %v", outcome)
	}

	a, _ := s.Get("A")
	b, _ := s.Get("B")
	c, _ := s.Get("C")
	if b.Order != 0 || a.Order != 1 {
		t.Fatalf("expected B=0 A=1, got A=%d B=%d", a.Order, b.Order)
	}
	if c.Order != 0 {
		t.Fatalf("other sibling groups must stay untouched, C=%d", c.Order)
	}
}

func TestReorderMoveDown(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"A", "B", "C", "D"} {
		mustAdd(t, s, id, "")
	}

	if _, err := s.Reorder("A", "C"); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	wantOrder := map[string]int{"B": 0, "C": 1, "A": 2, "D": 3}
	for id, want := range wantOrder {
		sec, _ := s.Get(id)
		if sec.Order != want {
			t.Errorf("%s: expected order %d, got %d", id, want, sec.Order)
		}
	}
	assertDenseOrders(t, s, "")
}

func TestReorderSelfDropIsNoOp(t *testing.T) {
	s := buildSample(t)
	outcome, err := s.Reorder("A", "A")
	if err != nil {
		t.Fatalf("self drop must not error: %v", err)
	}
	if outcome != ReorderIgnored {
		t.Fatalf("expected ReorderIgnored, got %v", outcome)
	}
	assertUnchangedSample(t, s)
}

func TestReorderCrossParentIsNoOp(t *testing.T) {
	s := buildSample(t)

	// C lives under A; B is a root. Dropping C onto B crosses parents.
	outcome, err := s.Reorder("C", "B")
	if err != nil {
		t.Fatalf("cross-parent drop must not error: %v", err)
	}
	if outcome != ReorderIgnored {
		t.Fatalf("expected ReorderIgnored, got %v", outcome)
	}
	// Both sibling groups keep their order values.
	assertUnchangedSample(t, s)

	c, _ := s.Get("C")
	if c.ParentID != "A" {
		t.Fatalf("cross-parent drop must not reparent, C under %q", c.ParentID)
	}
}

func TestReorderUnknownIDs(t *testing.T) {
	s := buildSample(t)
	if _, err := s.Reorder("ghost", "A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown dragged id, got %v", err)
	}
	if _, err := s.Reorder("A", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown target id, got %v", err)
	}
	assertUnchangedSample(t, s)
}

func assertUnchangedSample(t *testing.T, s *Store) {
	t.Helper()
	want := map[string]int{"A": 0, "B": 1, "C": 0}
	for id, order := range want {
		sec, ok := s.Get(id)
		if !ok {
			t.Fatalf("section %s missing", id)
		}
		if sec.Order != order {
			t.Errorf("%s: expected order %d, got %d", id, order, sec.Order)
		}
	}
}
