package section

// ReorderOutcome describes what a Reorder call did.
type ReorderOutcome int

const (
	// ReorderApplied means the dragged section was moved and its sibling
	// group renumbered.
	ReorderApplied ReorderOutcome = iota
	// ReorderIgnored means the drop was a defined no-op: the section was
	// dropped on itself, or the target belongs to a different parent.
	// Cross-parent drops do not reparent.
	ReorderIgnored
)

// Reorder moves the dragged section to the position its target sibling
// currently occupies, standard remove-then-reinsert move semantics, then
// renumbers the sibling group to the dense sequence 0..k-1. Other sibling
// groups are left untouched.
func (s *Store) Reorder(draggedID, targetID string) (ReorderOutcome, error) {
	if draggedID == targetID {
		return ReorderIgnored, nil
	}
	dragged, ok := s.Get(draggedID)
	if !ok {
		return ReorderIgnored, ErrNotFound
	}
	target, ok := s.Get(targetID)
	if !ok {
		return ReorderIgnored, ErrNotFound
	}
	if dragged.ParentID != target.ParentID {
		return ReorderIgnored, nil
	}

	siblings := s.ChildrenOf(dragged.ParentID)
	oldIndex, newIndex := -1, -1
	for i, sib := range siblings {
		switch sib.ID {
		case draggedID:
			oldIndex = i
		case targetID:
			newIndex = i
		}
	}
	if oldIndex < 0 || newIndex < 0 {
		return ReorderIgnored, integrityError("reorder", draggedID, "sibling group inconsistent with parent references")
	}

	moved := arrayMove(siblings, oldIndex, newIndex)
	for i, sib := range moved {
		idx := s.index[sib.ID]
		s.sections[idx].Order = i
	}
	return ReorderApplied, nil
}

// arrayMove removes the element at from and reinserts it at to, returning a
// new slice.
func arrayMove(items []Section, from, to int) []Section {
	out := make([]Section, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	moved := items[from]
	out = append(out[:to], append([]Section{moved}, out[to:]...)...)
	return out
}
