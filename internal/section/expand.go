package section

import "sort"

// Expansion is the set of section ids currently expanded for one viewing or
// editing session. It is passed into rendering logic rather than kept as
// ambient global state.
type Expansion map[string]struct{}

// NewExpansion returns an empty expansion set.
func NewExpansion() Expansion {
	return make(Expansion)
}

// ExpansionFromIDs rebuilds an expansion set from a persisted id list.
func ExpansionFromIDs(ids []string) Expansion {
	e := make(Expansion, len(ids))
	for _, id := range ids {
		e[id] = struct{}{}
	}
	return e
}

// InitExpansion applies the editor's load rule: every section that has at
// least one child starts expanded. Leaf sections are not tracked.
func InitExpansion(s *Store) Expansion {
	e := NewExpansion()
	hasChild := make(map[string]bool)
	for _, sec := range s.sections {
		if sec.ParentID != "" {
			hasChild[sec.ParentID] = true
		}
	}
	for _, sec := range s.sections {
		if hasChild[sec.ID] {
			e[sec.ID] = struct{}{}
		}
	}
	return e
}

// InitExpansionFromFlags applies the viewer's load rule: expandable sections
// whose persisted IsExpanded flag is set start expanded, through the whole
// tree.
func InitExpansionFromFlags(nodes []Node) Expansion {
	e := NewExpansion()
	var walk func([]Node)
	walk = func(ns []Node) {
		for _, n := range ns {
			if n.Type == TypeExpandable && n.IsExpanded {
				e[n.ID] = struct{}{}
			}
			walk(n.Children)
		}
	}
	walk(nodes)
	return e
}

// Toggle flips the expansion state of a single id. Descendants keep their own
// stored state; collapsing a parent hides them without resetting it.
func (e Expansion) Toggle(id string) {
	if _, ok := e[id]; ok {
		delete(e, id)
	} else {
		e[id] = struct{}{}
	}
}

// Expanded reports whether id is in the set.
func (e Expansion) Expanded(id string) bool {
	_, ok := e[id]
	return ok
}

// IDs returns the set as a sorted slice, for persistence and wire payloads.
func (e Expansion) IDs() []string {
	ids := make([]string, 0, len(e))
	for id := range e {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Visible computes a section's effective visibility: roots are always
// visible; any other section is visible only while its parent is expanded
// and itself visible. Collapsing any ancestor hides the whole subtree.
// Traversal is bounded so a corrupted store cannot loop.
func (s *Store) Visible(e Expansion, id string) (bool, error) {
	current, ok := s.Get(id)
	if !ok {
		return false, ErrNotFound
	}
	for steps := 0; steps <= len(s.sections); steps++ {
		if current.ParentID == "" {
			return true, nil
		}
		if !e.Expanded(current.ParentID) {
			return false, nil
		}
		parent, ok := s.Get(current.ParentID)
		if !ok {
			return false, integrityError("visible", current.ID, "unknown parent "+current.ParentID)
		}
		current = parent
	}
	return false, integrityError("visible", id, "ancestor chain exceeds section count, cycle suspected")
}
