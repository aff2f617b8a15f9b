package section

import (
	"fmt"
	"sort"

	"folio/api/internal/quill"
)

// Store holds the flat section collection for one page. The flat form is the
// single source of truth during editing; the nested form is produced on
// demand by Nest. Store is not safe for concurrent use: one editing session
// owns it.
type Store struct {
	sections []Section
	index    map[string]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// FromFlat builds a store from an already-flat section list, verifying
// referential integrity: ids must be unique, every non-empty ParentID must
// resolve, and the parent graph must be acyclic.
func FromFlat(sections []Section) (*Store, error) {
	s := NewStore()
	for _, sec := range sections {
		if _, dup := s.index[sec.ID]; dup {
			return nil, integrityError("load", sec.ID, "duplicate section id")
		}
		s.index[sec.ID] = len(s.sections)
		s.sections = append(s.sections, sec)
	}
	for _, sec := range s.sections {
		if sec.ParentID != "" {
			if _, ok := s.index[sec.ParentID]; !ok {
				return nil, integrityError("load", sec.ID, "unknown parent "+sec.ParentID)
			}
		}
	}
	// Walking every ancestor chain catches cycles before the store is used.
	for _, sec := range s.sections {
		if err := s.checkAncestry(sec.ID); err != nil {
			return nil, err
		}
	}
	// Order values may be sparse but never tied within a sibling group.
	seen := make(map[string]map[int]string)
	for _, sec := range s.sections {
		group := seen[sec.ParentID]
		if group == nil {
			group = make(map[int]string)
			seen[sec.ParentID] = group
		}
		if other, dup := group[sec.Order]; dup {
			return nil, integrityError("load", sec.ID, fmt.Sprintf("order %d collides with sibling %s", sec.Order, other))
		}
		group[sec.Order] = sec.ID
	}
	return s, nil
}

// checkAncestry walks from id to the root. The chain in a valid tree is at
// most Len() long; exceeding that means the parent graph loops.
func (s *Store) checkAncestry(id string) error {
	current := id
	for steps := 0; steps <= len(s.sections); steps++ {
		idx, ok := s.index[current]
		if !ok {
			return nil
		}
		parent := s.sections[idx].ParentID
		if parent == "" {
			return nil
		}
		if parent == id {
			return integrityError("load", id, "section is its own ancestor")
		}
		current = parent
	}
	return integrityError("load", id, "ancestor chain exceeds section count, cycle suspected")
}

// Len returns the number of sections in the store.
func (s *Store) Len() int {
	return len(s.sections)
}

// Get returns the section with the given id.
func (s *Store) Get(id string) (Section, bool) {
	idx, ok := s.index[id]
	if !ok {
		return Section{}, false
	}
	return s.sections[idx], true
}

// Sections returns a copy of the flat collection. Slice order is incidental;
// tree order lives in ParentID and Order.
func (s *Store) Sections() []Section {
	out := make([]Section, len(s.sections))
	copy(out, s.sections)
	return out
}

// ChildrenOf returns the sections whose ParentID equals parentID, sorted by
// Order ascending. An empty parentID selects the root sections.
func (s *Store) ChildrenOf(parentID string) []Section {
	var children []Section
	for _, sec := range s.sections {
		if sec.ParentID == parentID {
			children = append(children, sec)
		}
	}
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Order < children[j].Order
	})
	return children
}

// DescendantIDsOf returns every id transitively parented under id, in
// depth-first order. Traversal is bounded by the store size so a corrupted
// store yields an IntegrityError instead of unbounded recursion.
func (s *Store) DescendantIDsOf(id string) ([]string, error) {
	var ids []string
	visited := map[string]bool{id: true}
	if err := s.collectDescendants(id, visited, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) collectDescendants(id string, visited map[string]bool, out *[]string) error {
	for _, child := range s.ChildrenOf(id) {
		if visited[child.ID] {
			return integrityError("descendants", child.ID, "cycle detected")
		}
		if len(visited) > len(s.sections) {
			return integrityError("descendants", id, "traversal exceeds section count")
		}
		visited[child.ID] = true
		*out = append(*out, child.ID)
		if err := s.collectDescendants(child.ID, visited, out); err != nil {
			return err
		}
	}
	return nil
}

// Add appends sec under parentID at the end of its sibling group. A non-empty
// parentID must name an existing section.
func (s *Store) Add(sec Section, parentID string) (Section, error) {
	if parentID != "" {
		if _, ok := s.index[parentID]; !ok {
			return Section{}, integrityError("add", sec.ID, "unknown parent "+parentID)
		}
	}
	if _, dup := s.index[sec.ID]; dup {
		return Section{}, integrityError("add", sec.ID, "duplicate section id")
	}
	sec.ParentID = parentID
	sec.Order = len(s.ChildrenOf(parentID))
	s.index[sec.ID] = len(s.sections)
	s.sections = append(s.sections, sec)
	return sec, nil
}

// Patch is a partial section update. Nil fields are left untouched. A Type
// change triggers the transition policy before the rest of the patch applies,
// so an explicit field in the same patch overrides a transition default.
type Patch struct {
	Type            *Type
	Title           *string
	ContentSource   *quill.Delta
	BackgroundColor *string
	HighlightColor  *string
	TitleTextColor  *string
	BorderWidth     *int
	BorderStyle     *string
	BorderColor     *string
	Width           *string
	Alignment       *string
	ImageData       *string
	Filename        *string
	PendingFile     []byte
	IsExpanded      *bool
}

// Update merges patch into the section with the given id.
func (s *Store) Update(id string, patch Patch) (Section, error) {
	idx, ok := s.index[id]
	if !ok {
		return Section{}, ErrNotFound
	}
	sec := s.sections[idx]

	if patch.Type != nil && *patch.Type != sec.Type {
		if !patch.Type.Valid() {
			return Section{}, integrityError("update", id, "invalid section type "+string(*patch.Type))
		}
		applyTransition(&sec, sec.Type, *patch.Type)
		sec.Type = *patch.Type
	}

	if patch.Title != nil {
		sec.Title = *patch.Title
	}
	if patch.ContentSource != nil {
		// The source and its rendered form always change together.
		sec.ContentSource = *patch.ContentSource
		sec.ContentRendered = quill.Render(*patch.ContentSource)
	}
	if patch.BackgroundColor != nil {
		sec.BackgroundColor = *patch.BackgroundColor
	}
	if patch.HighlightColor != nil {
		sec.HighlightColor = *patch.HighlightColor
	}
	if patch.TitleTextColor != nil {
		sec.TitleTextColor = *patch.TitleTextColor
	}
	if patch.BorderWidth != nil {
		sec.BorderWidth = *patch.BorderWidth
	}
	if patch.BorderStyle != nil {
		sec.BorderStyle = *patch.BorderStyle
	}
	if patch.BorderColor != nil {
		sec.BorderColor = *patch.BorderColor
	}
	if patch.Width != nil {
		sec.Width = *patch.Width
	}
	if patch.Alignment != nil {
		sec.Alignment = *patch.Alignment
	}
	if patch.ImageData != nil {
		sec.ImageData = *patch.ImageData
	}
	if patch.Filename != nil {
		sec.Filename = *patch.Filename
	}
	if patch.PendingFile != nil {
		sec.PendingFile = patch.PendingFile
	}
	if patch.IsExpanded != nil {
		sec.IsExpanded = *patch.IsExpanded
	}

	s.sections[idx] = sec
	return sec, nil
}

// SetContent updates a section's rich-text source and rendered form as one
// operation.
func (s *Store) SetContent(id string, delta quill.Delta) (Section, error) {
	return s.Update(id, Patch{ContentSource: &delta})
}

// Remove deletes the section and its whole descendant subtree, returning the
// removed ids. Callers tracking a selected section must clear it if its id is
// in the returned set; the store does not know about selection.
func (s *Store) Remove(id string) ([]string, error) {
	idx, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	parentID := s.sections[idx].ParentID
	descendants, err := s.DescendantIDsOf(id)
	if err != nil {
		return nil, err
	}

	removed := append([]string{id}, descendants...)
	drop := make(map[string]bool, len(removed))
	for _, rid := range removed {
		drop[rid] = true
	}

	kept := s.sections[:0]
	for _, sec := range s.sections {
		if !drop[sec.ID] {
			kept = append(kept, sec)
		}
	}
	s.sections = kept
	s.reindex()

	// Close the gap the removal left in its sibling group.
	for i, sib := range s.ChildrenOf(parentID) {
		s.sections[s.index[sib.ID]].Order = i
	}
	return removed, nil
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.sections))
	for i, sec := range s.sections {
		s.index[sec.ID] = i
	}
}
