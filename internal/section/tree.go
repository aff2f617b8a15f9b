package section

import "sort"

// Node is the nested form of a section: the section itself plus its ordered
// children. The nested form is used at the persistence boundary and by the
// read-only viewer; editing always happens on the flat form.
type Node struct {
	Section
	Children []Node
}

// Nest converts a flat section list into a tree rooted at the sections with
// no parent. The input does not need to be pre-sorted; sibling order comes
// from each section's Order field. An empty input yields an empty tree.
// A list whose parent references loop produces an IntegrityError.
func Nest(sections []Section) ([]Node, error) {
	byParent := make(map[string][]Section)
	for _, sec := range sections {
		byParent[sec.ParentID] = append(byParent[sec.ParentID], sec)
	}
	for _, group := range byParent {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Order < group[j].Order
		})
	}

	attached := 0
	roots, err := nestChildren(byParent, "", len(sections), &attached)
	if err != nil {
		return nil, err
	}
	// Sections never reached from a root are stranded in a cycle or hang off
	// a missing parent; either way the flat form is structurally broken.
	if attached != len(sections) {
		return nil, integrityError("nest", "", "unreachable sections, broken parent references")
	}
	return roots, nil
}

func nestChildren(byParent map[string][]Section, parentID string, total int, attached *int) ([]Node, error) {
	group := byParent[parentID]
	if len(group) == 0 {
		return nil, nil
	}
	nodes := make([]Node, 0, len(group))
	for _, sec := range group {
		*attached++
		if *attached > total {
			return nil, integrityError("nest", sec.ID, "cycle detected")
		}
		children, err := nestChildren(byParent, sec.ID, total, attached)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, Node{Section: sec, Children: children})
	}
	return nodes, nil
}

// Flatten converts a nested tree back to the flat form, depth-first and
// pre-order: each parent precedes its descendants in the result. ParentID is
// reassigned from tree position; Order is preserved from the node itself.
// Sequence position in the output does not encode sibling order.
func Flatten(nodes []Node) []Section {
	var flat []Section
	flattenInto(nodes, "", &flat)
	return flat
}

func flattenInto(nodes []Node, parentID string, out *[]Section) {
	for _, node := range nodes {
		sec := node.Section
		sec.ParentID = parentID
		*out = append(*out, sec)
		flattenInto(node.Children, node.ID, out)
	}
}
