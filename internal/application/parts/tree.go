package parts

import (
	"github.com/partdb/backend/internal/domain/shared"
)

// TreeNode is one element of a structural tree listing
type TreeNode struct {
	ID       uint       `json:"id"`
	Name     string     `json:"name"`
	FullPath string     `json:"full_path"`
	Children []TreeNode `json:"children,omitempty"`
}

// buildTree arranges elements (ordered by name) below their parents.
// Elements whose parent is missing are treated as roots.
func buildTree[T any, PT interface {
	*T
	shared.Structural
}](elements []T) []TreeNode {
	byParent := make(map[uint][]uint, len(elements))
	index := make(map[uint]*shared.StructuralElement, len(elements))
	var roots []uint
	for i := range elements {
		st := PT(&elements[i]).Structure()
		index[st.ID] = st
	}
	for i := range elements {
		st := PT(&elements[i]).Structure()
		if st.ParentID == nil || index[*st.ParentID] == nil {
			roots = append(roots, st.ID)
			continue
		}
		byParent[*st.ParentID] = append(byParent[*st.ParentID], st.ID)
	}

	var build func(id uint, path []string, seen map[uint]bool) TreeNode
	build = func(id uint, path []string, seen map[uint]bool) TreeNode {
		st := index[id]
		full := append(append([]string{}, path...), st.Name)
		node := TreeNode{ID: id, Name: st.Name, FullPath: shared.JoinPath(full)}
		seen[id] = true
		for _, childID := range byParent[id] {
			if seen[childID] {
				continue
			}
			node.Children = append(node.Children, build(childID, full, seen))
		}
		return node
	}

	seen := make(map[uint]bool, len(elements))
	nodes := make([]TreeNode, 0, len(roots))
	for _, id := range roots {
		nodes = append(nodes, build(id, nil, seen))
	}
	return nodes
}

// Flatten returns the nodes of a tree in depth-first order
func Flatten(nodes []TreeNode) []TreeNode {
	var out []TreeNode
	for _, n := range nodes {
		children := n.Children
		n.Children = nil
		out = append(out, n)
		out = append(out, Flatten(children)...)
	}
	return out
}
