// Package hierarchy discovers the tree of repositories linked by submodule
// pointers and computes the bottom-up execution order.
package hierarchy

import (
	"path/filepath"
	"strings"
)

// RepoID identifies one repository in a Hierarchy. It is an index into
// the hierarchy's node arena.
type RepoID int

// NoParent marks the root node's parent
const NoParent RepoID = -1

// SubmoduleLink records a gitlink edge from a parent repo to a child repo
type SubmoduleLink struct {
	Parent       RepoID
	Child        RepoID
	PathInParent string
	RecordedSha  string
}

// RepoInfo is one node of the hierarchy. Head and CurrentBranch are
// snapshots taken at discovery time.
type RepoInfo struct {
	AbsPath       string
	RelPath       string // relative to the hierarchy root; "" for the root
	Name          string
	Parent        RepoID
	Depth         int
	Submodules    []SubmoduleLink
	HeadBefore    string
	CurrentBranch string // empty when HEAD is detached
}

// Hierarchy is a rooted tree of repositories stored in a flat arena.
// Edges are indices; Order is the post-order execution order (children
// strictly before ancestors, ties broken by relative path).
type Hierarchy struct {
	Nodes []RepoInfo
	Root  RepoID
	Order []RepoID

	// Uninitialized lists submodule paths (relative to the hierarchy
	// root) that were recorded in a parent tree but have no worktree.
	// They are warned about at discovery and cannot be planned.
	Uninitialized []string
}

// Node returns the node for id
func (h *Hierarchy) Node(id RepoID) *RepoInfo {
	return &h.Nodes[id]
}

// Len returns the number of repositories
func (h *Hierarchy) Len() int {
	return len(h.Nodes)
}

// ChildAt returns the repo linked at the given submodule path of parent,
// or -1 when no child is recorded there
func (h *Hierarchy) ChildAt(parent RepoID, pathInParent string) RepoID {
	for _, link := range h.Nodes[parent].Submodules {
		if link.PathInParent == pathInParent {
			return link.Child
		}
	}
	return -1
}

// Resolve matches a user-supplied repository reference against name,
// relative path, and absolute path, returning every matching node.
func (h *Hierarchy) Resolve(ref string) []RepoID {
	cleaned := filepath.Clean(ref)
	var matches []RepoID
	for i := range h.Nodes {
		node := &h.Nodes[i]
		relMatch := node.RelPath != "" && filepath.Clean(node.RelPath) == cleaned
		rootMatch := node.RelPath == "" && (cleaned == "." || cleaned == string(filepath.Separator))
		if node.Name == ref || relMatch || rootMatch || node.AbsPath == cleaned {
			matches = append(matches, RepoID(i))
		}
	}
	return matches
}

// DisplayPath returns the node's relative path, or its name for the root
func (h *Hierarchy) DisplayPath(id RepoID) string {
	node := h.Node(id)
	if node.RelPath == "" {
		return node.Name
	}
	return node.RelPath
}

// AncestorPath returns the chain of repos from id up to the root,
// excluding id itself
func (h *Hierarchy) AncestorPath(id RepoID) []RepoID {
	var chain []RepoID
	for cur := h.Nodes[id].Parent; cur != NoParent; cur = h.Nodes[cur].Parent {
		chain = append(chain, cur)
	}
	return chain
}

// isPathWithin reports whether child is lexically inside parent
func isPathWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
