package hierarchy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/delabrcd/lockstep-rebase/internal/hierarchy"
)

func sampleHierarchy() *hierarchy.Hierarchy {
	return &hierarchy.Hierarchy{
		Nodes: []hierarchy.RepoInfo{
			{
				AbsPath: "/work/app", RelPath: "", Name: "app",
				Parent: hierarchy.NoParent, Depth: 0,
				Submodules: []hierarchy.SubmoduleLink{
					{Parent: 0, Child: 1, PathInParent: "libs/c"},
					{Parent: 0, Child: 2, PathInParent: "vendor/c"},
				},
			},
			{AbsPath: "/work/app/libs/c", RelPath: "libs/c", Name: "c", Parent: 0, Depth: 1},
			{AbsPath: "/work/app/vendor/c", RelPath: "vendor/c", Name: "c", Parent: 0, Depth: 1},
		},
		Root:  0,
		Order: []hierarchy.RepoID{1, 2, 0},
	}
}

func TestResolve(t *testing.T) {
	h := sampleHierarchy()

	t.Run("by unique name", func(t *testing.T) {
		matches := h.Resolve("app")
		require.Equal(t, []hierarchy.RepoID{0}, matches)
	})

	t.Run("ambiguous name matches every candidate", func(t *testing.T) {
		matches := h.Resolve("c")
		require.Len(t, matches, 2)
	})

	t.Run("by relative path", func(t *testing.T) {
		matches := h.Resolve("libs/c")
		require.Equal(t, []hierarchy.RepoID{1}, matches)
	})

	t.Run("by absolute path", func(t *testing.T) {
		matches := h.Resolve("/work/app/vendor/c")
		require.Equal(t, []hierarchy.RepoID{2}, matches)
	})

	t.Run("unknown ref", func(t *testing.T) {
		require.Empty(t, h.Resolve("nope"))
	})
}

func TestChildAt(t *testing.T) {
	h := sampleHierarchy()
	require.Equal(t, hierarchy.RepoID(1), h.ChildAt(0, "libs/c"))
	require.Equal(t, hierarchy.RepoID(-1), h.ChildAt(0, "missing"))
}

func TestAncestorPath(t *testing.T) {
	h := sampleHierarchy()
	require.Equal(t, []hierarchy.RepoID{0}, h.AncestorPath(1))
	require.Empty(t, h.AncestorPath(0))
}

func TestDisplayPath(t *testing.T) {
	h := sampleHierarchy()
	require.Equal(t, "app", h.DisplayPath(0))
	require.Equal(t, "libs/c", h.DisplayPath(1))
}
