package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	lockerrors "github.com/delabrcd/lockstep-rebase/internal/errors"
	"github.com/delabrcd/lockstep-rebase/internal/git"
	"github.com/delabrcd/lockstep-rebase/internal/tui"
)

// GatewayFactory opens a Gateway for a repository root
type GatewayFactory func(path string) (git.Gateway, error)

// Mapper builds a Hierarchy from a starting directory
type Mapper struct {
	openGateway GatewayFactory
	splog       *tui.Splog
}

// NewMapper creates a Mapper. splog may be nil to discover silently.
func NewMapper(openGateway GatewayFactory, splog *tui.Splog) *Mapper {
	return &Mapper{openGateway: openGateway, splog: splog}
}

// Discover locates the hierarchy root above startDir and maps the full
// tree of initialized submodules beneath it.
func (m *Mapper) Discover(ctx context.Context, startDir string) (*Hierarchy, error) {
	root, err := m.findHierarchyRoot(ctx, startDir)
	if err != nil {
		return nil, err
	}

	h := &Hierarchy{Root: 0}
	if err := m.addRepo(ctx, h, root, NoParent, 0); err != nil {
		return nil, err
	}
	m.computeOrder(h)
	return h, nil
}

// findHierarchyRoot walks upward from startDir: first to the enclosing
// repository root, then through any parent repositories that record the
// current root as a submodule. The highest such ancestor wins.
func (m *Mapper) findHierarchyRoot(ctx context.Context, startDir string) (string, error) {
	root, err := git.FindRepoRoot(startDir)
	if err != nil {
		return "", err
	}

	for {
		parentDir := filepath.Dir(root)
		if parentDir == root {
			return root, nil
		}
		parentRoot, err := git.FindRepoRoot(parentDir)
		if err != nil {
			if errors.Is(err, lockerrors.ErrNotAGitRepo) {
				return root, nil
			}
			return "", err
		}

		gw, err := m.openGateway(parentRoot)
		if err != nil {
			return "", err
		}
		entries, err := gw.SubmoduleEntries(ctx)
		if err != nil {
			return "", err
		}

		recorded := false
		for _, entry := range entries {
			if filepath.Join(parentRoot, entry.Path) == root {
				recorded = true
				break
			}
		}
		if !recorded {
			return root, nil
		}
		root = parentRoot
	}
}

// addRepo appends a node for repoPath and recurses into its submodules
func (m *Mapper) addRepo(ctx context.Context, h *Hierarchy, repoPath string, parent RepoID, depth int) error {
	for _, ancestor := range append(h.AncestorPathOf(parent), parent) {
		if ancestor == NoParent {
			continue
		}
		if h.Nodes[ancestor].AbsPath == repoPath {
			return fmt.Errorf("%w: %s references its ancestor", lockerrors.ErrCycleDetected, repoPath)
		}
	}

	gw, err := m.openGateway(repoPath)
	if err != nil {
		return err
	}

	head, err := gw.RevParse(ctx, "HEAD")
	if err != nil {
		return err
	}
	branch, err := gw.CurrentBranch(ctx)
	if err != nil {
		if !errors.Is(err, lockerrors.ErrDetachedHead) {
			return err
		}
		branch = ""
	}

	rootPath := repoPath
	if len(h.Nodes) > 0 {
		rootPath = h.Nodes[h.Root].AbsPath
	}
	relPath := ""
	if len(h.Nodes) > 0 {
		relPath, err = filepath.Rel(rootPath, repoPath)
		if err != nil {
			return err
		}
	}

	id := RepoID(len(h.Nodes))
	h.Nodes = append(h.Nodes, RepoInfo{
		AbsPath:       repoPath,
		RelPath:       relPath,
		Name:          filepath.Base(repoPath),
		Parent:        parent,
		Depth:         depth,
		HeadBefore:    head,
		CurrentBranch: branch,
	})

	entries, err := gw.SubmoduleEntries(ctx)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	for _, entry := range entries {
		childPath := filepath.Join(repoPath, entry.Path)
		if !isPathWithin(repoPath, childPath) {
			return fmt.Errorf("%w: submodule path %s escapes %s",
				lockerrors.ErrCycleDetected, entry.Path, repoPath)
		}
		if !git.IsRepoRoot(childPath) {
			childRel, relErr := filepath.Rel(h.Nodes[h.Root].AbsPath, childPath)
			if relErr != nil {
				childRel = childPath
			}
			h.Uninitialized = append(h.Uninitialized, childRel)
			if m.splog != nil {
				m.splog.Warn("Submodule %s is not initialized; skipping", childRel)
			}
			continue
		}

		if err := m.addRepo(ctx, h, childPath, id, depth+1); err != nil {
			return err
		}
		childID := RepoID(len(h.Nodes) - 1)
		h.Nodes[id].Submodules = append(h.Nodes[id].Submodules, SubmoduleLink{
			Parent:       id,
			Child:        childID,
			PathInParent: entry.Path,
			RecordedSha:  entry.RecordedSha,
		})
	}
	return nil
}

// AncestorPathOf is AncestorPath tolerating NoParent
func (h *Hierarchy) AncestorPathOf(id RepoID) []RepoID {
	if id == NoParent {
		return nil
	}
	return h.AncestorPath(id)
}

// computeOrder fills h.Order with a post-order traversal: every child
// strictly before any of its ancestors, siblings by relative path.
func (m *Mapper) computeOrder(h *Hierarchy) {
	h.Order = h.Order[:0]
	var visit func(id RepoID)
	visit = func(id RepoID) {
		links := append([]SubmoduleLink(nil), h.Nodes[id].Submodules...)
		sort.Slice(links, func(i, j int) bool {
			return h.Nodes[links[i].Child].RelPath < h.Nodes[links[j].Child].RelPath
		})
		for _, link := range links {
			visit(link.Child)
		}
		h.Order = append(h.Order, id)
	}
	visit(h.Root)
}
