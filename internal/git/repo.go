package git

import (
	"fmt"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"

	lockerrors "github.com/delabrcd/lockstep-rebase/internal/errors"
)

// FindRepoRoot returns the root directory of the git repository containing dir
func FindRepoRoot(dir string) (string, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s", lockerrors.ErrNotAGitRepo, dir)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	return worktree.Filesystem.Root(), nil
}

// IsRepoRoot reports whether dir itself carries a git marker (.git file or directory)
func IsRepoRoot(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// realGateway implements Gateway by invoking git against one worktree,
// with go-git for read-only ref enumeration.
type realGateway struct {
	path   string
	runner *CommandRunner
}

// NewGateway creates a Gateway for the repository rooted at path.
// path must be a repository root (its .git marker is present).
func NewGateway(path string) (Gateway, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if !IsRepoRoot(abs) {
		return nil, fmt.Errorf("%w: %s", lockerrors.ErrNotAGitRepo, abs)
	}
	return &realGateway{path: abs, runner: NewCommandRunner(abs)}, nil
}

func (g *realGateway) Path() string {
	return g.path
}

// open returns a go-git handle for read-only ref access
func (g *realGateway) open() (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(g.path, &gogit.PlainOpenOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lockerrors.ErrNotAGitRepo, g.path)
	}
	return repo, nil
}
