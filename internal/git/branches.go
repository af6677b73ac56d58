package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	lockerrors "github.com/delabrcd/lockstep-rebase/internal/errors"
)

// CurrentBranch returns the checked-out branch name, or ErrDetachedHead
func (g *realGateway) CurrentBranch(ctx context.Context) (string, error) {
	name, err := g.runner.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if name == "HEAD" {
		return "", lockerrors.ErrDetachedHead
	}
	return name, nil
}

// IsClean reports whether the worktree has no staged or unstaged changes
// (untracked files ignored) and no rebase in progress. Submodule state is
// ignored entirely: a parent legitimately holds rebased child worktrees
// whose commits drift from the recorded gitlinks, and git's own rebase
// precondition ignores them the same way.
func (g *realGateway) IsClean(ctx context.Context) (bool, error) {
	inProgress, err := g.RebaseInProgress(ctx)
	if err != nil {
		return false, err
	}
	if inProgress {
		return false, nil
	}

	output, err := g.runner.RunRaw(ctx, "status", "--porcelain", "--ignore-submodules=all")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(output, "\n") {
		if line == "" || strings.HasPrefix(line, "??") {
			continue
		}
		return false, nil
	}
	return true, nil
}

// BranchExistsLocal checks for a local head with the given full name
func (g *realGateway) BranchExistsLocal(ctx context.Context, name string) (bool, error) {
	repo, err := g.open()
	if err != nil {
		return false, err
	}
	_, err = repo.Reference(plumbing.NewBranchReferenceName(name), false)
	if err == plumbing.ErrReferenceNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// BranchExistsRemote checks for a remote-tracking ref <remote>/<name>
func (g *realGateway) BranchExistsRemote(ctx context.Context, name, remote string) (bool, error) {
	repo, err := g.open()
	if err != nil {
		return false, err
	}
	_, err = repo.Reference(plumbing.NewRemoteReferenceName(remote, name), false)
	if err == plumbing.ErrReferenceNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateLocalFromRemote creates a local branch at the remote-tracking tip.
// Fails if the local branch already exists.
func (g *realGateway) CreateLocalFromRemote(ctx context.Context, name, remote string) error {
	exists, err := g.BranchExistsLocal(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("local branch %s already exists in %s", name, g.path)
	}
	_, err = g.runner.Run(ctx, "branch", "--track", name, remote+"/"+name)
	return err
}

// Checkout checks out a branch. The worktree must be clean.
func (g *realGateway) Checkout(ctx context.Context, branch string) error {
	clean, err := g.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return fmt.Errorf("%w: %s", lockerrors.ErrDirtyWorktree, g.path)
	}
	_, err = g.runner.Run(ctx, "checkout", branch)
	return err
}

// RevParse resolves a ref to a full commit SHA
func (g *realGateway) RevParse(ctx context.Context, ref string) (string, error) {
	sha, err := g.runner.Run(ctx, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", lockerrors.NewBranchMissingError(g.path, ref)
	}
	return sha, nil
}

// CommitsBetween returns the commits the rebase will replay, oldest first
func (g *realGateway) CommitsBetween(ctx context.Context, target, source string) ([]string, error) {
	return g.runner.RunLines(ctx, "rev-list", "--reverse", target+".."+source)
}

// CommitSubject returns the one-line subject of a commit
func (g *realGateway) CommitSubject(ctx context.Context, sha string) (string, error) {
	return g.runner.Run(ctx, "show", "-s", "--format=%s", sha)
}

// BranchesContaining returns the local branches whose history contains sha
func (g *realGateway) BranchesContaining(ctx context.Context, sha string) ([]string, error) {
	return g.runner.RunLines(ctx, "branch", "--format=%(refname:short)", "--contains", sha)
}

// DeleteBranch deletes a local branch
func (g *realGateway) DeleteBranch(ctx context.Context, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := g.runner.Run(ctx, "branch", flag, name)
	return err
}

// ForceUpdateBranch moves a branch ref to the given commit, creating it if
// needed. When the branch is checked out, the worktree is reset to match.
func (g *realGateway) ForceUpdateBranch(ctx context.Context, name, to string) error {
	current, err := g.CurrentBranch(ctx)
	if err == nil && current == name {
		_, err = g.runner.Run(ctx, "reset", "--hard", to)
		return err
	}
	_, err = g.runner.Run(ctx, "branch", "-f", name, to)
	return err
}

// Fetch updates remote-tracking refs, pruning stale ones
func (g *realGateway) Fetch(ctx context.Context, remote string) error {
	_, err := g.runner.Run(ctx, "fetch", "--prune", remote)
	return err
}

// AheadBehind returns how many commits branch is ahead of and behind its
// remote counterpart. Returns (0, 0) when the remote ref does not exist.
func (g *realGateway) AheadBehind(ctx context.Context, branch, remote string) (int, int, error) {
	exists, err := g.BranchExistsRemote(ctx, branch, remote)
	if err != nil || !exists {
		return 0, 0, err
	}
	output, err := g.runner.Run(ctx, "rev-list", "--left-right", "--count",
		remote+"/"+branch+"..."+branch)
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(output)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output: %q", output)
	}
	behind, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, err
	}
	ahead, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, err
	}
	return ahead, behind, nil
}

// PushWithLease force-pushes a branch guarded by --force-with-lease
func (g *realGateway) PushWithLease(ctx context.Context, branch, remote string) error {
	_, err := g.runner.Run(ctx, "push", "--force-with-lease", remote, branch)
	return err
}
