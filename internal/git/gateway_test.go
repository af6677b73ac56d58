package git_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	lockerrors "github.com/delabrcd/lockstep-rebase/internal/errors"
	"github.com/delabrcd/lockstep-rebase/internal/git"
	"github.com/delabrcd/lockstep-rebase/testhelpers"
)

func newTestRepo(t *testing.T) *testhelpers.GitRepo {
	t.Helper()
	repo, err := testhelpers.NewGitRepo(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, repo.CommitFile("README.md", "hello", "initial"))
	return repo
}

func openGateway(t *testing.T, repo *testhelpers.GitRepo) git.Gateway {
	t.Helper()
	gw, err := git.NewGateway(repo.Dir)
	require.NoError(t, err)
	return gw
}

func TestNewGatewayRejectsNonRepo(t *testing.T) {
	_, err := git.NewGateway(t.TempDir())
	require.ErrorIs(t, err, lockerrors.ErrNotAGitRepo)
}

func TestBranchOperations(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	gw := openGateway(t, repo)

	t.Run("current branch", func(t *testing.T) {
		branch, err := gw.CurrentBranch(ctx)
		require.NoError(t, err)
		require.Equal(t, "main", branch)
	})

	t.Run("branch existence", func(t *testing.T) {
		exists, err := gw.BranchExistsLocal(ctx, "main")
		require.NoError(t, err)
		require.True(t, exists)

		exists, err = gw.BranchExistsLocal(ctx, "nope")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("rev-parse", func(t *testing.T) {
		head, err := repo.Head()
		require.NoError(t, err)

		sha, err := gw.RevParse(ctx, "main")
		require.NoError(t, err)
		require.Equal(t, head, sha)
		require.Len(t, sha, 40)

		_, err = gw.RevParse(ctx, "missing")
		require.ErrorIs(t, err, lockerrors.ErrBranchMissing)
	})

	t.Run("detached head", func(t *testing.T) {
		head, err := repo.Head()
		require.NoError(t, err)
		_, err = repo.Git("checkout", "--quiet", head)
		require.NoError(t, err)

		_, err = gw.CurrentBranch(ctx)
		require.ErrorIs(t, err, lockerrors.ErrDetachedHead)

		require.NoError(t, gw.Checkout(ctx, "main"))
	})
}

func TestCommitsBetweenReplayOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	gw := openGateway(t, repo)

	require.NoError(t, repo.CreateAndCheckoutBranch("feat"))
	require.NoError(t, repo.CommitFile("a.txt", "1", "first"))
	first, err := repo.Head()
	require.NoError(t, err)
	require.NoError(t, repo.CommitFile("b.txt", "2", "second"))
	second, err := repo.Head()
	require.NoError(t, err)

	commits, err := gw.CommitsBetween(ctx, "main", "feat")
	require.NoError(t, err)
	require.Equal(t, []string{first, second}, commits)

	// Nothing between a branch and itself
	commits, err = gw.CommitsBetween(ctx, "feat", "feat")
	require.NoError(t, err)
	require.Empty(t, commits)
}

func TestIsClean(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	gw := openGateway(t, repo)

	clean, err := gw.IsClean(ctx)
	require.NoError(t, err)
	require.True(t, clean)

	// Untracked files do not block
	require.NoError(t, repo.WriteFile("scratch.txt", "x"))
	clean, err = gw.IsClean(ctx)
	require.NoError(t, err)
	require.True(t, clean)

	// Modified tracked files do
	require.NoError(t, repo.WriteFile("README.md", "changed"))
	clean, err = gw.IsClean(ctx)
	require.NoError(t, err)
	require.False(t, clean)

	require.Error(t, gw.Checkout(ctx, "main"))
}

func TestBackupBranches(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	gw := openGateway(t, repo)

	head, err := repo.Head()
	require.NoError(t, err)

	name := git.MakeBackupName("main", "20250314T150926-deadbeef")
	require.NoError(t, gw.CreateBackupBranch(ctx, name, head))

	// Collision on session id is refused
	err = gw.CreateBackupBranch(ctx, name, head)
	require.ErrorIs(t, err, lockerrors.ErrBackupExists)

	backups, err := gw.ListBackupBranches(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	require.Equal(t, name, backups[0].Name)
	require.Equal(t, "main", backups[0].OriginalBranch)
	require.Equal(t, "20250314T150926-deadbeef", backups[0].SessionID)
	require.Equal(t, head, backups[0].Tip)

	require.NoError(t, gw.DeleteBranch(ctx, name, true))
	backups, err = gw.ListBackupBranches(ctx)
	require.NoError(t, err)
	require.Empty(t, backups)
}

func TestForceUpdateBranch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	gw := openGateway(t, repo)

	base, err := repo.Head()
	require.NoError(t, err)
	require.NoError(t, repo.CreateAndCheckoutBranch("feat"))
	require.NoError(t, repo.CommitFile("a.txt", "1", "feature"))
	require.NoError(t, repo.CheckoutBranch("main"))

	// Move a non-checked-out branch
	require.NoError(t, gw.ForceUpdateBranch(ctx, "feat", base))
	sha, err := gw.RevParse(ctx, "feat")
	require.NoError(t, err)
	require.Equal(t, base, sha)

	// Move the checked-out branch: worktree follows
	require.NoError(t, repo.CommitFile("b.txt", "2", "main work"))
	require.NoError(t, gw.ForceUpdateBranch(ctx, "main", base))
	sha, err = gw.RevParse(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, base, sha)
}

func TestSubmoduleReads(t *testing.T) {
	ctx := context.Background()

	child, err := testhelpers.NewGitRepo(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, child.CommitFile("c.txt", "0", "c0"))
	c0, err := child.Head()
	require.NoError(t, err)

	root := newTestRepo(t)
	sub, err := root.AddSubmodule(child.Dir, "libs/c")
	require.NoError(t, err)

	gw := openGateway(t, root)

	entries, err := gw.SubmoduleEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "libs/c", entries[0].Path)
	require.Equal(t, c0, entries[0].RecordedSha)

	sha, err := gw.SubmodulePointerAt(ctx, "HEAD", "libs/c")
	require.NoError(t, err)
	require.Equal(t, c0, sha)

	// Bump the pointer on a branch and diff it against main
	require.NoError(t, root.CreateAndCheckoutBranch("feat"))
	require.NoError(t, sub.CommitFile("f.txt", "1", "c feature"))
	c1, err := sub.Head()
	require.NoError(t, err)
	require.NoError(t, root.BumpSubmodule("libs/c", c1, "bump child"))

	changed, err := gw.SubmodulePointerChanged(ctx, "main", "feat", "libs/c")
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = gw.SubmodulePointerChanged(ctx, "main", "main", "libs/c")
	require.NoError(t, err)
	require.False(t, changed)

	// A repo without submodules reports none
	plain := newTestRepo(t)
	plainGw := openGateway(t, plain)
	entries, err = plainGw.SubmoduleEntries(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestFileConflictRebase(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	gw := openGateway(t, repo)

	require.NoError(t, repo.CommitFile("t.txt", "base\n", "add t"))

	require.NoError(t, repo.CreateAndCheckoutBranch("feat"))
	require.NoError(t, repo.CommitFile("t.txt", "feature\n", "feature edit"))

	require.NoError(t, repo.CheckoutBranch("main"))
	require.NoError(t, repo.CommitFile("t.txt", "mainline\n", "main edit"))

	outcome, err := gw.RebaseStart(ctx, "feat", "main")
	require.NoError(t, err)
	require.Equal(t, git.RebaseStopped, outcome)

	inProgress, err := gw.RebaseInProgress(ctx)
	require.NoError(t, err)
	require.True(t, inProgress)

	conflicts, err := gw.IndexConflicts(ctx)
	require.NoError(t, err)
	require.Empty(t, conflicts.Submodules)
	require.Equal(t, []string{"t.txt"}, conflicts.Files)

	// Resolve, stage, continue
	require.NoError(t, repo.WriteFile("t.txt", "merged\n"))
	require.NoError(t, gw.StagePath(ctx, "t.txt"))

	staged, err := gw.StagedPaths(ctx)
	require.NoError(t, err)
	require.Contains(t, staged, "t.txt")

	outcome, err = gw.RebaseContinue(ctx)
	require.NoError(t, err)
	require.Equal(t, git.RebaseCompleted, outcome)

	inProgress, err = gw.RebaseInProgress(ctx)
	require.NoError(t, err)
	require.False(t, inProgress)
}

func TestSubmodulePointerConflictRebase(t *testing.T) {
	ctx := context.Background()

	child, err := testhelpers.NewGitRepo(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, child.CommitFile("c.txt", "0", "c0"))
	c0, err := child.Head()
	require.NoError(t, err)

	root := newTestRepo(t)
	sub, err := root.AddSubmodule(child.Dir, "libs/c")
	require.NoError(t, err)

	// main bumps the pointer to c1
	require.NoError(t, sub.CommitFile("main-side.txt", "1", "c1"))
	c1, err := sub.Head()
	require.NoError(t, err)
	require.NoError(t, root.BumpSubmodule("libs/c", c1, "bump child to c1"))
	mainTip, err := root.Head()
	require.NoError(t, err)

	// feat branches from before the bump and records c2
	_, err = root.Git("checkout", "-b", "feat", mainTip+"~1")
	require.NoError(t, err)
	_, err = sub.Git("checkout", "-b", "featc", c0)
	require.NoError(t, err)
	require.NoError(t, sub.CommitFile("feat-side.txt", "2", "c2"))
	c2, err := sub.Head()
	require.NoError(t, err)
	require.NoError(t, root.BumpSubmodule("libs/c", c2, "bump child to c2"))

	gw := openGateway(t, root)

	outcome, err := gw.RebaseStart(ctx, "feat", "main")
	require.NoError(t, err)
	require.Equal(t, git.RebaseStopped, outcome)

	conflicts, err := gw.IndexConflicts(ctx)
	require.NoError(t, err)
	require.Empty(t, conflicts.Files)
	require.Len(t, conflicts.Submodules, 1)
	require.Equal(t, "libs/c", conflicts.Submodules[0].Path)
	require.Equal(t, c1, conflicts.Submodules[0].OursSha)
	require.Equal(t, c2, conflicts.Submodules[0].TheirsSha)

	// Stage the rewritten pointer and continue
	require.NoError(t, gw.WriteSubmodulePointer(ctx, "libs/c", c2))

	conflicts, err = gw.IndexConflicts(ctx)
	require.NoError(t, err)
	require.True(t, conflicts.IsEmpty())

	outcome, err = gw.RebaseContinue(ctx)
	require.NoError(t, err)
	require.Equal(t, git.RebaseCompleted, outcome)

	sha, err := gw.SubmodulePointerAt(ctx, "feat", "libs/c")
	require.NoError(t, err)
	require.Equal(t, c2, sha)
}

func TestRepoRootDiscovery(t *testing.T) {
	repo := newTestRepo(t)

	nested := filepath.Join(repo.Dir, "some", "deep", "dir")
	require.NoError(t, repo.WriteFile(filepath.Join("some", "deep", "dir", "f.txt"), "x"))

	root, err := git.FindRepoRoot(nested)
	require.NoError(t, err)
	wantRoot, err := filepath.EvalSymlinks(repo.Dir)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	require.Equal(t, wantRoot, gotRoot)

	_, err = git.FindRepoRoot(t.TempDir())
	require.ErrorIs(t, err, lockerrors.ErrNotAGitRepo)
}
