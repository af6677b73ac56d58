package git

import "context"

// RebaseOutcome represents the result of starting or continuing a rebase
type RebaseOutcome int

const (
	// RebaseCompleted indicates the rebase finished and the branch was rewritten
	RebaseCompleted RebaseOutcome = iota
	// RebaseStopped indicates the rebase paused on a conflict
	RebaseStopped
)

// SubmoduleEntry is a gitlink recorded in the committed tree
type SubmoduleEntry struct {
	Path        string
	RecordedSha string
}

// SubmoduleConflict is an unmerged gitlink entry at a rebase stop.
// OursSha is the stage-2 (target side) pointer, TheirsSha the stage-3
// (replayed feature commit) pointer. Either may be empty when the entry
// was added or deleted on one side.
type SubmoduleConflict struct {
	Path      string
	OursSha   string
	TheirsSha string
}

// ConflictSet is the classified contents of the unmerged index
type ConflictSet struct {
	Submodules []SubmoduleConflict
	Files      []string
}

// IsEmpty returns true when there are no unmerged entries
func (c ConflictSet) IsEmpty() bool {
	return len(c.Submodules) == 0 && len(c.Files) == 0
}

// BackupBranch is a parsed backup ref
type BackupBranch struct {
	Name           string
	OriginalBranch string
	SessionID      string
	Tip            string
}

// Gateway is the narrow set of git operations the core needs against one
// repository. All operations invoke git against the repo's worktree and
// must not run concurrently for the same repo.
type Gateway interface {
	// Path returns the absolute path of the repository worktree
	Path() string

	// Branches and refs
	CurrentBranch(ctx context.Context) (string, error)
	IsClean(ctx context.Context) (bool, error)
	BranchExistsLocal(ctx context.Context, name string) (bool, error)
	BranchExistsRemote(ctx context.Context, name, remote string) (bool, error)
	CreateLocalFromRemote(ctx context.Context, name, remote string) error
	Checkout(ctx context.Context, branch string) error
	RevParse(ctx context.Context, ref string) (string, error)
	CommitsBetween(ctx context.Context, target, source string) ([]string, error)
	CommitSubject(ctx context.Context, sha string) (string, error)
	BranchesContaining(ctx context.Context, sha string) ([]string, error)
	DeleteBranch(ctx context.Context, name string, force bool) error
	ForceUpdateBranch(ctx context.Context, name, to string) error

	// Submodules
	SubmoduleEntries(ctx context.Context) ([]SubmoduleEntry, error)
	SubmodulePointerAt(ctx context.Context, ref, path string) (string, error)
	SubmodulePointerChanged(ctx context.Context, target, source, path string) (bool, error)

	// Rebase
	RebaseStart(ctx context.Context, source, target string) (RebaseOutcome, error)
	RebaseContinue(ctx context.Context) (RebaseOutcome, error)
	RebaseAbort(ctx context.Context) error
	RebaseInProgress(ctx context.Context) (bool, error)

	// Index at a rebase stop
	IndexConflicts(ctx context.Context) (ConflictSet, error)
	StagePath(ctx context.Context, path string) error
	WriteSubmodulePointer(ctx context.Context, path, sha string) error
	StagedPaths(ctx context.Context) ([]string, error)

	// Backups
	CreateBackupBranch(ctx context.Context, name, at string) error
	ListBackupBranches(ctx context.Context) ([]BackupBranch, error)

	// Remote
	Fetch(ctx context.Context, remote string) error
	AheadBehind(ctx context.Context, branch, remote string) (ahead, behind int, err error)
	PushWithLease(ctx context.Context, branch, remote string) error
}
