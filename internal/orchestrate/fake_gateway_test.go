package orchestrate_test

import (
	"context"
	"fmt"
	"strings"

	lockerrors "github.com/delabrcd/lockstep-rebase/internal/errors"
	"github.com/delabrcd/lockstep-rebase/internal/git"
)

// rebaseStep scripts one RebaseStart/RebaseContinue transition of a fake
// repository's rebase.
type rebaseStep struct {
	outcome   git.RebaseOutcome
	conflicts git.ConflictSet // index state when the step stops
	replayed  []string        // commits landed on HEAD so far (oldest first)
	rewritten []string        // final source commits; applied when the step completes
	err       error
}

// fakeGateway is a pure in-memory Gateway. Branch tips, submodule
// pointers, and rebase transitions are scripted by each test.
type fakeGateway struct {
	path    string
	current string
	clean   bool

	branches       map[string]string            // branch -> tip sha
	remoteBranches map[string]string            // branch -> tip sha on the remote
	pointers       map[string]map[string]string // ref -> submodule path -> sha
	subjects       map[string]string            // sha -> commit subject

	// commits holds rev-list --reverse target..source answers keyed
	// "target..source"; rewritten by completing rebase steps
	commits map[string][]string

	script           []rebaseStep
	rebasing         bool
	rebaseKey        string // "target..source" of the active rebase
	conflicts        git.ConflictSet
	replayed         []string
	staged           []string
	writtenPointers  map[string]string
	backups          []git.BackupBranch
	pushed           []string
	aborted          int
	mutations        int
	failCreateBackup bool
}

func newFakeGateway(path string) *fakeGateway {
	return &fakeGateway{
		path:            path,
		clean:           true,
		branches:        map[string]string{},
		remoteBranches:  map[string]string{},
		pointers:        map[string]map[string]string{},
		subjects:        map[string]string{},
		commits:         map[string][]string{},
		writtenPointers: map[string]string{},
	}
}

func (f *fakeGateway) setPointer(ref, path, sha string) {
	if f.pointers[ref] == nil {
		f.pointers[ref] = map[string]string{}
	}
	f.pointers[ref][path] = sha
}

func (f *fakeGateway) Path() string { return f.path }

func (f *fakeGateway) CurrentBranch(ctx context.Context) (string, error) {
	if f.current == "" {
		return "", lockerrors.ErrDetachedHead
	}
	return f.current, nil
}

func (f *fakeGateway) IsClean(ctx context.Context) (bool, error) {
	return f.clean && !f.rebasing, nil
}

func (f *fakeGateway) BranchExistsLocal(ctx context.Context, name string) (bool, error) {
	_, ok := f.branches[name]
	return ok, nil
}

func (f *fakeGateway) BranchExistsRemote(ctx context.Context, name, remote string) (bool, error) {
	_, ok := f.remoteBranches[name]
	return ok, nil
}

func (f *fakeGateway) CreateLocalFromRemote(ctx context.Context, name, remote string) error {
	f.mutations++
	tip, ok := f.remoteBranches[name]
	if !ok {
		return lockerrors.NewBranchMissingError(f.path, name)
	}
	if _, exists := f.branches[name]; exists {
		return fmt.Errorf("local branch %s already exists", name)
	}
	f.branches[name] = tip
	return nil
}

func (f *fakeGateway) Checkout(ctx context.Context, branch string) error {
	f.mutations++
	if _, ok := f.branches[branch]; !ok {
		return lockerrors.NewBranchMissingError(f.path, branch)
	}
	f.current = branch
	return nil
}

func (f *fakeGateway) RevParse(ctx context.Context, ref string) (string, error) {
	if sha, ok := f.branches[ref]; ok {
		return sha, nil
	}
	return "", lockerrors.NewBranchMissingError(f.path, ref)
}

func (f *fakeGateway) CommitsBetween(ctx context.Context, target, source string) ([]string, error) {
	if source == "HEAD" {
		return append([]string(nil), f.replayed...), nil
	}
	key := target + ".." + source
	return append([]string(nil), f.commits[key]...), nil
}

func (f *fakeGateway) CommitSubject(ctx context.Context, sha string) (string, error) {
	if subject, ok := f.subjects[sha]; ok {
		return subject, nil
	}
	return "", fmt.Errorf("unknown commit %s", sha)
}

func (f *fakeGateway) BranchesContaining(ctx context.Context, sha string) ([]string, error) {
	var out []string
	for branch, tip := range f.branches {
		if tip == sha {
			out = append(out, branch)
		}
	}
	return out, nil
}

func (f *fakeGateway) DeleteBranch(ctx context.Context, name string, force bool) error {
	f.mutations++
	delete(f.branches, name)
	for i, b := range f.backups {
		if b.Name == name {
			f.backups = append(f.backups[:i], f.backups[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeGateway) ForceUpdateBranch(ctx context.Context, name, to string) error {
	f.mutations++
	f.branches[name] = to
	return nil
}

func (f *fakeGateway) SubmoduleEntries(ctx context.Context) ([]git.SubmoduleEntry, error) {
	var out []git.SubmoduleEntry
	for path, sha := range f.pointers["HEAD"] {
		out = append(out, git.SubmoduleEntry{Path: path, RecordedSha: sha})
	}
	return out, nil
}

func (f *fakeGateway) SubmodulePointerAt(ctx context.Context, ref, path string) (string, error) {
	return f.pointers[ref][path], nil
}

func (f *fakeGateway) SubmodulePointerChanged(ctx context.Context, target, source, path string) (bool, error) {
	return f.pointers[target][path] != f.pointers[source][path], nil
}

func (f *fakeGateway) applyStep(step rebaseStep) (git.RebaseOutcome, error) {
	if step.err != nil {
		f.rebasing = false
		return git.RebaseStopped, step.err
	}
	f.replayed = append([]string(nil), step.replayed...)
	if step.outcome == git.RebaseStopped {
		f.conflicts = step.conflicts
		return git.RebaseStopped, nil
	}
	f.rebasing = false
	f.conflicts = git.ConflictSet{}
	if step.rewritten != nil {
		f.commits[f.rebaseKey] = step.rewritten
		if len(step.rewritten) > 0 {
			f.branches[strings.Split(f.rebaseKey, "..")[1]] = step.rewritten[len(step.rewritten)-1]
		}
	}
	return git.RebaseCompleted, nil
}

func (f *fakeGateway) RebaseStart(ctx context.Context, source, target string) (git.RebaseOutcome, error) {
	f.mutations++
	if len(f.script) == 0 {
		return git.RebaseStopped, fmt.Errorf("no scripted rebase steps in %s", f.path)
	}
	f.rebasing = true
	f.rebaseKey = target + ".." + source
	step := f.script[0]
	f.script = f.script[1:]
	return f.applyStep(step)
}

func (f *fakeGateway) RebaseContinue(ctx context.Context) (git.RebaseOutcome, error) {
	f.mutations++
	if !f.rebasing {
		return git.RebaseStopped, fmt.Errorf("no rebase in progress in %s", f.path)
	}
	if !f.conflicts.IsEmpty() {
		return git.RebaseStopped, fmt.Errorf("cannot continue with unmerged entries in %s", f.path)
	}
	if len(f.script) == 0 {
		return git.RebaseStopped, fmt.Errorf("no scripted rebase steps left in %s", f.path)
	}
	step := f.script[0]
	f.script = f.script[1:]
	return f.applyStep(step)
}

func (f *fakeGateway) RebaseAbort(ctx context.Context) error {
	f.mutations++
	f.aborted++
	f.rebasing = false
	f.conflicts = git.ConflictSet{}
	return nil
}

func (f *fakeGateway) RebaseInProgress(ctx context.Context) (bool, error) {
	return f.rebasing, nil
}

func (f *fakeGateway) IndexConflicts(ctx context.Context) (git.ConflictSet, error) {
	return f.conflicts, nil
}

func (f *fakeGateway) StagePath(ctx context.Context, path string) error {
	f.mutations++
	f.staged = append(f.staged, path)
	return nil
}

// resolveFiles simulates the human resolving and staging file conflicts
func (f *fakeGateway) resolveFiles() {
	f.staged = append(f.staged, f.conflicts.Files...)
	f.conflicts.Files = nil
}

func (f *fakeGateway) WriteSubmodulePointer(ctx context.Context, path, sha string) error {
	f.mutations++
	f.writtenPointers[path] = sha
	f.staged = append(f.staged, path)
	var remaining []git.SubmoduleConflict
	for _, sub := range f.conflicts.Submodules {
		if sub.Path != path {
			remaining = append(remaining, sub)
		}
	}
	f.conflicts.Submodules = remaining
	return nil
}

func (f *fakeGateway) StagedPaths(ctx context.Context) ([]string, error) {
	return append([]string(nil), f.staged...), nil
}

func (f *fakeGateway) CreateBackupBranch(ctx context.Context, name, at string) error {
	f.mutations++
	if f.failCreateBackup {
		return fmt.Errorf("cannot create backup in %s", f.path)
	}
	if _, exists := f.branches[name]; exists {
		return fmt.Errorf("%w: %s", lockerrors.ErrBackupExists, name)
	}
	f.branches[name] = at
	original, session, ok := git.ParseBackupName(name)
	if !ok {
		return fmt.Errorf("bad backup name %s", name)
	}
	f.backups = append(f.backups, git.BackupBranch{
		Name:           name,
		OriginalBranch: original,
		SessionID:      session,
		Tip:            at,
	})
	return nil
}

func (f *fakeGateway) ListBackupBranches(ctx context.Context) ([]git.BackupBranch, error) {
	return append([]git.BackupBranch(nil), f.backups...), nil
}

func (f *fakeGateway) Fetch(ctx context.Context, remote string) error {
	return nil
}

func (f *fakeGateway) AheadBehind(ctx context.Context, branch, remote string) (int, int, error) {
	return 0, 0, nil
}

func (f *fakeGateway) PushWithLease(ctx context.Context, branch, remote string) error {
	f.mutations++
	f.pushed = append(f.pushed, branch)
	return nil
}
