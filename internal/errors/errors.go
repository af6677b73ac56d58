// Package errors provides sentinel errors and custom error types for the
// lockstep-rebase application. Use errors.Is() and errors.As() to check for
// specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for environment and precondition failures
var (
	// ErrNotAGitRepo indicates that the starting directory is not inside a git repository
	ErrNotAGitRepo = errors.New("not a git repository")

	// ErrGitBinaryMissing indicates that no usable git binary was found on PATH
	ErrGitBinaryMissing = errors.New("git binary not found")

	// ErrDirtyWorktree indicates that a repository has uncommitted changes
	ErrDirtyWorktree = errors.New("dirty worktree")

	// ErrRebaseInProgress indicates that a rebase is already in progress
	ErrRebaseInProgress = errors.New("rebase in progress")

	// ErrBranchMissing indicates that a required branch does not exist
	ErrBranchMissing = errors.New("branch missing")

	// ErrAmbiguousRepoRef indicates that a repository reference matched more than one repo
	ErrAmbiguousRepoRef = errors.New("ambiguous repository reference")

	// ErrDetachedHead indicates that HEAD is not on a branch
	ErrDetachedHead = errors.New("detached HEAD")
)

// Sentinel errors for planning failures
var (
	// ErrNoEnabledTasks indicates that the plan contains nothing to do
	ErrNoEnabledTasks = errors.New("no enabled tasks")

	// ErrSubmoduleNotInitialized indicates an enabled task targets a submodule with no worktree
	ErrSubmoduleNotInitialized = errors.New("submodule not initialized")

	// ErrCycleDetected indicates a submodule referencing one of its ancestors
	ErrCycleDetected = errors.New("submodule cycle detected")
)

// Sentinel errors for execution failures
var (
	// ErrUnresolvableSubmoduleConflict indicates a submodule conflict with no tracked mapping
	ErrUnresolvableSubmoduleConflict = errors.New("unresolvable submodule conflict")

	// ErrBackupExists indicates that a backup ref for this session already exists
	ErrBackupExists = errors.New("backup branch already exists")

	// ErrSessionAborted indicates the session was interrupted by the user
	ErrSessionAborted = errors.New("session aborted")
)

// BranchMissingError reports a branch that could not be resolved in a repository
type BranchMissingError struct {
	RepoPath   string
	BranchName string
}

func (e *BranchMissingError) Error() string {
	return fmt.Sprintf("branch %s does not exist in %s", e.BranchName, e.RepoPath)
}

// Is returns true if the target error is ErrBranchMissing
func (e *BranchMissingError) Is(target error) bool {
	return target == ErrBranchMissing
}

// NewBranchMissingError creates a new BranchMissingError
func NewBranchMissingError(repoPath, branchName string) *BranchMissingError {
	return &BranchMissingError{RepoPath: repoPath, BranchName: branchName}
}

// AmbiguousRepoRefError reports a repo reference matching multiple repositories
type AmbiguousRepoRefError struct {
	Ref     string
	Matches []string
}

func (e *AmbiguousRepoRefError) Error() string {
	return fmt.Sprintf("repository reference %q matches multiple repositories: %s",
		e.Ref, strings.Join(e.Matches, ", "))
}

// Is returns true if the target error is ErrAmbiguousRepoRef
func (e *AmbiguousRepoRefError) Is(target error) bool {
	return target == ErrAmbiguousRepoRef
}

// NewAmbiguousRepoRefError creates a new AmbiguousRepoRefError
func NewAmbiguousRepoRefError(ref string, matches []string) *AmbiguousRepoRefError {
	return &AmbiguousRepoRefError{Ref: ref, Matches: matches}
}

// SubmoduleNotInitializedError reports an enabled task whose submodule worktree is absent
type SubmoduleNotInitializedError struct {
	ParentPath    string
	SubmodulePath string
}

func (e *SubmoduleNotInitializedError) Error() string {
	return fmt.Sprintf("submodule %s in %s is not initialized", e.SubmodulePath, e.ParentPath)
}

// Is returns true if the target error is ErrSubmoduleNotInitialized
func (e *SubmoduleNotInitializedError) Is(target error) bool {
	return target == ErrSubmoduleNotInitialized
}

// NewSubmoduleNotInitializedError creates a new SubmoduleNotInitializedError
func NewSubmoduleNotInitializedError(parentPath, submodulePath string) *SubmoduleNotInitializedError {
	return &SubmoduleNotInitializedError{ParentPath: parentPath, SubmodulePath: submodulePath}
}

// UnresolvableSubmoduleConflictError reports a submodule pointer conflict that no
// tracked commit map could resolve. SearchedRepos lists the repositories of every
// session tracker consulted.
type UnresolvableSubmoduleConflictError struct {
	RepoPath      string
	SubmodulePath string
	OursSha       string
	TheirsSha     string
	SearchedRepos []string
}

func (e *UnresolvableSubmoduleConflictError) Error() string {
	msg := fmt.Sprintf("unresolvable submodule conflict at %s in %s (ours %.8s, theirs %.8s)",
		e.SubmodulePath, e.RepoPath, e.OursSha, e.TheirsSha)
	if len(e.SearchedRepos) > 0 {
		msg += fmt.Sprintf("; searched trackers: %s", strings.Join(e.SearchedRepos, ", "))
	}
	return msg
}

// Is returns true if the target error is ErrUnresolvableSubmoduleConflict
func (e *UnresolvableSubmoduleConflictError) Is(target error) bool {
	return target == ErrUnresolvableSubmoduleConflict
}

// NewUnresolvableSubmoduleConflictError creates a new UnresolvableSubmoduleConflictError
func NewUnresolvableSubmoduleConflictError(repoPath, submodulePath, ours, theirs string, searched []string) *UnresolvableSubmoduleConflictError {
	return &UnresolvableSubmoduleConflictError{
		RepoPath:      repoPath,
		SubmodulePath: submodulePath,
		OursSha:       ours,
		TheirsSha:     theirs,
		SearchedRepos: searched,
	}
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}

// RestoreError reports a per-repo failure during a best-effort restore
type RestoreError struct {
	RepoPath string
	Branch   string
	Err      error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore failed for %s in %s: %v", e.Branch, e.RepoPath, e.Err)
}

func (e *RestoreError) Unwrap() error {
	return e.Err
}

// NewRestoreError creates a new RestoreError
func NewRestoreError(repoPath, branch string, err error) *RestoreError {
	return &RestoreError{RepoPath: repoPath, Branch: branch, Err: err}
}
