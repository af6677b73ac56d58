// Package testhelpers builds real git repositories, including submodule
// hierarchies, for integration-style tests.
package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitRepo represents a git repository created for a test
type GitRepo struct {
	Dir string
}

// NewGitRepo initializes a new repository in dir with pinned config
func NewGitRepo(dir string) (*GitRepo, error) {
	cmd := exec.Command("git",
		"-c", "init.defaultBranch=main",
		"-c", "core.autocrlf=false",
		"init", dir, "-b", "main")
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to init repo: %w", err)
	}

	repo := &GitRepo{Dir: dir}
	for _, kv := range [][2]string{
		{"user.name", "Test User"},
		{"user.email", "test@example.com"},
		{"commit.gpgsign", "false"},
		{"protocol.file.allow", "always"},
	} {
		if _, err := repo.Git("config", kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

// OpenGitRepo wraps an existing repository directory (e.g. a submodule
// worktree created by AddSubmodule)
func OpenGitRepo(dir string) *GitRepo {
	return &GitRepo{Dir: dir}
}

// Git runs a git command in the repository and returns trimmed stdout
func (r *GitRepo) Git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null", "GIT_EDITOR=true")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %v: %w\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out)), nil
}

// WriteFile writes a file inside the worktree
func (r *GitRepo) WriteFile(name, content string) error {
	path := filepath.Join(r.Dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// CommitFile writes a file, stages it, and commits
func (r *GitRepo) CommitFile(name, content, message string) error {
	if err := r.WriteFile(name, content); err != nil {
		return err
	}
	if _, err := r.Git("add", "--", name); err != nil {
		return err
	}
	_, err := r.Git("commit", "-m", message)
	return err
}

// CommitAll stages everything and commits
func (r *GitRepo) CommitAll(message string) error {
	if _, err := r.Git("add", "-A"); err != nil {
		return err
	}
	_, err := r.Git("commit", "-m", message)
	return err
}

// CreateAndCheckoutBranch creates a branch at HEAD and checks it out
func (r *GitRepo) CreateAndCheckoutBranch(name string) error {
	_, err := r.Git("checkout", "-b", name)
	return err
}

// CheckoutBranch checks out an existing branch
func (r *GitRepo) CheckoutBranch(name string) error {
	_, err := r.Git("checkout", name)
	return err
}

// Head returns the full SHA of HEAD
func (r *GitRepo) Head() (string, error) {
	return r.Git("rev-parse", "HEAD")
}

// Ref returns the full SHA a ref points to
func (r *GitRepo) Ref(ref string) (string, error) {
	return r.Git("rev-parse", ref)
}

// AddSubmodule records another local repository as a submodule at path
// and commits the addition. Returns the submodule's worktree.
func (r *GitRepo) AddSubmodule(sourceDir, path string) (*GitRepo, error) {
	if _, err := r.Git("-c", "protocol.file.allow=always",
		"submodule", "add", sourceDir, path); err != nil {
		return nil, err
	}
	if _, err := r.Git("commit", "-m", "add submodule "+path); err != nil {
		return nil, err
	}

	sub := OpenGitRepo(filepath.Join(r.Dir, path))
	for _, kv := range [][2]string{
		{"user.name", "Test User"},
		{"user.email", "test@example.com"},
		{"commit.gpgsign", "false"},
	} {
		if _, err := sub.Git("config", kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// BumpSubmodule checks out the given commit inside the submodule
// worktree, then stages and commits the pointer change in the parent
func (r *GitRepo) BumpSubmodule(path, sha, message string) error {
	sub := OpenGitRepo(filepath.Join(r.Dir, path))
	if _, err := sub.Git("checkout", "--quiet", sha); err != nil {
		return err
	}
	if _, err := r.Git("add", "--", path); err != nil {
		return err
	}
	_, err := r.Git("commit", "-m", message)
	return err
}
