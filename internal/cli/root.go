// Package cli defines the cobra command surface. Commands are thin: they
// parse flags, build the runtime context, and delegate to the
// orchestrator.
package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	lockerrors "github.com/delabrcd/lockstep-rebase/internal/errors"
	"github.com/delabrcd/lockstep-rebase/internal/output"
)

// Exit codes: 0 success; 1 plan/validation failure before any write;
// 2 rebase failed after writes began (backups usable); 130 user interrupt.
const (
	ExitOK           = 0
	ExitPlanFailure  = 1
	ExitRebaseFailed = 2
	ExitInterrupted  = 130
)

// ExitError carries the process exit code alongside the cause
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by a command to a process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, lockerrors.ErrSessionAborted) {
		return ExitInterrupted
	}
	return ExitPlanFailure
}

// NewRootCmd creates the root cobra command
func NewRootCmd(version string) *cobra.Command {
	var repoPath string

	rootCmd := &cobra.Command{
		Use:   "lockstep-rebase",
		Short: "Rebase a feature branch across a tree of git repositories in lockstep",
		Long: `lockstep-rebase coordinates a single logical rebase across a hierarchy of
git repositories connected by submodule pointers. Children are rebased
first; every parent's conflicting submodule pointers are rewritten to the
new child commits automatically.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !output.ColorEnabled() {
				lipgloss.SetColorProfile(termenv.Ascii)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&repoPath, "repo-path", "", "Start discovery from this directory instead of the working directory")

	rootCmd.AddCommand(newRebaseCmd(&repoPath))
	rootCmd.AddCommand(newBackupsCmd(&repoPath))
	rootCmd.AddCommand(newStatusCmd(&repoPath))
	rootCmd.AddCommand(newHierarchyCmd(&repoPath))
	rootCmd.AddCommand(newValidateCmd(&repoPath))

	return rootCmd
}
