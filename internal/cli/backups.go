package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/delabrcd/lockstep-rebase/internal/output"
	"github.com/delabrcd/lockstep-rebase/internal/prompt"
	"github.com/delabrcd/lockstep-rebase/internal/runtime"
)

// newBackupsCmd creates the backups command group
func newBackupsCmd(repoPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List, restore, and delete session backup branches",
	}

	cmd.AddCommand(newBackupsListCmd(repoPath))
	cmd.AddCommand(newBackupsRestoreCmd(repoPath))
	cmd.AddCommand(newBackupsDeleteCmd(repoPath))
	return cmd
}

func newBackupsListCmd(repoPath *string) *cobra.Command {
	var sessionID string
	var originalBranch string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backup branches across the hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtime.New(cmd.Context(), *repoPath, prompt.NewTerminalAgent())
			if err != nil {
				return err
			}
			defer rt.Close()

			backups, err := rt.Orchestrator.ListBackups(cmd.Context(), sessionID, originalBranch)
			if err != nil {
				return err
			}
			rt.Splog.Page(output.RenderBackups(backups))
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "Filter by session id")
	cmd.Flags().StringVar(&originalBranch, "original-branch", "", "Filter by original branch")
	return cmd
}

func newBackupsRestoreCmd(repoPath *string) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore every branch backed up under a session to its pre-session tip",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionID == "" {
				return fmt.Errorf("--session-id is required")
			}

			rt, err := runtime.New(cmd.Context(), *repoPath, prompt.NewTerminalAgent())
			if err != nil {
				return err
			}
			defer rt.Close()

			outcomes, err := rt.Orchestrator.Restore(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			rt.Splog.Page(output.RenderRestore(outcomes))

			for _, oc := range outcomes {
				if oc.Err != nil {
					return &ExitError{Code: ExitRebaseFailed, Err: fmt.Errorf("restore finished with errors")}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session id to restore")
	return cmd
}

func newBackupsDeleteCmd(repoPath *string) *cobra.Command {
	var sessionID string
	var originalBranch string
	var deleteAll bool
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete backup branches",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionID == "" && originalBranch == "" && !deleteAll {
				return fmt.Errorf("specify --session-id, --original-branch, or --all")
			}

			agent := prompt.NewTerminalAgent()
			rt, err := runtime.New(cmd.Context(), *repoPath, agent)
			if err != nil {
				return err
			}
			defer rt.Close()

			backups, err := rt.Orchestrator.ListBackups(cmd.Context(), sessionID, originalBranch)
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				rt.Splog.Info("No matching backup branches.")
				return nil
			}

			if !yes {
				ok, err := agent.Confirm(fmt.Sprintf("Delete %d backup branches?", len(backups)))
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}

			deleted, err := rt.Orchestrator.DeleteBackups(cmd.Context(), sessionID, originalBranch)
			if err != nil {
				return err
			}
			rt.Splog.Info("Deleted %d backup branches.", deleted)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "Delete backups of this session")
	cmd.Flags().StringVar(&originalBranch, "original-branch", "", "Delete backups of this original branch")
	cmd.Flags().BoolVar(&deleteAll, "all", false, "Delete every backup branch")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
