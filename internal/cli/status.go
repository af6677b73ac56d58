package cli

import (
	"errors"

	"github.com/spf13/cobra"

	lockerrors "github.com/delabrcd/lockstep-rebase/internal/errors"
	"github.com/delabrcd/lockstep-rebase/internal/prompt"
	"github.com/delabrcd/lockstep-rebase/internal/runtime"
)

// newStatusCmd creates the status command
func newStatusCmd(repoPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of every repository in the hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtime.New(cmd.Context(), *repoPath, prompt.NewTerminalAgent())
			if err != nil {
				return err
			}
			defer rt.Close()

			for _, id := range rt.Hierarchy.Order {
				node := rt.Hierarchy.Node(id)
				gw := rt.Orchestrator.Gateway(id)

				branch, err := gw.CurrentBranch(cmd.Context())
				if errors.Is(err, lockerrors.ErrDetachedHead) {
					branch = "detached"
				} else if err != nil {
					rt.Splog.Error("%s: %v", rt.Hierarchy.DisplayPath(id), err)
					continue
				}

				rebasing, err := gw.RebaseInProgress(cmd.Context())
				if err != nil {
					rt.Splog.Error("%s: %v", rt.Hierarchy.DisplayPath(id), err)
					continue
				}

				state := ""
				if rebasing {
					state = "  (rebase in progress)"
				}
				rt.Splog.Info("%-40s %s depth=%d%s", rt.Hierarchy.DisplayPath(id), branch, node.Depth, state)
			}
			return nil
		},
	}
}
