package cli

import (
	"github.com/spf13/cobra"

	"github.com/delabrcd/lockstep-rebase/internal/output"
	"github.com/delabrcd/lockstep-rebase/internal/prompt"
	"github.com/delabrcd/lockstep-rebase/internal/runtime"
)

// newHierarchyCmd creates the hierarchy command
func newHierarchyCmd(repoPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "hierarchy",
		Short: "Show the discovered repository hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtime.New(cmd.Context(), *repoPath, prompt.NewTerminalAgent())
			if err != nil {
				return err
			}
			defer rt.Close()

			rt.Splog.Page(output.RenderHierarchy(rt.Hierarchy))
			return nil
		},
	}
}
