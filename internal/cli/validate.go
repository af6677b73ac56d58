package cli

import (
	"github.com/spf13/cobra"

	"github.com/delabrcd/lockstep-rebase/internal/orchestrate"
	"github.com/delabrcd/lockstep-rebase/internal/output"
	"github.com/delabrcd/lockstep-rebase/internal/prompt"
	"github.com/delabrcd/lockstep-rebase/internal/runtime"
)

// newValidateCmd creates the validate command
func newValidateCmd(repoPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate SOURCE TARGET",
		Short: "Check that every repository is ready to rebase SOURCE onto TARGET",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtime.New(cmd.Context(), *repoPath, prompt.NewTerminalAgent())
			if err != nil {
				return err
			}
			defer rt.Close()

			plan, err := rt.Orchestrator.BuildPlan(cmd.Context(), orchestrate.PlanOptions{
				GlobalSource: args[0],
				GlobalTarget: args[1],
				Remote:       rt.Config.RemoteOrDefault(),
			})
			if err != nil {
				return err
			}
			if err := rt.Orchestrator.Validate(cmd.Context(), plan); err != nil {
				return err
			}

			rt.Splog.Page(output.RenderPlan(plan))
			rt.Splog.Info("All repositories are ready.")
			return nil
		},
	}
}
