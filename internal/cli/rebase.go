package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	lockerrors "github.com/delabrcd/lockstep-rebase/internal/errors"
	"github.com/delabrcd/lockstep-rebase/internal/orchestrate"
	"github.com/delabrcd/lockstep-rebase/internal/output"
	"github.com/delabrcd/lockstep-rebase/internal/prompt"
	"github.com/delabrcd/lockstep-rebase/internal/runtime"
)

// newRebaseCmd creates the rebase command
func newRebaseCmd(repoPath *string) *cobra.Command {
	var (
		dryRun               bool
		force                bool
		autoDiscover         bool
		autoSelectSubmodules bool
		offerForcePush       bool
		include              []string
		exclude              []string
		branchMaps           []string
	)

	cmd := &cobra.Command{
		Use:   "rebase SOURCE TARGET",
		Short: "Rebase SOURCE onto TARGET across the whole hierarchy",
		Long: `Rebases SOURCE onto TARGET in every repository of the hierarchy,
deepest submodules first. Submodule pointer conflicts in parent
repositories are resolved automatically from the rewritten child commits.
Backup branches are created for every rewritten branch before anything
runs.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			branchMap, err := parseBranchMaps(branchMaps)
			if err != nil {
				return err
			}

			var agent prompt.UserAgent = prompt.NewTerminalAgent()
			rt, err := runtime.New(ctx, *repoPath, agent)
			if err != nil {
				return err
			}
			defer rt.Close()

			opts := orchestrate.PlanOptions{
				GlobalSource:         args[0],
				GlobalTarget:         args[1],
				Include:              include,
				Exclude:              exclude,
				BranchMap:            branchMap,
				Remote:               rt.Config.RemoteOrDefault(),
				AutoDiscover:         autoDiscover,
				AutoSelectSubmodules: autoSelectSubmodules,
				DryRun:               dryRun,
				Force:                force,
				OfferForcePush:       offerForcePush,
			}

			plan, err := rt.Orchestrator.BuildPlan(ctx, opts)
			if err != nil {
				return err
			}
			if err := rt.Orchestrator.Validate(ctx, plan); err != nil {
				return err
			}

			rt.Splog.Page(output.RenderPlan(plan))

			if dryRun {
				rt.Splog.Info("Dry run: no branches were created or rewritten.")
				return nil
			}

			if !force {
				proceed, err := agent.Confirm(fmt.Sprintf("Rebase %d repositories?", len(plan.EnabledTasks())))
				if err != nil {
					return err
				}
				if !proceed {
					return nil
				}
			}

			result, execErr := rt.Orchestrator.Execute(ctx, plan)
			rt.Splog.Page(output.RenderResult(result))

			if execErr != nil {
				if errors.Is(execErr, lockerrors.ErrSessionAborted) || ctx.Err() != nil {
					return &ExitError{Code: ExitInterrupted, Err: execErr}
				}
				if len(result.Backups) > 0 {
					return &ExitError{Code: ExitRebaseFailed, Err: execErr}
				}
				return execErr
			}

			if plan.OfferForcePush {
				if err := rt.Orchestrator.OfferForcePush(ctx, plan, result); err != nil {
					return &ExitError{Code: ExitRebaseFailed, Err: err}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the plan and validation output without executing")
	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVar(&autoDiscover, "auto", false, "Enable only the root and propose submodules whose pointer changed")
	cmd.Flags().BoolVar(&autoSelectSubmodules, "auto-select-submodules", false, "Accept auto-discovery proposals without prompting")
	cmd.Flags().BoolVar(&offerForcePush, "offer-force-push", false, "Offer to force-push rewritten branches after completion")
	cmd.Flags().StringSliceVar(&include, "include", nil, "Only rebase these repositories and their ancestors (name, relative, or absolute path)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Never rebase these repositories")
	cmd.Flags().StringArrayVar(&branchMaps, "branch-map", nil, "Per-repo branch override, repo=SRC[:TGT] (repeatable)")

	return cmd
}

// parseBranchMaps parses repo=SRC[:TGT] entries
func parseBranchMaps(entries []string) (map[string]orchestrate.BranchOverride, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]orchestrate.BranchOverride, len(entries))
	for _, entry := range entries {
		eq := strings.IndexByte(entry, '=')
		if eq <= 0 || eq == len(entry)-1 {
			return nil, fmt.Errorf("invalid --branch-map %q: expected repo=SRC[:TGT]", entry)
		}
		repo := entry[:eq]
		branches := entry[eq+1:]
		override := orchestrate.BranchOverride{Source: branches}
		if colon := strings.IndexByte(branches, ':'); colon >= 0 {
			override.Source = branches[:colon]
			override.Target = branches[colon+1:]
			if override.Source == "" || override.Target == "" {
				return nil, fmt.Errorf("invalid --branch-map %q: empty branch name", entry)
			}
		}
		out[repo] = override
	}
	return out, nil
}
