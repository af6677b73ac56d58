package orchestrate

import (
	"context"
)

// OfferForcePush walks the rewritten branches after a completed session,
// shows each branch's ahead/behind counts against its upstream, and
// pushes with lease only after the agent confirms with the exact phrase.
func (o *Orchestrator) OfferForcePush(ctx context.Context, plan *Plan, result *Result) error {
	if result.State != SessionCompleted {
		return nil
	}
	remote := plan.Remote
	if remote == "" {
		remote = "origin"
	}

	for _, outcome := range result.Completed {
		task := outcome.Task
		gw := o.gateways[task.Repo]

		exists, err := gw.BranchExistsRemote(ctx, task.Source, remote)
		if err != nil {
			return err
		}
		if !exists {
			o.splog.Debug("%s: %s has no upstream on %s; skipping push offer", task.Display, task.Source, remote)
			continue
		}

		ahead, behind, err := gw.AheadBehind(ctx, task.Source, remote)
		if err != nil {
			return err
		}

		confirmed, err := o.agent.ConfirmForcePush(task.Display, task.Source, ahead, behind)
		if err != nil {
			return err
		}
		if !confirmed {
			o.splog.Info("Skipped push of %s in %s", task.Source, task.Display)
			continue
		}

		if err := gw.PushWithLease(ctx, task.Source, remote); err != nil {
			return err
		}
		o.splog.Info("Pushed %s to %s with lease in %s", task.Source, remote, task.Display)
	}
	return nil
}
