package git

import (
	"context"
	"os"
	"path/filepath"
)

// RebaseStart rebases source onto target. Returns RebaseStopped when the
// rebase paused on a conflict; any other failure is returned as an error
// after the in-progress rebase (if any) is aborted.
func (g *realGateway) RebaseStart(ctx context.Context, source, target string) (RebaseOutcome, error) {
	_, err := g.runner.Run(ctx, "-c", "core.editor=true", "rebase", "--onto", target, target, source)
	if err != nil {
		inProgress, probeErr := g.RebaseInProgress(ctx)
		if probeErr == nil && inProgress {
			conflicts, probeErr := g.IndexConflicts(ctx)
			if probeErr == nil && !conflicts.IsEmpty() {
				return RebaseStopped, nil
			}
			// In progress but nothing unmerged: a non-conflict failure
			_ = g.RebaseAbort(ctx)
		}
		return RebaseStopped, err
	}
	return RebaseCompleted, nil
}

// RebaseContinue continues an in-progress rebase after conflicts are staged
func (g *realGateway) RebaseContinue(ctx context.Context) (RebaseOutcome, error) {
	_, err := g.runner.Run(ctx, "-c", "core.editor=true", "rebase", "--continue")
	if err != nil {
		inProgress, probeErr := g.RebaseInProgress(ctx)
		if probeErr == nil && inProgress {
			conflicts, probeErr := g.IndexConflicts(ctx)
			if probeErr == nil && !conflicts.IsEmpty() {
				return RebaseStopped, nil
			}
		}
		return RebaseStopped, err
	}
	return RebaseCompleted, nil
}

// RebaseAbort aborts an in-progress rebase
func (g *realGateway) RebaseAbort(ctx context.Context) error {
	_, err := g.runner.Run(ctx, "rebase", "--abort")
	return err
}

// RebaseInProgress checks for the rebase-merge/rebase-apply state directories
func (g *realGateway) RebaseInProgress(ctx context.Context) (bool, error) {
	gitDir, err := g.runner.Run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(filepath.Join(gitDir, "rebase-merge")); err == nil {
		return true, nil
	}
	if _, err := os.Stat(filepath.Join(gitDir, "rebase-apply")); err == nil {
		return true, nil
	}
	return false, nil
}
