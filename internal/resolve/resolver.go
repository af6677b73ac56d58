// Package resolve classifies rebase stops and auto-resolves submodule
// pointer conflicts using the session's commit trackers.
package resolve

import (
	"context"
	"fmt"

	lockerrors "github.com/delabrcd/lockstep-rebase/internal/errors"
	"github.com/delabrcd/lockstep-rebase/internal/git"
	"github.com/delabrcd/lockstep-rebase/internal/tracker"
	"github.com/delabrcd/lockstep-rebase/internal/tui"
)

// LinkView gives the resolver the parent repo's submodule topology as
// known at plan time.
type LinkView interface {
	// ChildRepoAt maps a submodule path to the child repository path
	ChildRepoAt(path string) (string, bool)
	// PointerChangedOnFeature reports whether the gitlink at path
	// differs between the task's target and source branches
	PointerChangedOnFeature(path string) bool
}

// ResolvedPointer records one auto-resolved submodule gitlink
type ResolvedPointer struct {
	SubmodulePath string
	ChildRepo     string
	OldSha        string
	NewSha        string
	KeptOurs      bool
}

// Summary collects every auto-resolution made during a session
type Summary struct {
	Resolved []ResolvedPointer
}

// StopAction describes what the resolver did with a rebase stop
type StopAction int

const (
	// StopContinued means the stop was fully auto-resolved and the
	// rebase was continued; check Outcome for the new state
	StopContinued StopAction = iota
	// StopFilesPending means file conflicts await the human
	StopFilesPending
)

// StopResult is the outcome of handling one rebase stop
type StopResult struct {
	Action  StopAction
	Outcome git.RebaseOutcome // valid when Action == StopContinued
	Files   []string          // valid when Action == StopFilesPending
	Reason  string            // human-facing refusal detail, if any
}

// Resolver handles conflict classification and submodule auto-resolution.
// It is re-entrant on the same task: every stop of a rebase goes through
// HandleStop, and manual resolutions re-enter via ContinueAfterManual.
type Resolver struct {
	trackers *tracker.SessionTrackers
	splog    *tui.Splog
	summary  Summary
}

// New creates a Resolver over the session's trackers
func New(trackers *tracker.SessionTrackers, splog *tui.Splog) *Resolver {
	return &Resolver{trackers: trackers, splog: splog}
}

// Summary returns the resolutions made so far
func (r *Resolver) Summary() Summary {
	return r.summary
}

// HandleStop examines the unmerged index of a stopped rebase in the
// parent repository. Submodule entries are resolved and staged first;
// only the file set is surfaced to the human (tie-break policy). When no
// file conflicts remain the rebase is continued immediately.
func (r *Resolver) HandleStop(ctx context.Context, gw git.Gateway, links LinkView) (StopResult, error) {
	conflicts, err := gw.IndexConflicts(ctx)
	if err != nil {
		return StopResult{}, err
	}

	for _, sub := range conflicts.Submodules {
		if err := r.resolveSubmodule(ctx, gw, links, sub); err != nil {
			return StopResult{}, err
		}
	}

	if len(conflicts.Files) > 0 {
		return StopResult{Action: StopFilesPending, Files: conflicts.Files}, nil
	}

	return r.continueRebase(ctx, gw)
}

// ContinueAfterManual re-examines the index after the human signals that
// file conflicts are resolved. It refuses to continue while unmerged
// entries remain or nothing is staged; the sentinel alone is never
// trusted.
func (r *Resolver) ContinueAfterManual(ctx context.Context, gw git.Gateway) (StopResult, error) {
	conflicts, err := gw.IndexConflicts(ctx)
	if err != nil {
		return StopResult{}, err
	}
	if !conflicts.IsEmpty() {
		remaining := append([]string(nil), conflicts.Files...)
		for _, sub := range conflicts.Submodules {
			remaining = append(remaining, sub.Path)
		}
		return StopResult{
			Action: StopFilesPending,
			Files:  remaining,
			Reason: "conflicts are still unmerged",
		}, nil
	}

	staged, err := gw.StagedPaths(ctx)
	if err != nil {
		return StopResult{}, err
	}
	if len(staged) == 0 {
		return StopResult{
			Action: StopFilesPending,
			Reason: "no changes are staged; stage resolved files with 'git add'",
		}, nil
	}

	return r.continueRebase(ctx, gw)
}

func (r *Resolver) continueRebase(ctx context.Context, gw git.Gateway) (StopResult, error) {
	outcome, err := gw.RebaseContinue(ctx)
	if err != nil {
		return StopResult{}, err
	}
	return StopResult{Action: StopContinued, Outcome: outcome}, nil
}

// resolveSubmodule rewrites one conflicted gitlink. The theirs side is
// the pointer from the replayed feature commit; it is looked up in the
// child's tracker and replaced with the rewritten SHA. A pointer the
// feature never changed falls back to the target side. Anything else is
// an unresolvable conflict and fatal for the session.
func (r *Resolver) resolveSubmodule(ctx context.Context, gw git.Gateway, links LinkView, sub git.SubmoduleConflict) error {
	childRepo, hasChild := links.ChildRepoAt(sub.Path)

	if hasChild && sub.TheirsSha != "" {
		if childTracker, ok := r.trackers.Get(childRepo); ok {
			if newSha, found := childTracker.NewHash(sub.TheirsSha); found {
				return r.stagePointer(ctx, gw, sub, childRepo, newSha, false)
			}
		}
	}

	// Cross-repo fallback: the pointer may have been rewritten in a
	// repo other than the one currently linked at this path
	if sub.TheirsSha != "" {
		if repo, newSha, ok := r.trackers.ResolveAcross(sub.TheirsSha); ok {
			return r.stagePointer(ctx, gw, sub, repo, newSha, false)
		}
	}

	if !links.PointerChangedOnFeature(sub.Path) && sub.OursSha != "" {
		return r.stagePointer(ctx, gw, sub, childRepo, sub.OursSha, true)
	}

	return lockerrors.NewUnresolvableSubmoduleConflictError(
		gw.Path(), sub.Path, sub.OursSha, sub.TheirsSha, r.trackers.Repos())
}

func (r *Resolver) stagePointer(ctx context.Context, gw git.Gateway, sub git.SubmoduleConflict, childRepo, sha string, keptOurs bool) error {
	if err := gw.WriteSubmodulePointer(ctx, sub.Path, sha); err != nil {
		return fmt.Errorf("failed to stage submodule pointer at %s: %w", sub.Path, err)
	}
	r.summary.Resolved = append(r.summary.Resolved, ResolvedPointer{
		SubmodulePath: sub.Path,
		ChildRepo:     childRepo,
		OldSha:        sub.TheirsSha,
		NewSha:        sha,
		KeptOurs:      keptOurs,
	})
	if r.splog != nil {
		if keptOurs {
			r.splog.Debug("Kept target-side pointer %.8s at %s", sha, sub.Path)
		} else {
			r.splog.Info("Auto-resolved submodule %s: %.8s -> %.8s", sub.Path, sub.TheirsSha, sha)
		}
	}
	return nil
}
