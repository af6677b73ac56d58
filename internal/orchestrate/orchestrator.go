package orchestrate

import (
	"context"
	"errors"
	"fmt"

	lockerrors "github.com/delabrcd/lockstep-rebase/internal/errors"
	"github.com/delabrcd/lockstep-rebase/internal/git"
	"github.com/delabrcd/lockstep-rebase/internal/hierarchy"
	"github.com/delabrcd/lockstep-rebase/internal/prompt"
	"github.com/delabrcd/lockstep-rebase/internal/resolve"
	"github.com/delabrcd/lockstep-rebase/internal/tracker"
	"github.com/delabrcd/lockstep-rebase/internal/tui"
)

// SessionState is the terminal state of an executed session
type SessionState int

const (
	// SessionCompleted means every enabled task finished
	SessionCompleted SessionState = iota
	// SessionFailed means a task failed; earlier completed tasks stand
	// and backups remain for explicit restore
	SessionFailed
	// SessionAborted means the user interrupted or declined to continue
	SessionAborted
)

// BackupRef records one backup branch created for the session
type BackupRef struct {
	RepoPath       string
	Display        string
	OriginalBranch string
	BackupBranch   string
	Tip            string
}

// TaskOutcome summarizes one completed task
type TaskOutcome struct {
	Task   RepoTask
	Mapped int
}

// TaskFailure carries everything needed for manual recovery
type TaskFailure struct {
	Task       RepoTask
	Err        error
	LastOldSha string
	LastNewSha string
}

// Result is the outcome of Execute
type Result struct {
	SessionID    string
	State        SessionState
	Backups      []BackupRef
	Completed    []TaskOutcome
	Failed       *TaskFailure
	Resolutions  resolve.Summary
	SubjectDrift []string
}

// Orchestrator drives a lockstep rebase session. It owns the mapping from
// hierarchy nodes to gateways; tasks run strictly one at a time in plan
// order, because each task depends on the trackers of every task before it.
type Orchestrator struct {
	hierarchy *hierarchy.Hierarchy
	gateways  map[hierarchy.RepoID]git.Gateway
	trackers  *tracker.SessionTrackers
	resolver  *resolve.Resolver
	agent     prompt.UserAgent
	splog     *tui.Splog
}

// New creates an Orchestrator over a discovered hierarchy, opening a
// gateway per repository.
func New(h *hierarchy.Hierarchy, openGateway hierarchy.GatewayFactory, agent prompt.UserAgent, splog *tui.Splog) (*Orchestrator, error) {
	gateways := make(map[hierarchy.RepoID]git.Gateway, h.Len())
	for i := range h.Nodes {
		gw, err := openGateway(h.Nodes[i].AbsPath)
		if err != nil {
			return nil, err
		}
		gateways[hierarchy.RepoID(i)] = gw
	}
	trackers := tracker.NewSessionTrackers()
	return &Orchestrator{
		hierarchy: h,
		gateways:  gateways,
		trackers:  trackers,
		resolver:  resolve.New(trackers, splog),
		agent:     agent,
		splog:     splog,
	}, nil
}

// Hierarchy returns the hierarchy this orchestrator was built over
func (o *Orchestrator) Hierarchy() *hierarchy.Hierarchy {
	return o.hierarchy
}

// Gateway returns the gateway for a repo
func (o *Orchestrator) Gateway(id hierarchy.RepoID) git.Gateway {
	return o.gateways[id]
}

// Trackers exposes the session's commit trackers
func (o *Orchestrator) Trackers() *tracker.SessionTrackers {
	return o.trackers
}

// Validate checks every enabled task before execution: branches resolve
// locally (offering remote-branch creation), worktrees are clean, no
// rebase is in progress. Nothing is mutated except locally-created
// branches the user approved. Tasks whose source equals their target are
// disabled; a plan with nothing left to do is rejected.
func (o *Orchestrator) Validate(ctx context.Context, plan *Plan) error {
	remote := plan.Remote
	if remote == "" {
		remote = "origin"
	}

	enabledCount := 0
	for i := range plan.Tasks {
		task := &plan.Tasks[i]
		if !task.Enabled {
			continue
		}
		if task.Source == task.Target {
			o.splog.Warn("%s: source and target are both %s; nothing to rebase", task.Display, task.Source)
			task.Enabled = false
			continue
		}

		gw := o.gateways[task.Repo]

		for _, branch := range []string{task.Source, task.Target} {
			if err := o.ensureLocalBranch(ctx, gw, task.Display, branch, remote); err != nil {
				return err
			}
		}

		inProgress, err := gw.RebaseInProgress(ctx)
		if err != nil {
			return err
		}
		if inProgress {
			return fmt.Errorf("%w: %s", lockerrors.ErrRebaseInProgress, task.Display)
		}

		clean, err := gw.IsClean(ctx)
		if err != nil {
			return err
		}
		if !clean {
			return fmt.Errorf("%w: %s", lockerrors.ErrDirtyWorktree, task.Display)
		}

		expected, err := gw.CommitsBetween(ctx, task.Target, task.Source)
		if err != nil {
			return err
		}
		task.ExpectedCommits = len(expected)

		o.advisoryBranchSync(ctx, gw, task, remote)
		enabledCount++
	}

	if enabledCount == 0 {
		return lockerrors.ErrNoEnabledTasks
	}
	return nil
}

// ensureLocalBranch resolves a branch locally, offering to create it from
// the remote when only the remote-tracking ref exists. Declining is fatal
// for that repo.
func (o *Orchestrator) ensureLocalBranch(ctx context.Context, gw git.Gateway, display, branch, remote string) error {
	exists, err := gw.BranchExistsLocal(ctx, branch)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	remoteExists, err := gw.BranchExistsRemote(ctx, branch, remote)
	if err != nil {
		return err
	}
	if !remoteExists {
		return lockerrors.NewBranchMissingError(display, branch)
	}

	create, err := o.agent.PromptRemoteBranchCreate(display, branch, remote)
	if err != nil {
		return err
	}
	if !create {
		return lockerrors.NewBranchMissingError(display, branch)
	}
	if err := gw.CreateLocalFromRemote(ctx, branch, remote); err != nil {
		return err
	}
	o.splog.Info("Created local branch %s from %s/%s in %s", branch, remote, branch, display)
	return nil
}

// advisoryBranchSync reports ahead/behind counts against the remote; it
// never syncs on its own
func (o *Orchestrator) advisoryBranchSync(ctx context.Context, gw git.Gateway, task *RepoTask, remote string) {
	for _, branch := range []string{task.Source, task.Target} {
		ahead, behind, err := gw.AheadBehind(ctx, branch, remote)
		if err != nil {
			continue
		}
		if behind > 0 {
			o.splog.Warn("%s: %s is %d commits behind %s/%s (%d ahead)",
				task.Display, branch, behind, remote, branch, ahead)
		}
	}
}

// Execute runs the plan bottom-up: backups first, then one task at a
// time. A failed task aborts its own rebase and leaves earlier completed
// tasks as-is; their backups remain available for explicit restore.
func (o *Orchestrator) Execute(ctx context.Context, plan *Plan) (*Result, error) {
	result := &Result{SessionID: plan.SessionID}

	backups, err := o.CreateBackups(ctx, plan)
	if err != nil {
		result.State = SessionFailed
		return result, err
	}
	result.Backups = backups

	for i := range plan.Tasks {
		task := &plan.Tasks[i]
		if !task.Enabled {
			continue
		}
		o.splog.Info("🔄 Rebasing %s (%s onto %s)", task.Display, task.Source, task.Target)

		if err := o.executeTask(ctx, plan, task); err != nil {
			// The abort must run even when ctx was canceled by an interrupt
			cleanupCtx := context.WithoutCancel(ctx)
			gw := o.gateways[task.Repo]
			if inProgress, probeErr := gw.RebaseInProgress(cleanupCtx); probeErr == nil && inProgress {
				if abortErr := gw.RebaseAbort(cleanupCtx); abortErr != nil {
					o.splog.Error("Failed to abort rebase in %s: %v", task.Display, abortErr)
				}
			}

			if errors.Is(err, context.Canceled) || errors.Is(err, lockerrors.ErrSessionAborted) {
				result.State = SessionAborted
				o.splog.Warn("Session %s aborted in %s; completed repositories keep their backups",
					plan.SessionID, task.Display)
				return result, lockerrors.ErrSessionAborted
			}

			result.State = SessionFailed
			failure := &TaskFailure{Task: *task, Err: err}
			if tr, ok := o.trackers.Get(task.Path); ok {
				if pairs := tr.MappingsInReplayOrder(); len(pairs) > 0 {
					last := pairs[len(pairs)-1]
					failure.LastOldSha, failure.LastNewSha = last[0], last[1]
				}
			}
			result.Failed = failure
			o.splog.Error("Session %s failed in %s: %v", plan.SessionID, task.Display, err)
			return result, err
		}

		tr, _ := o.trackers.Get(task.Path)
		result.Completed = append(result.Completed, TaskOutcome{Task: *task, Mapped: tr.Len()})
		o.splog.Info("✅ Rebased %s (%d commits rewritten)", task.Display, tr.Len())
	}

	result.State = SessionCompleted
	result.Resolutions = o.resolver.Summary()
	result.SubjectDrift = o.collectSubjectDrift(ctx, result.Resolutions)
	return result, nil
}

// executeTask drives one repository's rebase to completion
func (o *Orchestrator) executeTask(ctx context.Context, plan *Plan, task *RepoTask) error {
	gw := o.gateways[task.Repo]

	if err := gw.Checkout(ctx, task.Source); err != nil {
		return err
	}

	expected, err := gw.CommitsBetween(ctx, task.Target, task.Source)
	if err != nil {
		return err
	}
	tr, err := o.trackers.Create(task.Path, expected)
	if err != nil {
		return err
	}

	outcome, err := gw.RebaseStart(ctx, task.Source, task.Target)
	if err != nil {
		return err
	}

	view := &planLinkView{hierarchy: o.hierarchy, task: task}
	for outcome == git.RebaseStopped {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := o.syncTracker(ctx, gw, tr, task); err != nil {
			return err
		}

		res, err := o.resolver.HandleStop(ctx, gw, view)
		if err != nil {
			return err
		}

		for res.Action == resolve.StopFilesPending {
			if res.Reason != "" {
				o.splog.Warn("%s: %s", task.Display, res.Reason)
			}
			proceed, promptErr := o.agent.AwaitFileConflictResolution(task.Display, res.Files)
			if promptErr != nil {
				return promptErr
			}
			if !proceed {
				return lockerrors.ErrSessionAborted
			}
			res, err = o.resolver.ContinueAfterManual(ctx, gw)
			if err != nil {
				return err
			}
		}
		outcome = res.Outcome
	}

	newShas, err := gw.CommitsBetween(ctx, task.Target, task.Source)
	if err != nil {
		return err
	}
	if err := tr.Sync(newShas); err != nil {
		return err
	}
	return tr.Freeze()
}

// syncTracker records the commits replayed so far during a stop. The stop
// itself has not committed; only finished steps appear on HEAD.
func (o *Orchestrator) syncTracker(ctx context.Context, gw git.Gateway, tr *tracker.CommitTracker, task *RepoTask) error {
	replayed, err := gw.CommitsBetween(ctx, task.Target, "HEAD")
	if err != nil {
		return err
	}
	return tr.Sync(replayed)
}

// collectSubjectDrift compares commit subjects across each auto-resolved
// pointer rewrite; a drifted subject usually means the mapping paired the
// wrong commits
func (o *Orchestrator) collectSubjectDrift(ctx context.Context, summary resolve.Summary) []string {
	byPath := make(map[string]git.Gateway, len(o.gateways))
	for id, gw := range o.gateways {
		byPath[o.hierarchy.Node(id).AbsPath] = gw
	}

	var drift []string
	for _, rp := range summary.Resolved {
		if rp.KeptOurs {
			continue
		}
		childGw, ok := byPath[rp.ChildRepo]
		if !ok {
			continue
		}
		oldSubject, err1 := childGw.CommitSubject(ctx, rp.OldSha)
		newSubject, err2 := childGw.CommitSubject(ctx, rp.NewSha)
		if err1 != nil || err2 != nil {
			continue
		}
		if oldSubject != newSubject {
			drift = append(drift, fmt.Sprintf("%s: %q != %q", rp.SubmodulePath, oldSubject, newSubject))
		}
	}
	return drift
}

// planLinkView adapts a plan task to the resolver's view of its submodules
type planLinkView struct {
	hierarchy *hierarchy.Hierarchy
	task      *RepoTask
}

func (v *planLinkView) ChildRepoAt(path string) (string, bool) {
	child := v.hierarchy.ChildAt(v.task.Repo, path)
	if child < 0 {
		return "", false
	}
	return v.hierarchy.Node(child).AbsPath, true
}

func (v *planLinkView) PointerChangedOnFeature(path string) bool {
	return v.task.PointerChanged[path]
}
