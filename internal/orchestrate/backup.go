package orchestrate

import (
	"context"
	"fmt"

	lockerrors "github.com/delabrcd/lockstep-rebase/internal/errors"
	"github.com/delabrcd/lockstep-rebase/internal/git"
	"github.com/delabrcd/lockstep-rebase/internal/hierarchy"
)

// CreateBackups snapshots the tip of every branch the session will
// rewrite, one backup ref per distinct (repo, source branch). A failure
// deletes whatever was created and aborts the session before any rebase.
func (o *Orchestrator) CreateBackups(ctx context.Context, plan *Plan) ([]BackupRef, error) {
	var created []BackupRef
	seen := make(map[string]bool)

	rollback := func() {
		for _, ref := range created {
			for id := range o.gateways {
				if o.hierarchy.Node(id).AbsPath == ref.RepoPath {
					_ = o.gateways[id].DeleteBranch(ctx, ref.BackupBranch, true)
				}
			}
		}
	}

	for _, task := range plan.EnabledTasks() {
		key := task.Path + "\x00" + task.Source
		if seen[key] {
			continue
		}
		seen[key] = true

		gw := o.gateways[task.Repo]
		tip, err := gw.RevParse(ctx, task.Source)
		if err != nil {
			rollback()
			return nil, err
		}

		name := git.MakeBackupName(task.Source, plan.SessionID)
		if err := gw.CreateBackupBranch(ctx, name, tip); err != nil {
			rollback()
			return nil, err
		}
		created = append(created, BackupRef{
			RepoPath:       task.Path,
			Display:        task.Display,
			OriginalBranch: task.Source,
			BackupBranch:   name,
			Tip:            tip,
		})
		o.splog.Debug("Backed up %s:%s at %.8s as %s", task.Display, task.Source, tip, name)
	}

	o.splog.Info("Created %d backup branches for session %s", len(created), plan.SessionID)
	return created, nil
}

// SessionBackup is a backup ref located somewhere in the hierarchy
type SessionBackup struct {
	Repo    hierarchy.RepoID
	Display string
	Backup  git.BackupBranch
}

// ListBackups enumerates backup refs across the hierarchy, optionally
// filtered by session id and/or original branch. Output order follows
// the hierarchy's execution order, then ref name; repeated calls over
// unchanged refs are identical.
func (o *Orchestrator) ListBackups(ctx context.Context, sessionID, originalBranch string) ([]SessionBackup, error) {
	var out []SessionBackup
	for _, id := range o.hierarchy.Order {
		backups, err := o.gateways[id].ListBackupBranches(ctx)
		if err != nil {
			return nil, err
		}
		for _, b := range backups {
			if sessionID != "" && b.SessionID != sessionID {
				continue
			}
			if originalBranch != "" && b.OriginalBranch != originalBranch {
				continue
			}
			out = append(out, SessionBackup{
				Repo:    id,
				Display: o.hierarchy.DisplayPath(id),
				Backup:  b,
			})
		}
	}
	return out, nil
}

// RestoreOutcome reports one branch restore attempt
type RestoreOutcome struct {
	Display string
	Branch  string
	Backup  string
	Tip     string
	Err     error
}

// Restore force-updates every branch backed up under a session id back to
// its recorded tip. Per-repo failures are reported and the rest continue.
func (o *Orchestrator) Restore(ctx context.Context, sessionID string) ([]RestoreOutcome, error) {
	backups, err := o.ListBackups(ctx, sessionID, "")
	if err != nil {
		return nil, err
	}
	if len(backups) == 0 {
		return nil, fmt.Errorf("no backup branches found for session %s", sessionID)
	}

	var outcomes []RestoreOutcome
	for _, sb := range backups {
		gw := o.gateways[sb.Repo]
		outcome := RestoreOutcome{
			Display: sb.Display,
			Branch:  sb.Backup.OriginalBranch,
			Backup:  sb.Backup.Name,
			Tip:     sb.Backup.Tip,
		}

		if inProgress, probeErr := gw.RebaseInProgress(ctx); probeErr == nil && inProgress {
			if abortErr := gw.RebaseAbort(ctx); abortErr != nil {
				outcome.Err = lockerrors.NewRestoreError(sb.Display, sb.Backup.OriginalBranch, abortErr)
				outcomes = append(outcomes, outcome)
				continue
			}
		}

		if err := gw.ForceUpdateBranch(ctx, sb.Backup.OriginalBranch, sb.Backup.Tip); err != nil {
			outcome.Err = lockerrors.NewRestoreError(sb.Display, sb.Backup.OriginalBranch, err)
		} else {
			o.splog.Info("Restored %s:%s to %.8s", sb.Display, sb.Backup.OriginalBranch, sb.Backup.Tip)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// DeleteBackups removes backup refs matching the filters. Apart from the
// rollback in CreateBackups when a backup step fails, this is the only way
// backup refs go away; finished sessions keep theirs.
func (o *Orchestrator) DeleteBackups(ctx context.Context, sessionID, originalBranch string) (int, error) {
	backups, err := o.ListBackups(ctx, sessionID, originalBranch)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, sb := range backups {
		gw := o.gateways[sb.Repo]
		if err := gw.DeleteBranch(ctx, sb.Backup.Name, true); err != nil {
			o.splog.Error("Failed to delete %s in %s: %v", sb.Backup.Name, sb.Display, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
