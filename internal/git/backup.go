package git

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	lockerrors "github.com/delabrcd/lockstep-rebase/internal/errors"
)

// BackupPrefix namespaces every backup branch created by a session
const BackupPrefix = "lockstep/backup"

// MakeBackupName builds the backup branch name for an original branch and session
func MakeBackupName(originalBranch, sessionID string) string {
	return fmt.Sprintf("%s/%s/%s", BackupPrefix, originalBranch, sessionID)
}

// ParseBackupName splits a backup branch name into (originalBranch, sessionID).
// Returns ok=false for names outside the backup namespace.
func ParseBackupName(name string) (originalBranch, sessionID string, ok bool) {
	if !strings.HasPrefix(name, BackupPrefix+"/") {
		return "", "", false
	}
	rest := name[len(BackupPrefix)+1:]
	idx := strings.LastIndexByte(rest, '/')
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

// CreateBackupBranch creates a branch at the given commit. Refuses to
// overwrite an existing ref: a collision on session id fails the session.
func (g *realGateway) CreateBackupBranch(ctx context.Context, name, at string) error {
	exists, err := g.BranchExistsLocal(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s in %s", lockerrors.ErrBackupExists, name, g.path)
	}
	_, err = g.runner.Run(ctx, "branch", name, at)
	return err
}

// ListBackupBranches enumerates local refs under the backup namespace
func (g *realGateway) ListBackupBranches(ctx context.Context) ([]BackupBranch, error) {
	repo, err := g.open()
	if err != nil {
		return nil, err
	}

	iter, err := repo.References()
	if err != nil {
		return nil, err
	}

	var backups []BackupBranch
	prefix := "refs/heads/" + BackupPrefix + "/"
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		refName := ref.Name().String()
		if !strings.HasPrefix(refName, prefix) {
			return nil
		}
		short := strings.TrimPrefix(refName, "refs/heads/")
		original, session, ok := ParseBackupName(short)
		if !ok {
			return nil
		}
		backups = append(backups, BackupBranch{
			Name:           short,
			OriginalBranch: original,
			SessionID:      session,
			Tip:            ref.Hash().String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].Name < backups[j].Name })
	return backups, nil
}
