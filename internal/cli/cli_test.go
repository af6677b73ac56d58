package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	lockerrors "github.com/delabrcd/lockstep-rebase/internal/errors"
	"github.com/delabrcd/lockstep-rebase/internal/orchestrate"
)

func TestParseBranchMaps(t *testing.T) {
	t.Run("source only", func(t *testing.T) {
		got, err := parseBranchMaps([]string{"libs/c=topic/c"})
		require.NoError(t, err)
		require.Equal(t, map[string]orchestrate.BranchOverride{
			"libs/c": {Source: "topic/c"},
		}, got)
	})

	t.Run("source and target", func(t *testing.T) {
		got, err := parseBranchMaps([]string{"libs/c=topic/c:release"})
		require.NoError(t, err)
		require.Equal(t, map[string]orchestrate.BranchOverride{
			"libs/c": {Source: "topic/c", Target: "release"},
		}, got)
	})

	t.Run("multiple entries", func(t *testing.T) {
		got, err := parseBranchMaps([]string{"a=s1", "b=s2:t2"})
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("rejects malformed entries", func(t *testing.T) {
		for _, entry := range []string{"noequals", "=src", "repo=", "repo=src:", "repo=:tgt"} {
			_, err := parseBranchMaps([]string{entry})
			require.Error(t, err, entry)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		got, err := parseBranchMaps(nil)
		require.NoError(t, err)
		require.Nil(t, got)
	})
}

func TestExitCode(t *testing.T) {
	require.Equal(t, ExitOK, ExitCode(nil))
	require.Equal(t, ExitPlanFailure, ExitCode(errors.New("validation broke")))
	require.Equal(t, ExitPlanFailure, ExitCode(lockerrors.ErrNoEnabledTasks))
	require.Equal(t, ExitInterrupted, ExitCode(lockerrors.ErrSessionAborted))
	require.Equal(t, ExitRebaseFailed, ExitCode(&ExitError{Code: ExitRebaseFailed, Err: errors.New("boom")}))
}
