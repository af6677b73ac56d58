package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/delabrcd/lockstep-rebase/internal/config"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, "origin", cfg.RemoteOrDefault())
	require.Zero(t, cfg.Log.MaxSizeMB)
}

func TestLoadReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
remote: upstream
log:
  path: /tmp/lockstep-test.log
  max_size_mb: 5
  max_backups: 3
  max_age_days: 7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "upstream", cfg.RemoteOrDefault())
	require.Equal(t, "/tmp/lockstep-test.log", cfg.Log.Path)
	require.Equal(t, 5, cfg.Log.MaxSizeMB)
	require.Equal(t, 3, cfg.Log.MaxBackups)
	require.Equal(t, 7, cfg.Log.MaxAgeDays)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("remote: [unclosed"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}
