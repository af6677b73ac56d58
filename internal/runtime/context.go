// Package runtime wires the shared collaborators commands need: the
// logger, the user config, and the orchestrator over the discovered
// hierarchy.
package runtime

import (
	"context"
	"os"

	"github.com/delabrcd/lockstep-rebase/internal/config"
	"github.com/delabrcd/lockstep-rebase/internal/git"
	"github.com/delabrcd/lockstep-rebase/internal/hierarchy"
	"github.com/delabrcd/lockstep-rebase/internal/orchestrate"
	"github.com/delabrcd/lockstep-rebase/internal/prompt"
	"github.com/delabrcd/lockstep-rebase/internal/tui"
)

// Context provides access to the orchestrator and output for commands
type Context struct {
	Orchestrator *orchestrate.Orchestrator
	Hierarchy    *hierarchy.Hierarchy
	Splog        *tui.Splog
	Config       *config.Config
	Agent        prompt.UserAgent
}

// New discovers the hierarchy from startDir and builds the command
// context. startDir empty means the current working directory.
func New(ctx context.Context, startDir string, agent prompt.UserAgent) (*Context, error) {
	if err := git.CheckGitBinary(); err != nil {
		return nil, err
	}

	if startDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		startDir = wd
	}

	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}

	logPath := cfg.Log.Path
	if logPath == "" || os.Getenv("LOCKSTEP_REBASE_LOG") != "" {
		logPath = tui.DefaultLogPath()
	}
	splog, err := tui.NewSplogWithFile(logPath)
	if err != nil {
		// Fall back to console-only logging
		splog = tui.NewSplog()
	}

	mapper := hierarchy.NewMapper(git.NewGateway, splog)
	h, err := mapper.Discover(ctx, startDir)
	if err != nil {
		return nil, err
	}

	orch, err := orchestrate.New(h, git.NewGateway, agent, splog)
	if err != nil {
		return nil, err
	}

	return &Context{
		Orchestrator: orch,
		Hierarchy:    h,
		Splog:        splog,
		Config:       cfg,
		Agent:        agent,
	}, nil
}

// Close flushes and closes the log sink
func (c *Context) Close() {
	if c.Splog != nil {
		_ = c.Splog.Close()
	}
}
