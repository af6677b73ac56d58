package git

import (
	"context"
	"sort"
	"strings"
)

// IndexConflicts reads the unmerged index entries and classifies them.
// Gitlink entries (mode 160000) become submodule conflicts with their
// stage-2 (ours) and stage-3 (theirs) pointers; everything else is a file
// conflict.
func (g *realGateway) IndexConflicts(ctx context.Context) (ConflictSet, error) {
	output, err := g.runner.RunRaw(ctx, "ls-files", "--unmerged", "-z")
	if err != nil {
		return ConflictSet{}, err
	}

	type stages struct {
		gitlink bool
		ours    string
		theirs  string
	}
	byPath := map[string]*stages{}
	var order []string

	for _, record := range strings.Split(output, "\x00") {
		if record == "" {
			continue
		}
		// Format: "<mode> <sha> <stage>\t<path>"
		tab := strings.IndexByte(record, '\t')
		if tab < 0 {
			continue
		}
		meta := strings.Fields(record[:tab])
		path := record[tab+1:]
		if len(meta) != 3 {
			continue
		}
		mode, sha, stage := meta[0], meta[1], meta[2]

		entry, ok := byPath[path]
		if !ok {
			entry = &stages{}
			byPath[path] = entry
			order = append(order, path)
		}
		if mode == gitlinkMode {
			entry.gitlink = true
		}
		switch stage {
		case "2":
			entry.ours = sha
		case "3":
			entry.theirs = sha
		}
	}

	sort.Strings(order)
	var set ConflictSet
	for _, path := range order {
		entry := byPath[path]
		if entry.gitlink {
			set.Submodules = append(set.Submodules, SubmoduleConflict{
				Path:      path,
				OursSha:   entry.ours,
				TheirsSha: entry.theirs,
			})
		} else {
			set.Files = append(set.Files, path)
		}
	}
	return set, nil
}

// StagePath stages a single path
func (g *realGateway) StagePath(ctx context.Context, path string) error {
	_, err := g.runner.Run(ctx, "add", "--", path)
	return err
}

// WriteSubmodulePointer sets the gitlink entry at path to sha and stages
// it, clearing the unmerged entries for that path
func (g *realGateway) WriteSubmodulePointer(ctx context.Context, path, sha string) error {
	_, err := g.runner.Run(ctx, "update-index", "--cacheinfo",
		gitlinkMode+","+sha+","+path)
	return err
}

// StagedPaths returns the paths currently staged against HEAD
func (g *realGateway) StagedPaths(ctx context.Context) ([]string, error) {
	return g.runner.RunLines(ctx, "diff", "--cached", "--name-only")
}
