package git

import (
	"context"
	"strings"
)

// gitlink tree entry mode for submodule pointers
const gitlinkMode = "160000"

// SubmoduleEntries returns the gitlinks recorded in the committed tree at
// HEAD, read from the committed .gitmodules. Repositories without a
// .gitmodules file have no submodules.
func (g *realGateway) SubmoduleEntries(ctx context.Context) ([]SubmoduleEntry, error) {
	output, err := g.runner.Run(ctx, "config", "--blob", "HEAD:.gitmodules",
		"--get-regexp", `^submodule\..*\.path$`)
	if err != nil {
		// No .gitmodules blob at HEAD
		return nil, nil
	}

	var entries []SubmoduleEntry
	for _, line := range strings.Split(output, "\n") {
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			continue
		}
		path := strings.TrimSpace(fields[1])
		sha, err := g.SubmodulePointerAt(ctx, "HEAD", path)
		if err != nil {
			return nil, err
		}
		if sha == "" {
			// Listed in .gitmodules but absent from the tree
			continue
		}
		entries = append(entries, SubmoduleEntry{Path: path, RecordedSha: sha})
	}
	return entries, nil
}

// SubmodulePointerAt returns the gitlink commit SHA recorded at path in the
// tree of ref, or "" when the tree has no gitlink there.
func (g *realGateway) SubmodulePointerAt(ctx context.Context, ref, path string) (string, error) {
	output, err := g.runner.Run(ctx, "ls-tree", ref, "--", path)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(output)
	if line == "" {
		return "", nil
	}
	// Format: "160000 commit <sha>\t<path>"
	fields := strings.Fields(line)
	if len(fields) >= 3 && fields[0] == gitlinkMode && fields[1] == "commit" {
		return fields[2], nil
	}
	return "", nil
}

// SubmodulePointerChanged reports whether the gitlink at path differs
// between the target and source branch trees
func (g *realGateway) SubmodulePointerChanged(ctx context.Context, target, source, path string) (bool, error) {
	targetSha, err := g.SubmodulePointerAt(ctx, target, path)
	if err != nil {
		return false, err
	}
	sourceSha, err := g.SubmodulePointerAt(ctx, source, path)
	if err != nil {
		return false, err
	}
	return targetSha != sourceSha, nil
}
