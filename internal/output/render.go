package output

import (
	"fmt"
	"strings"

	"github.com/delabrcd/lockstep-rebase/internal/hierarchy"
	"github.com/delabrcd/lockstep-rebase/internal/orchestrate"
)

// RenderHierarchy draws the repository tree with depth-cycled colors
func RenderHierarchy(h *hierarchy.Hierarchy) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Repository hierarchy") + "\n")

	var visit func(id hierarchy.RepoID, prefix string, last bool)
	visit = func(id hierarchy.RepoID, prefix string, last bool) {
		node := h.Node(id)

		connector := ""
		childPrefix := prefix
		if id != h.Root {
			if last {
				connector = prefix + "└─ "
				childPrefix = prefix + "   "
			} else {
				connector = prefix + "├─ "
				childPrefix = prefix + "│  "
			}
		}

		label := depthStyle(node.Depth).Render(h.DisplayPath(id))
		branch := node.CurrentBranch
		if branch == "" {
			branch = "detached"
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", connector, label,
			dimStyle.Render("["+branch+" @ "+shortSha(node.HeadBefore)+"]")))

		links := node.Submodules
		for i, link := range links {
			visit(link.Child, childPrefix, i == len(links)-1)
		}
	}
	visit(h.Root, "", true)

	for _, path := range h.Uninitialized {
		b.WriteString(errStyle.Render("  ! "+path+" (not initialized)") + "\n")
	}
	return b.String()
}

// RenderPlan draws the ordered task list, marking disabled tasks
func RenderPlan(plan *orchestrate.Plan) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Rebase plan (session %s)", plan.SessionID)) + "\n")

	for i, task := range plan.Tasks {
		marker := okStyle.Render("✓")
		note := ""
		if !task.Enabled {
			marker = dimStyle.Render("-")
			note = dimStyle.Render(" (skipped)")
		}
		commits := ""
		if task.Enabled && task.ExpectedCommits > 0 {
			commits = dimStyle.Render(fmt.Sprintf(" %d commits", task.ExpectedCommits))
		}
		b.WriteString(fmt.Sprintf(" %s %d. %s  %s → %s%s%s\n",
			marker, i+1, task.Display, task.Source, task.Target, commits, note))
	}
	return b.String()
}

// RenderBackups draws backup refs grouped by repository
func RenderBackups(backups []orchestrate.SessionBackup) string {
	if len(backups) == 0 {
		return dimStyle.Render("No backup branches found.") + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Backup branches") + "\n")
	lastRepo := ""
	for _, sb := range backups {
		if sb.Display != lastRepo {
			b.WriteString(depthStyle(0).Render(sb.Display) + "\n")
			lastRepo = sb.Display
		}
		b.WriteString(fmt.Sprintf("  %s  %s %s\n",
			sb.Backup.Name,
			dimStyle.Render("session "+sb.Backup.SessionID),
			shaStyle.Render(shortSha(sb.Backup.Tip))))
	}
	return b.String()
}

// RenderRestore draws per-repo restore outcomes
func RenderRestore(outcomes []orchestrate.RestoreOutcome) string {
	var b strings.Builder
	for _, oc := range outcomes {
		if oc.Err != nil {
			b.WriteString(fmt.Sprintf(" %s %s: %v\n", errStyle.Render("✗"), oc.Display, oc.Err))
			continue
		}
		b.WriteString(fmt.Sprintf(" %s %s: %s ← %s\n",
			okStyle.Render("✓"), oc.Display, oc.Branch, shaStyle.Render(shortSha(oc.Tip))))
	}
	return b.String()
}

// RenderResult draws the session summary after execution
func RenderResult(result *orchestrate.Result) string {
	var b strings.Builder
	switch result.State {
	case orchestrate.SessionCompleted:
		b.WriteString(okStyle.Render("✅ Session "+result.SessionID+" completed") + "\n")
	case orchestrate.SessionAborted:
		b.WriteString(errStyle.Render("Session "+result.SessionID+" aborted") + "\n")
	default:
		b.WriteString(errStyle.Render("Session "+result.SessionID+" failed") + "\n")
	}

	for _, outcome := range result.Completed {
		b.WriteString(fmt.Sprintf("  %s: %d commits rewritten\n", outcome.Task.Display, outcome.Mapped))
	}

	if len(result.Resolutions.Resolved) > 0 {
		b.WriteString(headerStyle.Render("Auto-resolved submodule pointers") + "\n")
		for _, rp := range result.Resolutions.Resolved {
			if rp.KeptOurs {
				b.WriteString(fmt.Sprintf("  %s: kept %s\n", rp.SubmodulePath, shaStyle.Render(shortSha(rp.NewSha))))
				continue
			}
			b.WriteString(fmt.Sprintf("  %s: %s → %s\n", rp.SubmodulePath,
				shaStyle.Render(shortSha(rp.OldSha)), shaStyle.Render(shortSha(rp.NewSha))))
		}
	}

	for _, drift := range result.SubjectDrift {
		b.WriteString(errStyle.Render("  subject drift: "+drift) + "\n")
	}

	if result.Failed != nil {
		b.WriteString(fmt.Sprintf("  failed in %s: %v\n", result.Failed.Task.Display, result.Failed.Err))
		if result.Failed.LastOldSha != "" {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  last mapped commit: %s → %s",
				shortSha(result.Failed.LastOldSha), shortSha(result.Failed.LastNewSha))) + "\n")
		}
		b.WriteString(dimStyle.Render("  restore with: lockstep-rebase backups restore --session-id "+result.SessionID) + "\n")
	}
	return b.String()
}

func shortSha(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
