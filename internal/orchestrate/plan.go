// Package orchestrate plans and executes a lockstep rebase session across
// the repository hierarchy.
package orchestrate

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	lockerrors "github.com/delabrcd/lockstep-rebase/internal/errors"
	"github.com/delabrcd/lockstep-rebase/internal/hierarchy"
	"github.com/delabrcd/lockstep-rebase/internal/prompt"
)

// BranchOverride is a per-repo branch-map entry. Target may be empty to
// keep the global target.
type BranchOverride struct {
	Source string
	Target string
}

// PlanOptions are the user inputs to plan construction
type PlanOptions struct {
	GlobalSource string
	GlobalTarget string
	Include      []string
	Exclude      []string
	BranchMap    map[string]BranchOverride
	Remote       string

	// AutoDiscover enables only the root by default and proposes each
	// submodule whose pointer changed between the branches
	AutoDiscover bool
	// AutoSelectSubmodules accepts auto-discovery proposals without
	// prompting
	AutoSelectSubmodules bool

	DryRun         bool
	Force          bool
	OfferForcePush bool
}

// RepoTask is the effective rebase to perform in one repository
type RepoTask struct {
	Repo    hierarchy.RepoID
	Path    string // absolute worktree path
	Display string // name for the root, relative path otherwise
	Source  string
	Target  string
	Enabled bool

	// ExpectedCommits is the replay count measured at plan time
	ExpectedCommits int

	// PointerChanged records, per submodule path of this repo, whether
	// the gitlink differs between Target and Source
	PointerChanged map[string]bool
}

// Plan is the ordered, immutable set of per-repository rebase tasks
type Plan struct {
	SessionID      string
	Hierarchy      *hierarchy.Hierarchy
	Tasks          []RepoTask // execution order
	AutoDiscovered bool
	Remote         string
	OfferForcePush bool
}

// EnabledTasks returns the tasks that will execute, in order
func (p *Plan) EnabledTasks() []RepoTask {
	var out []RepoTask
	for _, t := range p.Tasks {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out
}

// taskIndexByRepo returns the position of a repo's task in the plan
func (p *Plan) taskIndexByRepo(id hierarchy.RepoID) int {
	for i := range p.Tasks {
		if p.Tasks[i].Repo == id {
			return i
		}
	}
	return -1
}

// NewSessionID returns a short, time-ordered, locally unique token used
// to namespace backup branches.
func NewSessionID(now time.Time) string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		// Fall back to the nanosecond counter
		nano := now.UnixNano()
		suffix = []byte{byte(nano >> 24), byte(nano >> 16), byte(nano >> 8), byte(nano)}
	}
	return now.Format("20060102T150405") + "-" + hex.EncodeToString(suffix)
}

// resolveRef resolves a user-supplied repo reference to exactly one node.
// Ambiguity is fatal; an unknown ref naming an uninitialized submodule
// reports that specifically.
func resolveRef(h *hierarchy.Hierarchy, ref string) (hierarchy.RepoID, error) {
	matches := h.Resolve(ref)
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		for _, path := range h.Uninitialized {
			if path == ref {
				return 0, lockerrors.NewSubmoduleNotInitializedError(h.Node(h.Root).AbsPath, ref)
			}
		}
		return 0, fmt.Errorf("no repository matches %q", ref)
	default:
		var names []string
		for _, id := range matches {
			names = append(names, h.Node(id).AbsPath)
		}
		return 0, lockerrors.NewAmbiguousRepoRefError(ref, names)
	}
}

// BuildPlan derives the ordered task list from the hierarchy and the
// user's inputs. It consults each repository's gateway for submodule
// pointer diffs, and the user agent for auto-discovery proposals.
func (o *Orchestrator) BuildPlan(ctx context.Context, opts PlanOptions) (*Plan, error) {
	h := o.hierarchy
	plan := &Plan{
		SessionID:      NewSessionID(time.Now()),
		Hierarchy:      h,
		AutoDiscovered: opts.AutoDiscover,
		Remote:         opts.Remote,
		OfferForcePush: opts.OfferForcePush,
	}

	// Default task per repo in execution order
	for _, id := range h.Order {
		node := h.Node(id)
		plan.Tasks = append(plan.Tasks, RepoTask{
			Repo:    id,
			Path:    node.AbsPath,
			Display: h.DisplayPath(id),
			Source:  opts.GlobalSource,
			Target:  opts.GlobalTarget,
			Enabled: true,
		})
	}

	// Branch-map overrides
	for ref, override := range opts.BranchMap {
		id, err := resolveRef(h, ref)
		if err != nil {
			return nil, err
		}
		idx := plan.taskIndexByRepo(id)
		if override.Source != "" {
			plan.Tasks[idx].Source = override.Source
		}
		if override.Target != "" {
			plan.Tasks[idx].Target = override.Target
		}
	}

	excluded := make(map[hierarchy.RepoID]bool)
	for _, ref := range opts.Exclude {
		id, err := resolveRef(h, ref)
		if err != nil {
			return nil, err
		}
		excluded[id] = true
	}

	switch {
	case opts.AutoDiscover:
		if err := o.autoDiscover(ctx, plan, excluded, opts); err != nil {
			return nil, err
		}
	case len(opts.Include) > 0:
		if err := applyInclude(plan, h, opts.Include, excluded); err != nil {
			return nil, err
		}
	}

	// Exclusion wins unconditionally
	for i := range plan.Tasks {
		if excluded[plan.Tasks[i].Repo] {
			plan.Tasks[i].Enabled = false
		}
	}

	// Pointer-diff snapshot for every enabled repo's submodules; feeds
	// the resolver and the plan invariant check
	if err := o.computePointerDiffs(ctx, plan); err != nil {
		return nil, err
	}
	o.warnUncoveredSubmodules(plan, excluded)

	return plan, nil
}

// applyInclude enables only the listed repos, plus every ancestor on the
// path from an enabled repo to the root: a parent must be rebased when
// any of its descendants is, unless explicitly excluded.
func applyInclude(plan *Plan, h *hierarchy.Hierarchy, include []string, excluded map[hierarchy.RepoID]bool) error {
	enabled := make(map[hierarchy.RepoID]bool)
	for _, ref := range include {
		id, err := resolveRef(h, ref)
		if err != nil {
			return err
		}
		enabled[id] = true
		for _, ancestor := range h.AncestorPath(id) {
			if !excluded[ancestor] {
				enabled[ancestor] = true
			}
		}
	}
	for i := range plan.Tasks {
		plan.Tasks[i].Enabled = enabled[plan.Tasks[i].Repo]
	}
	return nil
}

// autoDiscover enables the root and proposes each submodule whose
// pointer differs between the parent task's branches, walking down from
// the root so nested submodules of accepted repos are considered too.
func (o *Orchestrator) autoDiscover(ctx context.Context, plan *Plan, excluded map[hierarchy.RepoID]bool, opts PlanOptions) error {
	h := plan.Hierarchy
	for i := range plan.Tasks {
		plan.Tasks[i].Enabled = plan.Tasks[i].Repo == h.Root
	}

	var walk func(id hierarchy.RepoID) error
	walk = func(id hierarchy.RepoID) error {
		parentTask := &plan.Tasks[plan.taskIndexByRepo(id)]
		parentGw := o.gateways[id]

		links := append([]hierarchy.SubmoduleLink(nil), h.Node(id).Submodules...)
		sort.Slice(links, func(a, b int) bool { return links[a].PathInParent < links[b].PathInParent })

		for _, link := range links {
			if excluded[link.Child] {
				continue
			}
			changed, err := parentGw.SubmodulePointerChanged(ctx, parentTask.Target, parentTask.Source, link.PathInParent)
			if err != nil {
				return err
			}
			if !changed {
				continue
			}

			childTask := &plan.Tasks[plan.taskIndexByRepo(link.Child)]
			suggestedSrc, suggestedTgt, err := o.inferChildBranches(ctx, parentTask, link, childTask)
			if err != nil {
				return err
			}

			answer := prompt.SubmoduleAnswer{Decision: prompt.SubmoduleInclude}
			if !opts.AutoSelectSubmodules {
				var promptErr error
				answer, promptErr = o.agent.PromptAutoDiscoveredSubmodule(
					h.DisplayPath(link.Child), suggestedSrc, suggestedTgt)
				if promptErr != nil {
					return promptErr
				}
			}

			switch answer.Decision {
			case prompt.SubmoduleExclude:
				excluded[link.Child] = true
				continue
			case prompt.SubmoduleIncludeOverride:
				childTask.Source = answer.Source
				childTask.Target = answer.Target
			default:
				childTask.Source = suggestedSrc
				childTask.Target = suggestedTgt
			}
			childTask.Enabled = true

			if err := walk(link.Child); err != nil {
				return err
			}
		}
		return nil
	}

	return walk(h.Root)
}

// inferChildBranches guesses per-submodule branches from the pointer
// SHAs' containing branches. A branch whose tip equals the pointer wins
// exactly; otherwise the child's current task branch is kept when it
// contains the pointer, and failing that the first containing branch is a
// best guess the user may override.
func (o *Orchestrator) inferChildBranches(ctx context.Context, parentTask *RepoTask, link hierarchy.SubmoduleLink, childTask *RepoTask) (string, string, error) {
	parentGw := o.gateways[link.Parent]
	childGw := o.gateways[link.Child]

	infer := func(parentRef, fallback string) (string, error) {
		pointer, err := parentGw.SubmodulePointerAt(ctx, parentRef, link.PathInParent)
		if err != nil || pointer == "" {
			return fallback, err
		}
		branches, err := childGw.BranchesContaining(ctx, pointer)
		if err != nil || len(branches) == 0 {
			// The pointer may not exist locally in the child; keep the fallback
			return fallback, nil
		}
		for _, branch := range branches {
			tip, tipErr := childGw.RevParse(ctx, branch)
			if tipErr == nil && tip == pointer {
				return branch, nil
			}
		}
		for _, branch := range branches {
			if branch == fallback {
				return fallback, nil
			}
		}
		return branches[0], nil
	}

	src, err := infer(parentTask.Source, childTask.Source)
	if err != nil {
		return "", "", err
	}
	tgt, err := infer(parentTask.Target, childTask.Target)
	if err != nil {
		return "", "", err
	}
	return src, tgt, nil
}

// computePointerDiffs snapshots, for every enabled task, which of its
// submodule gitlinks differ between target and source
func (o *Orchestrator) computePointerDiffs(ctx context.Context, plan *Plan) error {
	for i := range plan.Tasks {
		task := &plan.Tasks[i]
		if !task.Enabled {
			continue
		}
		node := plan.Hierarchy.Node(task.Repo)
		if len(node.Submodules) == 0 {
			continue
		}
		gw := o.gateways[task.Repo]
		task.PointerChanged = make(map[string]bool, len(node.Submodules))
		for _, link := range node.Submodules {
			changed, err := gw.SubmodulePointerChanged(ctx, task.Target, task.Source, link.PathInParent)
			if err != nil {
				return err
			}
			task.PointerChanged[link.PathInParent] = changed
		}
	}
	return nil
}

// warnUncoveredSubmodules flags enabled parents whose changed submodules
// are neither enabled earlier in the plan nor explicitly excluded. The
// plan still runs; the rebase will surface an unresolvable conflict if
// the pointer cannot be rewritten.
func (o *Orchestrator) warnUncoveredSubmodules(plan *Plan, excluded map[hierarchy.RepoID]bool) {
	enabled := make(map[hierarchy.RepoID]bool)
	for _, t := range plan.Tasks {
		if t.Enabled {
			enabled[t.Repo] = true
		}
	}
	for _, t := range plan.Tasks {
		if !t.Enabled {
			continue
		}
		for _, link := range plan.Hierarchy.Node(t.Repo).Submodules {
			if t.PointerChanged[link.PathInParent] && !enabled[link.Child] && !excluded[link.Child] {
				o.splog.Warn("Submodule %s of %s changed pointer but is not part of the plan",
					link.PathInParent, t.Display)
			}
		}
	}
}
