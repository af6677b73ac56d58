// Package prompt abstracts the human interactions the orchestrator needs.
// The terminal implementation is survey-backed; tests use Scripted.
package prompt

// SubmoduleDecision is the answer to an auto-discovery proposal
type SubmoduleDecision int

const (
	// SubmoduleInclude accepts the proposal with the suggested branches
	SubmoduleInclude SubmoduleDecision = iota
	// SubmoduleExclude rejects the proposal
	SubmoduleExclude
	// SubmoduleIncludeOverride accepts with user-supplied branches
	SubmoduleIncludeOverride
)

// SubmoduleAnswer carries the decision and any branch overrides
type SubmoduleAnswer struct {
	Decision SubmoduleDecision
	Source   string // set when Decision == SubmoduleIncludeOverride
	Target   string // set when Decision == SubmoduleIncludeOverride
}

// UserAgent is the capability set the orchestrator needs from the human.
// Implementations must not be trusted for post-conditions: the caller
// re-validates repository state after every answer.
type UserAgent interface {
	// PromptRemoteBranchCreate asks whether to create a local branch
	// from its remote counterpart. Declining is fatal for that repo.
	PromptRemoteBranchCreate(repo, branch, remote string) (bool, error)

	// PromptAutoDiscoveredSubmodule proposes including a submodule whose
	// pointer changed between the branches.
	PromptAutoDiscoveredSubmodule(submodulePath, suggestedSrc, suggestedTgt string) (SubmoduleAnswer, error)

	// AwaitFileConflictResolution blocks until the user signals that the
	// listed conflicts are resolved. Returns false to abort the session.
	AwaitFileConflictResolution(repo string, paths []string) (bool, error)

	// ConfirmForcePush gates a force-push with an exact confirmation
	// phrase. ahead/behind describe the local branch vs its upstream.
	ConfirmForcePush(repo, branch string, ahead, behind int) (bool, error)

	// Confirm asks a yes/no question
	Confirm(message string) (bool, error)
}
