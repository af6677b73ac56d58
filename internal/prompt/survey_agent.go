package prompt

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

// ForcePushPhrase is the exact confirmation required before a force-push
const ForcePushPhrase = "force push"

// ResolvedSentinel is the word the user types to signal that file
// conflicts are resolved and staged
const ResolvedSentinel = "resolved"

// TerminalAgent implements UserAgent with survey prompts on the terminal
type TerminalAgent struct{}

// NewTerminalAgent creates a TerminalAgent
func NewTerminalAgent() *TerminalAgent {
	return &TerminalAgent{}
}

// PromptRemoteBranchCreate asks whether to create a local branch from remote
func (a *TerminalAgent) PromptRemoteBranchCreate(repo, branch, remote string) (bool, error) {
	create := false
	q := &survey.Confirm{
		Message: fmt.Sprintf("Branch %s only exists on %s in %s. Create a local branch from %s/%s?",
			branch, remote, repo, remote, branch),
		Default: true,
	}
	if err := survey.AskOne(q, &create); err != nil {
		return false, err
	}
	return create, nil
}

// PromptAutoDiscoveredSubmodule proposes including a discovered submodule
func (a *TerminalAgent) PromptAutoDiscoveredSubmodule(submodulePath, suggestedSrc, suggestedTgt string) (SubmoduleAnswer, error) {
	const (
		optInclude  = "include"
		optExclude  = "exclude"
		optOverride = "include with different branches"
	)

	choice := ""
	q := &survey.Select{
		Message: fmt.Sprintf("Submodule %s changed pointer (%s -> %s). Include it in the rebase?",
			submodulePath, suggestedSrc, suggestedTgt),
		Options: []string{optInclude, optExclude, optOverride},
		Default: optInclude,
	}
	if err := survey.AskOne(q, &choice); err != nil {
		return SubmoduleAnswer{}, err
	}

	switch choice {
	case optInclude:
		return SubmoduleAnswer{Decision: SubmoduleInclude}, nil
	case optExclude:
		return SubmoduleAnswer{Decision: SubmoduleExclude}, nil
	}

	answer := SubmoduleAnswer{Decision: SubmoduleIncludeOverride}
	src := &survey.Input{
		Message: fmt.Sprintf("Source branch for %s", submodulePath),
		Default: suggestedSrc,
	}
	if err := survey.AskOne(src, &answer.Source); err != nil {
		return SubmoduleAnswer{}, err
	}
	tgt := &survey.Input{
		Message: fmt.Sprintf("Target branch for %s", submodulePath),
		Default: suggestedTgt,
	}
	if err := survey.AskOne(tgt, &answer.Target); err != nil {
		return SubmoduleAnswer{}, err
	}
	return answer, nil
}

// AwaitFileConflictResolution blocks until the user types the sentinel
// word, or "abort" to cancel the session
func (a *TerminalAgent) AwaitFileConflictResolution(repo string, paths []string) (bool, error) {
	for {
		answer := ""
		q := &survey.Input{
			Message: fmt.Sprintf("Resolve the conflicts in %s (%s), stage them, then type %q (or \"abort\"):",
				repo, strings.Join(paths, ", "), ResolvedSentinel),
		}
		if err := survey.AskOne(q, &answer); err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case ResolvedSentinel:
			return true, nil
		case "abort":
			return false, nil
		}
	}
}

// ConfirmForcePush requires the exact confirmation phrase before pushing
func (a *TerminalAgent) ConfirmForcePush(repo, branch string, ahead, behind int) (bool, error) {
	answer := ""
	q := &survey.Input{
		Message: fmt.Sprintf("%s: %s is %d ahead / %d behind its upstream. Type %q to push with lease:",
			repo, branch, ahead, behind, ForcePushPhrase),
	}
	if err := survey.AskOne(q, &answer); err != nil {
		return false, err
	}
	return strings.TrimSpace(answer) == ForcePushPhrase, nil
}

// Confirm asks a yes/no question
func (a *TerminalAgent) Confirm(message string) (bool, error) {
	ok := false
	q := &survey.Confirm{Message: message}
	if err := survey.AskOne(q, &ok); err != nil {
		return false, err
	}
	return ok, nil
}
