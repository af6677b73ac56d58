package prompt

import "fmt"

// Scripted is a UserAgent with canned answers, for tests and
// non-interactive runs. The zero value declines remote-branch creation,
// file-conflict waits, force pushes and confirmations, but includes
// auto-discovered submodules (the zero SubmoduleAnswer is SubmoduleInclude).
type Scripted struct {
	CreateRemoteBranches bool
	SubmoduleAnswers     map[string]SubmoduleAnswer // keyed by submodule path
	DefaultSubmodule     SubmoduleAnswer
	ResolveFileConflicts bool
	AllowForcePush       bool
	ConfirmAll           bool

	// Calls records every prompt issued, for assertions
	Calls []string
}

// NewAutoAgent returns a Scripted agent that accepts every proposal and
// confirmation except force pushes, which stay declined.
func NewAutoAgent() *Scripted {
	return &Scripted{
		CreateRemoteBranches: true,
		DefaultSubmodule:     SubmoduleAnswer{Decision: SubmoduleInclude},
		ResolveFileConflicts: true,
		ConfirmAll:           true,
	}
}

// PromptRemoteBranchCreate answers from CreateRemoteBranches
func (s *Scripted) PromptRemoteBranchCreate(repo, branch, remote string) (bool, error) {
	s.Calls = append(s.Calls, fmt.Sprintf("remote-branch:%s:%s", repo, branch))
	return s.CreateRemoteBranches, nil
}

// PromptAutoDiscoveredSubmodule answers from SubmoduleAnswers, falling
// back to DefaultSubmodule
func (s *Scripted) PromptAutoDiscoveredSubmodule(submodulePath, suggestedSrc, suggestedTgt string) (SubmoduleAnswer, error) {
	s.Calls = append(s.Calls, fmt.Sprintf("submodule:%s:%s:%s", submodulePath, suggestedSrc, suggestedTgt))
	if answer, ok := s.SubmoduleAnswers[submodulePath]; ok {
		return answer, nil
	}
	return s.DefaultSubmodule, nil
}

// AwaitFileConflictResolution answers from ResolveFileConflicts
func (s *Scripted) AwaitFileConflictResolution(repo string, paths []string) (bool, error) {
	s.Calls = append(s.Calls, fmt.Sprintf("file-conflicts:%s:%d", repo, len(paths)))
	return s.ResolveFileConflicts, nil
}

// ConfirmForcePush answers from AllowForcePush
func (s *Scripted) ConfirmForcePush(repo, branch string, ahead, behind int) (bool, error) {
	s.Calls = append(s.Calls, fmt.Sprintf("force-push:%s:%s", repo, branch))
	return s.AllowForcePush, nil
}

// Confirm answers from ConfirmAll
func (s *Scripted) Confirm(message string) (bool, error) {
	s.Calls = append(s.Calls, "confirm:"+message)
	return s.ConfirmAll, nil
}
