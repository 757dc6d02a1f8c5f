package gitrepo

import (
	"context"
	"errors"
	"strings"

	"github.com/codeql-tools/migrator/internal/execshell"
)

const (
	requiredValueMessageConstant = "value required"

	cloneSubcommandConstant         = "clone"
	checkoutSubcommandConstant      = "checkout"
	addSubcommandConstant           = "add"
	commitSubcommandConstant        = "commit"
	pushSubcommandConstant          = "push"
	revParseSubcommandConstant      = "rev-parse"
	depthFlagConstant               = "--depth"
	shallowDepthValueConstant       = "1"
	singleBranchFlagConstant        = "--single-branch"
	branchFlagConstant              = "--branch"
	createBranchFlagConstant        = "-B"
	allFlagConstant                 = "--all"
	commitMessageFlagConstant       = "-m"
	forceWithLeaseFlagConstant      = "--force-with-lease"
	setUpstreamFlagConstant         = "--set-upstream"
	headReferenceConstant           = "HEAD"
	defaultRemoteNameConstant       = "origin"
	nothingToCommitIndicatorConstant = "nothing to commit"

	executorNotConfiguredMessageConstant = "git executor not configured"
	nothingToCommitMessageConstant       = "nothing to commit"
)

// Sentinel errors surfaced by RepositoryManager.
var (
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	ErrNothingToCommit       = errors.New(nothingToCommitMessageConstant)
)

// GitCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitCommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// CloneOptions configures shallow clone invocations.
type CloneOptions struct {
	RemoteURL   string
	Destination string
	Branch      string
}

// PushOptions configures push invocations.
type PushOptions struct {
	RemoteName     string
	BranchName     string
	ForceWithLease bool
	SetUpstream    bool
}

// RepositoryManager performs git operations against local working copies.
type RepositoryManager struct {
	executor GitCommandExecutor
}

// NewRepositoryManager constructs a RepositoryManager around the provided executor.
func NewRepositoryManager(executor GitCommandExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// CloneShallow performs a depth-one single-branch clone into the destination directory.
func (manager *RepositoryManager) CloneShallow(executionContext context.Context, options CloneOptions) error {
	cloneArguments := []string{
		cloneSubcommandConstant,
		depthFlagConstant,
		shallowDepthValueConstant,
		singleBranchFlagConstant,
	}
	if len(strings.TrimSpace(options.Branch)) > 0 {
		cloneArguments = append(cloneArguments, branchFlagConstant, options.Branch)
	}
	cloneArguments = append(cloneArguments, options.RemoteURL, options.Destination)

	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: cloneArguments})
	return executionError
}

// CreateBranch creates or resets the named branch and checks it out.
func (manager *RepositoryManager) CreateBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	commandDetails := execshell.CommandDetails{
		Arguments:        []string{checkoutSubcommandConstant, createBranchFlagConstant, branchName},
		WorkingDirectory: repositoryPath,
	}
	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	return executionError
}

// StagePaths stages the provided paths, or everything when no paths are supplied.
func (manager *RepositoryManager) StagePaths(executionContext context.Context, repositoryPath string, paths []string) error {
	addArguments := []string{addSubcommandConstant}
	if len(paths) == 0 {
		addArguments = append(addArguments, allFlagConstant)
	} else {
		addArguments = append(addArguments, paths...)
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        addArguments,
		WorkingDirectory: repositoryPath,
	}
	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	return executionError
}

// Commit records staged changes with the supplied message. ErrNothingToCommit is
// returned when the working tree contains no staged changes.
func (manager *RepositoryManager) Commit(executionContext context.Context, repositoryPath string, commitMessage string) error {
	commandDetails := execshell.CommandDetails{
		Arguments:        []string{commitSubcommandConstant, commitMessageFlagConstant, commitMessage},
		WorkingDirectory: repositoryPath,
	}
	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError == nil {
		return nil
	}

	commandFailure := execshell.CommandFailedError{}
	if errors.As(executionError, &commandFailure) {
		combinedOutput := strings.ToLower(commandFailure.Result.StandardOutput + "\n" + commandFailure.Result.StandardError)
		if strings.Contains(combinedOutput, nothingToCommitIndicatorConstant) {
			return ErrNothingToCommit
		}
	}

	return executionError
}

// Push publishes the branch to the remote.
func (manager *RepositoryManager) Push(executionContext context.Context, repositoryPath string, options PushOptions) error {
	remoteName := strings.TrimSpace(options.RemoteName)
	if len(remoteName) == 0 {
		remoteName = defaultRemoteNameConstant
	}

	pushArguments := []string{pushSubcommandConstant}
	if options.ForceWithLease {
		pushArguments = append(pushArguments, forceWithLeaseFlagConstant)
	}
	if options.SetUpstream {
		pushArguments = append(pushArguments, setUpstreamFlagConstant)
	}
	pushArguments = append(pushArguments, remoteName, options.BranchName)

	commandDetails := execshell.CommandDetails{
		Arguments:        pushArguments,
		WorkingDirectory: repositoryPath,
	}
	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	return executionError
}

// HeadCommit resolves the current HEAD commit hash.
func (manager *RepositoryManager) HeadCommit(executionContext context.Context, repositoryPath string) (string, error) {
	commandDetails := execshell.CommandDetails{
		Arguments:        []string{revParseSubcommandConstant, headReferenceConstant},
		WorkingDirectory: repositoryPath,
	}
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}
