package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/codeql-tools/migrator/internal/gitrepo"
)

const (
	workspaceDirectoryPatternConstant          = "codeql-migrator-*"
	workspaceManagerMissingMessageConstant     = "repository manager not configured"
	workspaceCloneURLErrorTemplateConstant     = "invalid clone url: %w"
	workspaceCreationErrorTemplateConstant     = "unable to create workspace directory: %w"
	workspaceCloneErrorTemplateConstant        = "unable to clone repository: %w"
	workspaceHeadErrorTemplateConstant         = "unable to resolve checked out commit: %w"
	workspaceRetainedMessageConstant           = "Retaining workspace for inspection"
	workspacePathFieldNameConstant             = "workspace_path"
	workspaceRepositoryFieldNameConstant       = "repository"
	defaultRemoteNameConstant                  = "origin"
)

// ErrRepositoryManagerNotConfigured indicates the workspace manager was
// constructed without a repository manager.
var ErrRepositoryManagerNotConfigured = errors.New(workspaceManagerMissingMessageConstant)

// Workspace holds a shallow clone of a candidate repository.
type Workspace struct {
	Path             string
	Candidate        Candidate
	CheckedOutCommit string

	logger *zap.Logger
	retain bool
}

// Release removes the workspace directory unless retention was requested.
func (workspace *Workspace) Release() error {
	if workspace == nil || len(workspace.Path) == 0 {
		return nil
	}
	if workspace.retain {
		if workspace.logger != nil {
			workspace.logger.Info(workspaceRetainedMessageConstant,
				zap.String(workspaceRepositoryFieldNameConstant, workspace.Candidate.Repository),
				zap.String(workspacePathFieldNameConstant, workspace.Path),
			)
		}
		return nil
	}
	return os.RemoveAll(workspace.Path)
}

// WorkspaceManager provisions temporary shallow clones for candidates.
type WorkspaceManager struct {
	logger            *zap.Logger
	repositoryManager *gitrepo.RepositoryManager
	retainWorkspaces  bool
}

// NewWorkspaceManager constructs a WorkspaceManager.
func NewWorkspaceManager(logger *zap.Logger, repositoryManager *gitrepo.RepositoryManager, retainWorkspaces bool) (*WorkspaceManager, error) {
	if repositoryManager == nil {
		return nil, ErrRepositoryManagerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkspaceManager{
		logger:            logger,
		repositoryManager: repositoryManager,
		retainWorkspaces:  retainWorkspaces,
	}, nil
}

// Acquire clones the candidate's default branch into a fresh temporary
// directory and records the checked out commit.
func (manager *WorkspaceManager) Acquire(executionContext context.Context, candidate Candidate) (*Workspace, error) {
	if _, parseError := gitrepo.ParseRemoteURL(candidate.CloneURL); parseError != nil {
		return nil, WorkspaceError{Repository: candidate.Repository, Cause: fmt.Errorf(workspaceCloneURLErrorTemplateConstant, parseError)}
	}

	workspacePath, directoryError := os.MkdirTemp("", workspaceDirectoryPatternConstant)
	if directoryError != nil {
		return nil, WorkspaceError{Repository: candidate.Repository, Cause: fmt.Errorf(workspaceCreationErrorTemplateConstant, directoryError)}
	}

	cloneError := manager.repositoryManager.CloneShallow(executionContext, gitrepo.CloneOptions{
		RemoteURL:   candidate.CloneURL,
		Destination: workspacePath,
		Branch:      candidate.DefaultBranch,
	})
	if cloneError != nil {
		removalError := os.RemoveAll(workspacePath)
		return nil, WorkspaceError{Repository: candidate.Repository, Cause: errors.Join(fmt.Errorf(workspaceCloneErrorTemplateConstant, cloneError), removalError)}
	}

	checkedOutCommit, headError := manager.repositoryManager.HeadCommit(executionContext, workspacePath)
	if headError != nil {
		removalError := os.RemoveAll(workspacePath)
		return nil, WorkspaceError{Repository: candidate.Repository, Cause: errors.Join(fmt.Errorf(workspaceHeadErrorTemplateConstant, headError), removalError)}
	}

	return &Workspace{
		Path:             workspacePath,
		Candidate:        candidate,
		CheckedOutCommit: checkedOutCommit,
		logger:           manager.logger,
		retain:           manager.retainWorkspaces,
	}, nil
}
