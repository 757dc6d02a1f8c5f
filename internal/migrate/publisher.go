package migrate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/codeql-tools/migrator/internal/githubcli"
	"github.com/codeql-tools/migrator/internal/gitrepo"
)

const (
	publisherRepositoryManagerMissingMessageConstant = "repository manager not configured"
	publisherClientMissingMessageConstant            = "pull request client not configured"
	publishBranchErrorTemplateConstant               = "unable to create branch: %w"
	publishStageErrorTemplateConstant                = "unable to stage workflow changes: %w"
	publishCommitErrorTemplateConstant               = "unable to create commit: %w"
	publishPushErrorTemplateConstant                 = "unable to push branch: %w"
	publishListErrorTemplateConstant                 = "unable to list pull requests: %w"
	publishCreateErrorTemplateConstant               = "unable to create pull request: %w"
	openPullRequestStateConstant                     = "open"
	noChangesCommittedMessageConstant                = "No workflow changes to commit"
	existingPullRequestMessageConstant               = "Existing pull request already tracks migration branch"
	pullRequestCreatedMessageConstant                = "Pull request created"
	dryRunPublishMessageConstant                     = "Dry run: skipping push and pull request creation"
	publishRepositoryFieldNameConstant               = "repository"
	publishBranchFieldNameConstant                   = "branch"
	pullRequestURLFieldNameConstant                  = "pull_request_url"
)

// Publisher-side configuration errors.
var (
	ErrPublisherRepositoryManagerNotConfigured = errors.New(publisherRepositoryManagerMissingMessageConstant)
	ErrPublisherClientNotConfigured            = errors.New(publisherClientMissingMessageConstant)
)

// PullRequestClient is the subset of the GitHub client the Publisher depends on.
type PullRequestClient interface {
	ListPullRequests(executionContext context.Context, repository string, options githubcli.PullRequestListOptions) ([]githubcli.PullRequest, error)
	CreatePullRequest(executionContext context.Context, repository string, options githubcli.PullRequestCreateOptions) (string, error)
}

// PublishRequest carries everything the Publisher needs for one repository.
type PublishRequest struct {
	Workspace        *Workspace
	PatchResults     []PatchResult
	BranchName       string
	CommitMessage    string
	PullRequestTitle string
	PullRequestBody  string
	DryRun           bool
}

// Publisher commits rewritten workflows to a migration branch and opens or
// reuses a pull request targeting the default branch.
type Publisher struct {
	logger            *zap.Logger
	repositoryManager *gitrepo.RepositoryManager
	client            PullRequestClient
	retryPolicy       githubcli.RetryPolicy
}

// NewPublisher constructs a Publisher.
func NewPublisher(logger *zap.Logger, repositoryManager *gitrepo.RepositoryManager, client PullRequestClient, retryPolicy githubcli.RetryPolicy) (*Publisher, error) {
	if repositoryManager == nil {
		return nil, ErrPublisherRepositoryManagerNotConfigured
	}
	if client == nil {
		return nil, ErrPublisherClientNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		logger:            logger,
		repositoryManager: repositoryManager,
		client:            client,
		retryPolicy:       retryPolicy,
	}, nil
}

// Publish stages and commits the patched workflows, pushes the migration
// branch, and ensures exactly one open pull request tracks it. Re-running
// against a repository that already has the branch and pull request updates
// the existing pull request rather than opening a duplicate.
func (publisher *Publisher) Publish(executionContext context.Context, request PublishRequest) (PublishOutcome, error) {
	repositoryName := request.Workspace.Candidate.Repository
	workspacePath := request.Workspace.Path

	outcome := PublishOutcome{
		Repository:   repositoryName,
		BranchName:   request.BranchName,
		ChangedFiles: collectChangedFiles(request.PatchResults),
		DryRun:       request.DryRun,
	}

	branchError := publisher.repositoryManager.CreateBranch(executionContext, workspacePath, request.BranchName)
	if branchError != nil {
		return outcome, PublishError{Repository: repositoryName, Cause: fmt.Errorf(publishBranchErrorTemplateConstant, branchError)}
	}

	stageError := publisher.repositoryManager.StagePaths(executionContext, workspacePath, []string{workflowsDirectoryRelativePathConstant})
	if stageError != nil {
		return outcome, PublishError{Repository: repositoryName, Cause: fmt.Errorf(publishStageErrorTemplateConstant, stageError)}
	}

	commitError := publisher.repositoryManager.Commit(executionContext, workspacePath, request.CommitMessage)
	if commitError != nil {
		if errors.Is(commitError, gitrepo.ErrNothingToCommit) {
			publisher.logger.Info(noChangesCommittedMessageConstant,
				zap.String(publishRepositoryFieldNameConstant, repositoryName),
			)
			outcome.Status = PublishStatusSkipped
			return outcome, nil
		}
		return outcome, PublishError{Repository: repositoryName, Cause: fmt.Errorf(publishCommitErrorTemplateConstant, commitError)}
	}

	if request.DryRun {
		publisher.logger.Info(dryRunPublishMessageConstant,
			zap.String(publishRepositoryFieldNameConstant, repositoryName),
			zap.String(publishBranchFieldNameConstant, request.BranchName),
		)
		existingPullRequest, lookupError := publisher.findOpenPullRequest(executionContext, repositoryName, request.BranchName)
		if lookupError == nil && existingPullRequest != nil {
			outcome.Status = PublishStatusUpdated
			outcome.PullRequestURL = existingPullRequest.URL
			return outcome, nil
		}
		outcome.Status = PublishStatusCreated
		return outcome, nil
	}

	pushError := githubcli.ExecuteWithRetry(executionContext, publisher.retryPolicy, func(retryContext context.Context) error {
		return publisher.repositoryManager.Push(retryContext, workspacePath, gitrepo.PushOptions{
			RemoteName:     defaultRemoteNameConstant,
			BranchName:     request.BranchName,
			ForceWithLease: true,
			SetUpstream:    true,
		})
	})
	if pushError != nil {
		return outcome, PublishError{Repository: repositoryName, Cause: fmt.Errorf(publishPushErrorTemplateConstant, pushError)}
	}

	existingPullRequest, lookupError := publisher.findOpenPullRequest(executionContext, repositoryName, request.BranchName)
	if lookupError != nil {
		return outcome, PublishError{Repository: repositoryName, Cause: fmt.Errorf(publishListErrorTemplateConstant, lookupError)}
	}
	if existingPullRequest != nil {
		publisher.logger.Info(existingPullRequestMessageConstant,
			zap.String(publishRepositoryFieldNameConstant, repositoryName),
			zap.String(pullRequestURLFieldNameConstant, existingPullRequest.URL),
		)
		outcome.Status = PublishStatusUpdated
		outcome.PullRequestURL = existingPullRequest.URL
		return outcome, nil
	}

	var pullRequestURL string
	creationError := githubcli.ExecuteWithRetry(executionContext, publisher.retryPolicy, func(retryContext context.Context) error {
		var createError error
		pullRequestURL, createError = publisher.client.CreatePullRequest(retryContext, repositoryName, githubcli.PullRequestCreateOptions{
			Title:      request.PullRequestTitle,
			Body:       request.PullRequestBody,
			BaseBranch: request.Workspace.Candidate.DefaultBranch,
			HeadBranch: request.BranchName,
		})
		return createError
	})
	if creationError != nil {
		return outcome, PublishError{Repository: repositoryName, Cause: fmt.Errorf(publishCreateErrorTemplateConstant, creationError)}
	}

	publisher.logger.Info(pullRequestCreatedMessageConstant,
		zap.String(publishRepositoryFieldNameConstant, repositoryName),
		zap.String(pullRequestURLFieldNameConstant, pullRequestURL),
	)
	outcome.Status = PublishStatusCreated
	outcome.PullRequestURL = strings.TrimSpace(pullRequestURL)
	return outcome, nil
}

func (publisher *Publisher) findOpenPullRequest(executionContext context.Context, repository string, branchName string) (*githubcli.PullRequest, error) {
	var pullRequests []githubcli.PullRequest
	listError := githubcli.ExecuteWithRetry(executionContext, publisher.retryPolicy, func(retryContext context.Context) error {
		var queryError error
		pullRequests, queryError = publisher.client.ListPullRequests(retryContext, repository, githubcli.PullRequestListOptions{
			State:      openPullRequestStateConstant,
			HeadBranch: branchName,
		})
		return queryError
	})
	if listError != nil {
		return nil, listError
	}
	for index := range pullRequests {
		if pullRequests[index].HeadRefName == branchName {
			return &pullRequests[index], nil
		}
	}
	if len(pullRequests) > 0 {
		return &pullRequests[0], nil
	}
	return nil, nil
}

func collectChangedFiles(patchResults []PatchResult) []string {
	uniqueFiles := make(map[string]struct{}, len(patchResults))
	for _, patchResult := range patchResults {
		uniqueFiles[patchResult.FilePath] = struct{}{}
	}
	changedFiles := make([]string, 0, len(uniqueFiles))
	for filePath := range uniqueFiles {
		changedFiles = append(changedFiles, filePath)
	}
	sort.Strings(changedFiles)
	return changedFiles
}
