package migrate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/codeql-tools/migrator/internal/githubcli"
)

const (
	locatorMissingMessageConstant            = "candidate locator not configured"
	workspaceProviderMissingMessageConstant  = "workspace provider not configured"
	patcherMissingMessageConstant            = "workflow patcher not configured"
	verifierMissingMessageConstant           = "patch verifier not configured"
	outcomePublisherMissingMessageConstant   = "outcome publisher not configured"
	workspaceReleaseWarningMessageConstant   = "Failed to remove workspace directory"
	repositoryFailedMessageConstant          = "Repository migration failed"
	repositoryCompletedMessageConstant       = "Repository migration completed"
	runSummaryMessageConstant                = "Migration run completed"
	failureIssueTitleTemplateConstant        = "CodeQL v3 migration failures (%s)"
	failureIssueLineTemplateConstant         = "- %s (%s): %s"
	failureIssueHeaderConstant               = "The following repositories could not be migrated to CodeQL Action v3:"
	failureIssueFiledMessageConstant         = "Failure issue filed"
	failureIssueErrorMessageConstant         = "Unable to file failure issue"
	failureIssueTimestampLayoutConstant      = "2006-01-02"
	failureIssueURLFieldNameConstant         = "issue_url"
	serviceRepositoryFieldNameConstant       = "repository"
	serviceStatusFieldNameConstant           = "status"
	serviceStageFieldNameConstant            = "stage"
	processedCountFieldNameConstant          = "processed"
	changedCountFieldNameConstant            = "changed"
	failedCountFieldNameConstant             = "failed"
	discoveryFailureReasonTemplateConstant   = "discovery: %s"
)

// Service-side configuration errors.
var (
	ErrLocatorNotConfigured           = errors.New(locatorMissingMessageConstant)
	ErrWorkspaceProviderNotConfigured = errors.New(workspaceProviderMissingMessageConstant)
	ErrPatcherNotConfigured           = errors.New(patcherMissingMessageConstant)
	ErrVerifierNotConfigured          = errors.New(verifierMissingMessageConstant)
	ErrPublisherNotConfigured         = errors.New(outcomePublisherMissingMessageConstant)
)

// CandidateLocator discovers repositories to migrate.
type CandidateLocator interface {
	DiscoverCandidates(executionContext context.Context) (DiscoveryReport, error)
}

// WorkspaceProvider clones a candidate into a disposable working directory.
type WorkspaceProvider interface {
	Acquire(executionContext context.Context, candidate Candidate) (*Workspace, error)
}

// WorkflowPatcher rewrites legacy action references inside a workspace.
type WorkflowPatcher interface {
	ApplyToWorkspace(repository string, workspacePath string) ([]PatchResult, error)
}

// PatchVerifier validates patched workflow files before they are published.
type PatchVerifier interface {
	VerifyWorkspace(repository string, workspacePath string, patchResults []PatchResult) error
}

// OutcomePublisher commits, pushes, and opens pull requests for patched workspaces.
type OutcomePublisher interface {
	Publish(executionContext context.Context, request PublishRequest) (PublishOutcome, error)
}

// IssueCreator files tracking issues for failed migrations.
type IssueCreator interface {
	CreateIssue(executionContext context.Context, repository string, options githubcli.IssueCreateOptions) (string, error)
}

// ServiceDependencies describes required collaborators for migration runs.
type ServiceDependencies struct {
	Logger            *zap.Logger
	Locator           CandidateLocator
	WorkspaceProvider WorkspaceProvider
	Patcher           WorkflowPatcher
	Verifier          PatchVerifier
	Publisher         OutcomePublisher
	IssueCreator      IssueCreator
}

// RunOptions configures one migration run.
type RunOptions struct {
	BranchName              string
	CommitMessage           string
	PullRequestTitle        string
	PullRequestBody         string
	DryRun                  bool
	MaxWorkers              int
	RunTimeout              time.Duration
	FailureIssueRepository  string
}

// Service orchestrates discovery, patching, and publication across many
// repositories with a bounded worker pool.
type Service struct {
	logger            *zap.Logger
	locator           CandidateLocator
	workspaceProvider WorkspaceProvider
	patcher           WorkflowPatcher
	verifier          PatchVerifier
	publisher         OutcomePublisher
	issueCreator      IssueCreator
}

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Locator == nil {
		return nil, ErrLocatorNotConfigured
	}
	if dependencies.WorkspaceProvider == nil {
		return nil, ErrWorkspaceProviderNotConfigured
	}
	if dependencies.Patcher == nil {
		return nil, ErrPatcherNotConfigured
	}
	if dependencies.Verifier == nil {
		return nil, ErrVerifierNotConfigured
	}
	if dependencies.Publisher == nil {
		return nil, ErrPublisherNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		logger:            logger,
		locator:           dependencies.Locator,
		workspaceProvider: dependencies.WorkspaceProvider,
		patcher:           dependencies.Patcher,
		verifier:          dependencies.Verifier,
		publisher:         dependencies.Publisher,
		issueCreator:      dependencies.IssueCreator,
	}, nil
}

// Run discovers candidates and migrates each one on a bounded worker pool.
// A failure inside one repository never aborts the others; the summary
// records every terminal outcome. When the run deadline expires, no new
// candidates are dispatched and the remainder are recorded as cancelled,
// while in-flight workers abort with the expired context. ErrRunFailed is
// returned alongside the summary when at least one repository failed.
func (service *Service) Run(executionContext context.Context, options RunOptions) (RunSummary, error) {
	runContext := executionContext
	if options.RunTimeout > 0 {
		var cancelRun context.CancelFunc
		runContext, cancelRun = context.WithTimeout(executionContext, options.RunTimeout)
		defer cancelRun()
	}

	discoveryReport, discoveryError := service.locator.DiscoverCandidates(runContext)
	if discoveryError != nil {
		return RunSummary{}, discoveryError
	}

	outcomes := make([]PublishOutcome, 0, len(discoveryReport.Candidates)+len(discoveryReport.Failures))
	for _, discoveryFailure := range discoveryReport.Failures {
		outcomes = append(outcomes, PublishOutcome{
			Repository:   discoveryFailure.Repository,
			Status:       PublishStatusFailed,
			FailureStage: classifyFailureStage(discoveryFailure.Cause),
			Reason:       fmt.Sprintf(discoveryFailureReasonTemplateConstant, discoveryFailure.Cause),
			DryRun:       options.DryRun,
		})
	}

	maxWorkers := options.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkersConstant
	}

	outcomeChannel := make(chan PublishOutcome, len(discoveryReport.Candidates))
	workerGroup, workerContext := errgroup.WithContext(runContext)
	workerGroup.SetLimit(maxWorkers)

	for _, candidate := range discoveryReport.Candidates {
		if contextError := runContext.Err(); contextError != nil {
			outcomeChannel <- PublishOutcome{
				Repository:   candidate.Repository,
				Status:       PublishStatusFailed,
				FailureStage: FailureStageCancelled,
				Reason:       contextError.Error(),
				DryRun:       options.DryRun,
			}
			continue
		}

		migrationCandidate := candidate
		workerGroup.Go(func() error {
			outcomeChannel <- service.migrateRepository(workerContext, migrationCandidate, options)
			return nil
		})
	}

	_ = workerGroup.Wait()
	close(outcomeChannel)

	for outcome := range outcomeChannel {
		outcomes = append(outcomes, outcome)
	}
	sort.Slice(outcomes, func(firstIndex int, secondIndex int) bool {
		return outcomes[firstIndex].Repository < outcomes[secondIndex].Repository
	})

	summary := RunSummary{Outcomes: outcomes, Processed: len(outcomes)}
	for _, outcome := range outcomes {
		switch outcome.Status {
		case PublishStatusCreated, PublishStatusUpdated:
			summary.Changed++
		case PublishStatusFailed:
			summary.Failed++
		}
	}

	service.logger.Info(runSummaryMessageConstant,
		zap.Int(processedCountFieldNameConstant, summary.Processed),
		zap.Int(changedCountFieldNameConstant, summary.Changed),
		zap.Int(failedCountFieldNameConstant, summary.Failed),
	)

	if summary.Failed > 0 {
		service.fileFailureIssue(executionContext, options, summary)
		return summary, ErrRunFailed
	}
	return summary, nil
}

func (service *Service) migrateRepository(executionContext context.Context, candidate Candidate, options RunOptions) PublishOutcome {
	workspace, workspaceError := service.workspaceProvider.Acquire(executionContext, candidate)
	if workspaceError != nil {
		return service.failedOutcome(candidate.Repository, options.DryRun, workspaceError)
	}
	defer func() {
		if releaseError := workspace.Release(); releaseError != nil {
			service.logger.Warn(workspaceReleaseWarningMessageConstant,
				zap.String(serviceRepositoryFieldNameConstant, candidate.Repository),
				zap.Error(releaseError),
			)
		}
	}()

	patchResults, patchError := service.patcher.ApplyToWorkspace(candidate.Repository, workspace.Path)
	if patchError != nil {
		return service.failedOutcome(candidate.Repository, options.DryRun, patchError)
	}

	if len(patchResults) == 0 {
		outcome := PublishOutcome{
			Repository: candidate.Repository,
			BranchName: options.BranchName,
			Status:     PublishStatusSkipped,
			DryRun:     options.DryRun,
		}
		service.logCompletion(outcome)
		return outcome
	}

	if verificationError := service.verifier.VerifyWorkspace(candidate.Repository, workspace.Path, patchResults); verificationError != nil {
		return service.failedOutcome(candidate.Repository, options.DryRun, verificationError)
	}

	outcome, publishError := service.publisher.Publish(executionContext, PublishRequest{
		Workspace:        workspace,
		PatchResults:     patchResults,
		BranchName:       options.BranchName,
		CommitMessage:    options.CommitMessage,
		PullRequestTitle: options.PullRequestTitle,
		PullRequestBody:  options.PullRequestBody,
		DryRun:           options.DryRun,
	})
	if publishError != nil {
		failedOutcome := service.failedOutcome(candidate.Repository, options.DryRun, publishError)
		failedOutcome.BranchName = outcome.BranchName
		failedOutcome.ChangedFiles = outcome.ChangedFiles
		return failedOutcome
	}

	service.logCompletion(outcome)
	return outcome
}

func (service *Service) failedOutcome(repository string, dryRun bool, pipelineError error) PublishOutcome {
	outcome := PublishOutcome{
		Repository:   repository,
		Status:       PublishStatusFailed,
		FailureStage: classifyFailureStage(pipelineError),
		Reason:       pipelineError.Error(),
		DryRun:       dryRun,
	}
	service.logger.Warn(repositoryFailedMessageConstant,
		zap.String(serviceRepositoryFieldNameConstant, repository),
		zap.String(serviceStageFieldNameConstant, string(outcome.FailureStage)),
		zap.Error(pipelineError),
	)
	return outcome
}

func (service *Service) logCompletion(outcome PublishOutcome) {
	service.logger.Info(repositoryCompletedMessageConstant,
		zap.String(serviceRepositoryFieldNameConstant, outcome.Repository),
		zap.String(serviceStatusFieldNameConstant, string(outcome.Status)),
	)
}

func (service *Service) fileFailureIssue(executionContext context.Context, options RunOptions, summary RunSummary) {
	if service.issueCreator == nil || options.DryRun {
		return
	}
	issueRepository := strings.TrimSpace(options.FailureIssueRepository)
	if len(issueRepository) == 0 {
		return
	}

	bodyLines := []string{failureIssueHeaderConstant, ""}
	for _, failedOutcome := range summary.FailedOutcomes() {
		bodyLines = append(bodyLines, fmt.Sprintf(failureIssueLineTemplateConstant, failedOutcome.Repository, failedOutcome.FailureStage, failedOutcome.Reason))
	}

	issueURL, issueError := service.issueCreator.CreateIssue(executionContext, issueRepository, githubcli.IssueCreateOptions{
		Title: fmt.Sprintf(failureIssueTitleTemplateConstant, time.Now().Format(failureIssueTimestampLayoutConstant)),
		Body:  strings.Join(bodyLines, "\n"),
	})
	if issueError != nil {
		service.logger.Warn(failureIssueErrorMessageConstant, zap.Error(issueError))
		return
	}
	service.logger.Info(failureIssueFiledMessageConstant, zap.String(failureIssueURLFieldNameConstant, issueURL))
}
