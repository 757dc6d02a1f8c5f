package migrate_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codeql-tools/migrator/internal/githubcli"
	"github.com/codeql-tools/migrator/internal/migrate"
)

const (
	testIssueRepositoryConstant     = "octo-org/migration-tracker"
	testIssueURLConstant            = "https://github.com/octo-org/migration-tracker/issues/12"
	testWorkspaceFailureMessage     = "clone refused"
	testRepositoryNameTemplateConst = "octo-org/service-%02d"
)

type stubLocator struct {
	report migrate.DiscoveryReport
	err    error
}

func (locator *stubLocator) DiscoverCandidates(context.Context) (migrate.DiscoveryReport, error) {
	return locator.report, locator.err
}

type stubWorkspaceProvider struct {
	mutex           sync.Mutex
	failures        map[string]error
	acquiredRepos   []string
	workspaceByRepo map[string]*migrate.Workspace
}

func (provider *stubWorkspaceProvider) Acquire(_ context.Context, candidate migrate.Candidate) (*migrate.Workspace, error) {
	provider.mutex.Lock()
	defer provider.mutex.Unlock()
	provider.acquiredRepos = append(provider.acquiredRepos, candidate.Repository)
	if failure, shouldFail := provider.failures[candidate.Repository]; shouldFail {
		return nil, migrate.WorkspaceError{Repository: candidate.Repository, Cause: failure}
	}
	workspace := &migrate.Workspace{Path: "", Candidate: candidate}
	if provider.workspaceByRepo == nil {
		provider.workspaceByRepo = make(map[string]*migrate.Workspace)
	}
	provider.workspaceByRepo[candidate.Repository] = workspace
	return workspace, nil
}

type blockingWorkspaceProvider struct {
	mutex         sync.Mutex
	acquiredRepos []string
}

func (provider *blockingWorkspaceProvider) Acquire(executionContext context.Context, candidate migrate.Candidate) (*migrate.Workspace, error) {
	provider.mutex.Lock()
	provider.acquiredRepos = append(provider.acquiredRepos, candidate.Repository)
	provider.mutex.Unlock()

	<-executionContext.Done()
	return nil, migrate.WorkspaceError{Repository: candidate.Repository, Cause: executionContext.Err()}
}

type stubPatcher struct {
	resultsByRepo map[string][]migrate.PatchResult
	err           error
}

func (patcher *stubPatcher) ApplyToWorkspace(repository string, _ string) ([]migrate.PatchResult, error) {
	if patcher.err != nil {
		return nil, migrate.PatchError{Repository: repository, Cause: patcher.err}
	}
	if patcher.resultsByRepo != nil {
		return patcher.resultsByRepo[repository], nil
	}
	return []migrate.PatchResult{{FilePath: testWorkflowRelativePathConstant, LineNumber: 6}}, nil
}

type stubVerifier struct {
	err error
}

func (verifier *stubVerifier) VerifyWorkspace(repository string, _ string, _ []migrate.PatchResult) error {
	if verifier.err != nil {
		return migrate.PatchError{Repository: repository, Cause: verifier.err}
	}
	return nil
}

type stubOutcomePublisher struct {
	mutex          sync.Mutex
	publishedRepos []string
	errByRepo      map[string]error
}

func (publisher *stubOutcomePublisher) Publish(_ context.Context, request migrate.PublishRequest) (migrate.PublishOutcome, error) {
	publisher.mutex.Lock()
	defer publisher.mutex.Unlock()
	repository := request.Workspace.Candidate.Repository
	publisher.publishedRepos = append(publisher.publishedRepos, repository)
	outcome := migrate.PublishOutcome{
		Repository: repository,
		BranchName: request.BranchName,
		Status:     migrate.PublishStatusCreated,
		DryRun:     request.DryRun,
	}
	if publishFailure, shouldFail := publisher.errByRepo[repository]; shouldFail {
		return outcome, migrate.PublishError{Repository: repository, Cause: publishFailure}
	}
	return outcome, nil
}

type stubIssueCreator struct {
	mutex          sync.Mutex
	createdIssues  []githubcli.IssueCreateOptions
	requestedRepos []string
}

func (creator *stubIssueCreator) CreateIssue(_ context.Context, repository string, options githubcli.IssueCreateOptions) (string, error) {
	creator.mutex.Lock()
	defer creator.mutex.Unlock()
	creator.requestedRepos = append(creator.requestedRepos, repository)
	creator.createdIssues = append(creator.createdIssues, options)
	return testIssueURLConstant, nil
}

func candidatesForServiceTest(count int) []migrate.Candidate {
	candidates := make([]migrate.Candidate, 0, count)
	for index := 1; index <= count; index++ {
		repositoryName := fmt.Sprintf(testRepositoryNameTemplateConst, index)
		candidates = append(candidates, migrate.Candidate{
			Repository:    repositoryName,
			DefaultBranch: testDefaultBranchConstant,
			CloneURL:      "https://github.com/" + repositoryName + ".git",
		})
	}
	return candidates
}

func defaultRunOptions(dryRun bool) migrate.RunOptions {
	return migrate.RunOptions{
		BranchName:       testBranchNameConstant,
		CommitMessage:    testCommitMessageConstant,
		PullRequestTitle: testPullRequestTitleConstant,
		PullRequestBody:  testPullRequestBodyConstant,
		DryRun:           dryRun,
		MaxWorkers:       2,
	}
}

func newServiceUnderTest(testInstance *testing.T, dependencies migrate.ServiceDependencies) *migrate.Service {
	testInstance.Helper()
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	service, creationError := migrate.NewService(dependencies)
	require.NoError(testInstance, creationError)
	return service
}

func TestNewServiceValidation(testInstance *testing.T) {
	baseDependencies := func() migrate.ServiceDependencies {
		return migrate.ServiceDependencies{
			Logger:            zap.NewNop(),
			Locator:           &stubLocator{},
			WorkspaceProvider: &stubWorkspaceProvider{},
			Patcher:           &stubPatcher{},
			Verifier:          &stubVerifier{},
			Publisher:         &stubOutcomePublisher{},
		}
	}

	testCases := []struct {
		name          string
		mutate        func(*migrate.ServiceDependencies)
		expectedError error
	}{
		{name: "missing_locator", mutate: func(dependencies *migrate.ServiceDependencies) { dependencies.Locator = nil }, expectedError: migrate.ErrLocatorNotConfigured},
		{name: "missing_workspace_provider", mutate: func(dependencies *migrate.ServiceDependencies) { dependencies.WorkspaceProvider = nil }, expectedError: migrate.ErrWorkspaceProviderNotConfigured},
		{name: "missing_patcher", mutate: func(dependencies *migrate.ServiceDependencies) { dependencies.Patcher = nil }, expectedError: migrate.ErrPatcherNotConfigured},
		{name: "missing_verifier", mutate: func(dependencies *migrate.ServiceDependencies) { dependencies.Verifier = nil }, expectedError: migrate.ErrVerifierNotConfigured},
		{name: "missing_publisher", mutate: func(dependencies *migrate.ServiceDependencies) { dependencies.Publisher = nil }, expectedError: migrate.ErrPublisherNotConfigured},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			dependencies := baseDependencies()
			testCase.mutate(&dependencies)
			_, creationError := migrate.NewService(dependencies)
			require.ErrorIs(subtestInstance, creationError, testCase.expectedError)
		})
	}
}

func TestServiceRunIsolatesRepositoryFailures(testInstance *testing.T) {
	candidates := candidatesForServiceTest(5)
	failingRepository := candidates[2].Repository

	workspaceProvider := &stubWorkspaceProvider{
		failures: map[string]error{failingRepository: errors.New(testWorkspaceFailureMessage)},
	}
	publisher := &stubOutcomePublisher{}

	service := newServiceUnderTest(testInstance, migrate.ServiceDependencies{
		Locator:           &stubLocator{report: migrate.DiscoveryReport{Candidates: candidates}},
		WorkspaceProvider: workspaceProvider,
		Patcher:           &stubPatcher{},
		Verifier:          &stubVerifier{},
		Publisher:         publisher,
	})

	summary, runError := service.Run(context.Background(), defaultRunOptions(false))
	require.ErrorIs(testInstance, runError, migrate.ErrRunFailed)

	require.Equal(testInstance, 5, summary.Processed)
	require.Equal(testInstance, 4, summary.Changed)
	require.Equal(testInstance, 1, summary.Failed)
	require.Len(testInstance, summary.Outcomes, 5)
	require.Len(testInstance, workspaceProvider.acquiredRepos, 5)
	require.Len(testInstance, publisher.publishedRepos, 4)

	failedOutcomes := summary.FailedOutcomes()
	require.Len(testInstance, failedOutcomes, 1)
	require.Equal(testInstance, failingRepository, failedOutcomes[0].Repository)
	require.Equal(testInstance, migrate.FailureStageWorkspace, failedOutcomes[0].FailureStage)
	require.Contains(testInstance, failedOutcomes[0].Reason, testWorkspaceFailureMessage)
}

func TestServiceRunStopsDispatchingAfterDeadline(testInstance *testing.T) {
	candidates := candidatesForServiceTest(5)
	workspaceProvider := &blockingWorkspaceProvider{}
	publisher := &stubOutcomePublisher{}

	options := defaultRunOptions(false)
	options.MaxWorkers = 1
	options.RunTimeout = 50 * time.Millisecond

	service := newServiceUnderTest(testInstance, migrate.ServiceDependencies{
		Locator:           &stubLocator{report: migrate.DiscoveryReport{Candidates: candidates}},
		WorkspaceProvider: workspaceProvider,
		Patcher:           &stubPatcher{},
		Verifier:          &stubVerifier{},
		Publisher:         publisher,
	})

	summary, runError := service.Run(context.Background(), options)
	require.ErrorIs(testInstance, runError, migrate.ErrRunFailed)

	require.Equal(testInstance, 5, summary.Processed)
	require.Equal(testInstance, 5, summary.Failed)
	require.Len(testInstance, summary.Outcomes, 5)

	cancelledCount := 0
	for _, outcome := range summary.Outcomes {
		require.Equal(testInstance, migrate.PublishStatusFailed, outcome.Status)
		require.Contains(testInstance, outcome.Reason, context.DeadlineExceeded.Error())
		switch outcome.FailureStage {
		case migrate.FailureStageWorkspace:
		case migrate.FailureStageCancelled:
			cancelledCount++
		default:
			testInstance.Fatalf("unexpected failure stage %q for %s", outcome.FailureStage, outcome.Repository)
		}
	}

	require.Equal(testInstance, 5, cancelledCount+len(workspaceProvider.acquiredRepos))
	require.GreaterOrEqual(testInstance, cancelledCount, 1)
	require.Empty(testInstance, publisher.publishedRepos)
}

func TestServiceRunSkipsRepositoriesWithoutMatches(testInstance *testing.T) {
	candidates := candidatesForServiceTest(2)
	publisher := &stubOutcomePublisher{}

	service := newServiceUnderTest(testInstance, migrate.ServiceDependencies{
		Locator:           &stubLocator{report: migrate.DiscoveryReport{Candidates: candidates}},
		WorkspaceProvider: &stubWorkspaceProvider{},
		Patcher: &stubPatcher{resultsByRepo: map[string][]migrate.PatchResult{
			candidates[0].Repository: {{FilePath: testWorkflowRelativePathConstant, LineNumber: 6}},
		}},
		Verifier:  &stubVerifier{},
		Publisher: publisher,
	})

	summary, runError := service.Run(context.Background(), defaultRunOptions(false))
	require.NoError(testInstance, runError)

	require.Equal(testInstance, 2, summary.Processed)
	require.Equal(testInstance, 1, summary.Changed)
	require.Zero(testInstance, summary.Failed)
	require.Equal(testInstance, []string{candidates[0].Repository}, publisher.publishedRepos)

	require.Equal(testInstance, migrate.PublishStatusSkipped, summary.Outcomes[1].Status)
}

func TestServiceRunRecordsDiscoveryFailuresAsOutcomes(testInstance *testing.T) {
	candidates := candidatesForServiceTest(1)
	report := migrate.DiscoveryReport{
		Candidates: candidates,
		Failures: []migrate.CandidateFailure{
			{Repository: testSecondRepositoryConstant, Cause: migrate.DiscoveryError{Cause: errors.New(testMetadataFailureMessage)}},
		},
	}

	service := newServiceUnderTest(testInstance, migrate.ServiceDependencies{
		Locator:           &stubLocator{report: report},
		WorkspaceProvider: &stubWorkspaceProvider{},
		Patcher:           &stubPatcher{},
		Verifier:          &stubVerifier{},
		Publisher:         &stubOutcomePublisher{},
	})

	summary, runError := service.Run(context.Background(), defaultRunOptions(false))
	require.ErrorIs(testInstance, runError, migrate.ErrRunFailed)

	require.Equal(testInstance, 2, summary.Processed)
	require.Equal(testInstance, 1, summary.Failed)

	failedOutcomes := summary.FailedOutcomes()
	require.Len(testInstance, failedOutcomes, 1)
	require.Equal(testInstance, testSecondRepositoryConstant, failedOutcomes[0].Repository)
	require.Equal(testInstance, migrate.FailureStageDiscovery, failedOutcomes[0].FailureStage)
}

func TestServiceRunFatalDiscoveryFailure(testInstance *testing.T) {
	discoveryFailure := migrate.DiscoveryError{Cause: errors.New(testSearchFailureMessageConstant)}

	service := newServiceUnderTest(testInstance, migrate.ServiceDependencies{
		Locator:           &stubLocator{err: discoveryFailure},
		WorkspaceProvider: &stubWorkspaceProvider{},
		Patcher:           &stubPatcher{},
		Verifier:          &stubVerifier{},
		Publisher:         &stubOutcomePublisher{},
	})

	_, runError := service.Run(context.Background(), defaultRunOptions(false))
	require.Error(testInstance, runError)

	reportedFailure := migrate.DiscoveryError{}
	require.ErrorAs(testInstance, runError, &reportedFailure)
}

func TestServiceRunPropagatesDryRun(testInstance *testing.T) {
	candidates := candidatesForServiceTest(3)
	publisher := &stubOutcomePublisher{}

	service := newServiceUnderTest(testInstance, migrate.ServiceDependencies{
		Locator:           &stubLocator{report: migrate.DiscoveryReport{Candidates: candidates}},
		WorkspaceProvider: &stubWorkspaceProvider{},
		Patcher:           &stubPatcher{},
		Verifier:          &stubVerifier{},
		Publisher:         publisher,
	})

	summary, runError := service.Run(context.Background(), defaultRunOptions(true))
	require.NoError(testInstance, runError)

	require.Equal(testInstance, 3, summary.Processed)
	for _, outcome := range summary.Outcomes {
		require.True(testInstance, outcome.DryRun)
	}
}

func TestServiceRunFilesFailureIssue(testInstance *testing.T) {
	candidates := candidatesForServiceTest(2)
	failingRepository := candidates[1].Repository
	issueCreator := &stubIssueCreator{}

	options := defaultRunOptions(false)
	options.FailureIssueRepository = testIssueRepositoryConstant

	service := newServiceUnderTest(testInstance, migrate.ServiceDependencies{
		Locator: &stubLocator{report: migrate.DiscoveryReport{Candidates: candidates}},
		WorkspaceProvider: &stubWorkspaceProvider{
			failures: map[string]error{failingRepository: errors.New(testWorkspaceFailureMessage)},
		},
		Patcher:      &stubPatcher{},
		Verifier:     &stubVerifier{},
		Publisher:    &stubOutcomePublisher{},
		IssueCreator: issueCreator,
	})

	_, runError := service.Run(context.Background(), options)
	require.ErrorIs(testInstance, runError, migrate.ErrRunFailed)

	require.Equal(testInstance, []string{testIssueRepositoryConstant}, issueCreator.requestedRepos)
	require.Len(testInstance, issueCreator.createdIssues, 1)
	require.True(testInstance, strings.Contains(issueCreator.createdIssues[0].Body, failingRepository))
}

func TestServiceRunSkipsFailureIssueOnDryRun(testInstance *testing.T) {
	candidates := candidatesForServiceTest(1)
	issueCreator := &stubIssueCreator{}

	options := defaultRunOptions(true)
	options.FailureIssueRepository = testIssueRepositoryConstant

	service := newServiceUnderTest(testInstance, migrate.ServiceDependencies{
		Locator: &stubLocator{report: migrate.DiscoveryReport{Candidates: candidates}},
		WorkspaceProvider: &stubWorkspaceProvider{
			failures: map[string]error{candidates[0].Repository: errors.New(testWorkspaceFailureMessage)},
		},
		Patcher:      &stubPatcher{},
		Verifier:     &stubVerifier{},
		Publisher:    &stubOutcomePublisher{},
		IssueCreator: issueCreator,
	})

	_, runError := service.Run(context.Background(), options)
	require.ErrorIs(testInstance, runError, migrate.ErrRunFailed)
	require.Empty(testInstance, issueCreator.requestedRepos)
}
