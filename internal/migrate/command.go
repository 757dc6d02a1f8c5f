package migrate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/codeql-tools/migrator/internal/execshell"
	"github.com/codeql-tools/migrator/internal/githubauth"
	"github.com/codeql-tools/migrator/internal/githubcli"
	"github.com/codeql-tools/migrator/internal/gitrepo"
	"github.com/codeql-tools/migrator/internal/utils"
)

const (
	commandUseConstant                          = "migrate"
	commandShortDescriptionConstant             = "Migrate repositories from CodeQL Action v2 to v3"
	commandLongDescriptionConstant              = "migrate searches GitHub for workflows still pinned to github/codeql-action@v2, rewrites each matching reference to @v3 in a disposable clone, and opens (or updates) a pull request per repository."
	searchQueryFlagNameConstant                 = "search-query"
	searchQueryFlagUsageConstant                = "Code search query used to discover candidate repositories"
	pageSizeFlagNameConstant                    = "page-size"
	pageSizeFlagUsageConstant                   = "Number of code search results requested per page"
	dryRunFlagNameConstant                      = "dry-run"
	dryRunFlagUsageConstant                     = "Patch and commit locally without pushing or opening pull requests"
	branchNameFlagNameConstant                  = "branch-name"
	branchNameFlagUsageConstant                 = "Branch name used for the migration commit"
	skipCleanupFlagNameConstant                 = "skip-cleanup"
	skipCleanupFlagUsageConstant                = "Retain workspace clones on disk after the run"
	maxWorkersFlagNameConstant                  = "max-workers"
	maxWorkersFlagUsageConstant                 = "Maximum number of repositories migrated concurrently"
	commitMessageFlagNameConstant               = "commit-message"
	commitMessageFlagUsageConstant              = "Commit message used for workflow updates"
	pullRequestTitleFlagNameConstant            = "pr-title"
	pullRequestTitleFlagUsageConstant           = "Title applied to created pull requests"
	pullRequestBodyFlagNameConstant             = "pr-body"
	pullRequestBodyFlagUsageConstant            = "Body applied to created pull requests"
	runTimeoutFlagNameConstant                  = "run-timeout"
	runTimeoutFlagUsageConstant                 = "Overall run timeout in seconds (0 disables the timeout)"
	retryAttemptsFlagNameConstant               = "retry-attempts"
	retryAttemptsFlagUsageConstant              = "Maximum attempts for rate-limited GitHub operations"
	retryDelayFlagNameConstant                  = "retry-delay"
	retryDelayFlagUsageConstant                 = "Initial backoff delay in seconds for rate-limited GitHub operations"
	failureIssueRepoFlagNameConstant            = "failure-issue-repo"
	failureIssueRepoFlagUsageConstant           = "Repository (owner/name) that receives a tracking issue when migrations fail"
	missingTokenMessageConstant                 = "GitHub token not found; set GH_TOKEN, GITHUB_TOKEN, or GITHUB_API_TOKEN"
	repositoryManagerCreationErrorTemplate      = "unable to construct repository manager: %w"
	githubClientCreationErrorTemplate           = "unable to construct GitHub client: %w"
	locatorCreationErrorTemplateConstant        = "unable to construct candidate locator: %w"
	workspaceManagerCreationErrorTemplate       = "unable to construct workspace manager: %w"
	publisherCreationErrorTemplateConstant      = "unable to construct publisher: %w"
	migrationRunErrorTemplateConstant           = "migration run failed: %w"
	outcomeRepositoryFieldNameConstant          = "repository"
	outcomeStatusFieldNameConstant              = "status"
	outcomePullRequestFieldNameConstant         = "pull_request_url"
	outcomeReasonFieldNameConstant              = "reason"
	repositoryOutcomeMessageConstant            = "Repository outcome"
)

// ErrMissingGitHubToken indicates no usable GitHub token was found in the environment.
var ErrMissingGitHubToken = errors.New(missingTokenMessageConstant)

// CommandExecutor abstracts shell execution for git and GitHub CLI operations.
type CommandExecutor interface {
	gitrepo.GitCommandExecutor
	githubcli.GitHubCommandExecutor
}

// ServiceProvider constructs a migration service from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (*Service, error)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// TokenResolver reports whether a usable GitHub token is available.
type TokenResolver func() (string, bool)

type commandOptions struct {
	debugLoggingEnabled bool
	configuration       CommandConfiguration
}

// CommandBuilder assembles the migrate Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	Executor                     CommandExecutor
	ServiceProvider              ServiceProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	TokenResolver                TokenResolver
}

// Build constructs the migrate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runMigrate,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(searchQueryFlagNameConstant, defaults.SearchQuery, searchQueryFlagUsageConstant)
	command.Flags().Int(pageSizeFlagNameConstant, defaults.PageSize, pageSizeFlagUsageConstant)
	command.Flags().Bool(dryRunFlagNameConstant, defaults.DryRun, dryRunFlagUsageConstant)
	command.Flags().String(branchNameFlagNameConstant, defaults.BranchName, branchNameFlagUsageConstant)
	command.Flags().Bool(skipCleanupFlagNameConstant, defaults.SkipCleanup, skipCleanupFlagUsageConstant)
	command.Flags().Int(maxWorkersFlagNameConstant, defaults.MaxWorkers, maxWorkersFlagUsageConstant)
	command.Flags().String(commitMessageFlagNameConstant, defaults.CommitMessage, commitMessageFlagUsageConstant)
	command.Flags().String(pullRequestTitleFlagNameConstant, defaults.PullRequestTitle, pullRequestTitleFlagUsageConstant)
	command.Flags().String(pullRequestBodyFlagNameConstant, defaults.PullRequestBody, pullRequestBodyFlagUsageConstant)
	command.Flags().Int(runTimeoutFlagNameConstant, defaults.RunTimeoutSeconds, runTimeoutFlagUsageConstant)
	command.Flags().Int(retryAttemptsFlagNameConstant, defaults.RetryAttempts, retryAttemptsFlagUsageConstant)
	command.Flags().Int(retryDelayFlagNameConstant, defaults.RetryDelaySeconds, retryDelayFlagUsageConstant)
	command.Flags().String(failureIssueRepoFlagNameConstant, defaults.FailureIssueRepository, failureIssueRepoFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runMigrate(command *cobra.Command, arguments []string) error {
	options := builder.parseOptions(command)

	if _, tokenAvailable := builder.resolveToken(); !tokenAvailable {
		return ErrMissingGitHubToken
	}

	logger := builder.resolveLogger(options.debugLoggingEnabled)

	executor, executorError := builder.resolveExecutor(logger)
	if executorError != nil {
		return executorError
	}

	repositoryManager, managerError := gitrepo.NewRepositoryManager(executor)
	if managerError != nil {
		return fmt.Errorf(repositoryManagerCreationErrorTemplate, managerError)
	}

	githubClient, githubClientError := githubcli.NewClient(executor)
	if githubClientError != nil {
		return fmt.Errorf(githubClientCreationErrorTemplate, githubClientError)
	}

	retryPolicy := githubcli.RetryPolicy{
		MaxAttempts:  options.configuration.RetryAttempts,
		InitialDelay: options.configuration.RetryDelay(),
		MaxDelay:     defaultMaxRetryDelay(options.configuration.RetryDelay()),
	}

	locator, locatorError := NewLocator(LocatorOptions{
		Logger:      logger,
		Client:      githubClient,
		Query:       options.configuration.SearchQuery,
		PageSize:    options.configuration.PageSize,
		RetryPolicy: retryPolicy,
	})
	if locatorError != nil {
		return fmt.Errorf(locatorCreationErrorTemplateConstant, locatorError)
	}

	workspaceManager, workspaceManagerError := NewWorkspaceManager(logger, repositoryManager, options.configuration.SkipCleanup)
	if workspaceManagerError != nil {
		return fmt.Errorf(workspaceManagerCreationErrorTemplate, workspaceManagerError)
	}

	patchEngine := NewPatchEngine()

	publisher, publisherError := NewPublisher(logger, repositoryManager, githubClient, retryPolicy)
	if publisherError != nil {
		return fmt.Errorf(publisherCreationErrorTemplateConstant, publisherError)
	}

	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger:            logger,
		Locator:           locator,
		WorkspaceProvider: workspaceManager,
		Patcher:           patchEngine,
		Verifier:          NewVerifier(patchEngine),
		Publisher:         publisher,
		IssueCreator:      githubClient,
	})
	if serviceError != nil {
		return serviceError
	}

	summary, runError := service.Run(command.Context(), RunOptions{
		BranchName:             options.configuration.BranchName,
		CommitMessage:          options.configuration.CommitMessage,
		PullRequestTitle:       options.configuration.PullRequestTitle,
		PullRequestBody:        options.configuration.PullRequestBody,
		DryRun:                 options.configuration.DryRun,
		MaxWorkers:             options.configuration.MaxWorkers,
		RunTimeout:             options.configuration.RunTimeout(),
		FailureIssueRepository: options.configuration.FailureIssueRepository,
	})

	builder.logOutcomes(logger, summary)

	if runError != nil {
		return fmt.Errorf(migrationRunErrorTemplateConstant, runError)
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) commandOptions {
	configuration := builder.resolveConfiguration()

	debugEnabled := false
	if command != nil {
		contextAccessor := utils.NewCommandContextAccessor()
		if logLevel, available := contextAccessor.LogLevel(command.Context()); available {
			if strings.EqualFold(logLevel, string(utils.LogLevelDebug)) {
				debugEnabled = true
			}
		}
	}

	if command != nil {
		flags := command.Flags()
		if flags.Changed(searchQueryFlagNameConstant) {
			configuration.SearchQuery, _ = flags.GetString(searchQueryFlagNameConstant)
		}
		if flags.Changed(pageSizeFlagNameConstant) {
			configuration.PageSize, _ = flags.GetInt(pageSizeFlagNameConstant)
		}
		if flags.Changed(dryRunFlagNameConstant) {
			configuration.DryRun, _ = flags.GetBool(dryRunFlagNameConstant)
		}
		if flags.Changed(branchNameFlagNameConstant) {
			configuration.BranchName, _ = flags.GetString(branchNameFlagNameConstant)
		}
		if flags.Changed(skipCleanupFlagNameConstant) {
			configuration.SkipCleanup, _ = flags.GetBool(skipCleanupFlagNameConstant)
		}
		if flags.Changed(maxWorkersFlagNameConstant) {
			configuration.MaxWorkers, _ = flags.GetInt(maxWorkersFlagNameConstant)
		}
		if flags.Changed(commitMessageFlagNameConstant) {
			configuration.CommitMessage, _ = flags.GetString(commitMessageFlagNameConstant)
		}
		if flags.Changed(pullRequestTitleFlagNameConstant) {
			configuration.PullRequestTitle, _ = flags.GetString(pullRequestTitleFlagNameConstant)
		}
		if flags.Changed(pullRequestBodyFlagNameConstant) {
			configuration.PullRequestBody, _ = flags.GetString(pullRequestBodyFlagNameConstant)
		}
		if flags.Changed(runTimeoutFlagNameConstant) {
			configuration.RunTimeoutSeconds, _ = flags.GetInt(runTimeoutFlagNameConstant)
		}
		if flags.Changed(retryAttemptsFlagNameConstant) {
			configuration.RetryAttempts, _ = flags.GetInt(retryAttemptsFlagNameConstant)
		}
		if flags.Changed(retryDelayFlagNameConstant) {
			configuration.RetryDelaySeconds, _ = flags.GetInt(retryDelayFlagNameConstant)
		}
		if flags.Changed(failureIssueRepoFlagNameConstant) {
			configuration.FailureIssueRepository, _ = flags.GetString(failureIssueRepoFlagNameConstant)
		}
	}

	return commandOptions{
		debugLoggingEnabled: debugEnabled,
		configuration:       configuration.Sanitize(),
	}
}

func (builder *CommandBuilder) resolveLogger(enableDebug bool) *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if enableDebug {
		logger = logger.WithOptions(zap.IncreaseLevel(zapcore.DebugLevel))
	}
	return logger
}

func (builder *CommandBuilder) resolveExecutor(logger *zap.Logger) (CommandExecutor, error) {
	if builder.Executor != nil {
		return builder.Executor, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}
	shellExecutor, creationError := execshell.NewShellExecutor(logger, commandRunner, humanReadableLogging)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (*Service, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveToken() (string, bool) {
	if builder.TokenResolver != nil {
		return builder.TokenResolver()
	}
	return githubauth.ResolveToken(nil)
}

func (builder *CommandBuilder) logOutcomes(logger *zap.Logger, summary RunSummary) {
	for _, outcome := range summary.Outcomes {
		logger.Info(repositoryOutcomeMessageConstant,
			zap.String(outcomeRepositoryFieldNameConstant, outcome.Repository),
			zap.String(outcomeStatusFieldNameConstant, string(outcome.Status)),
			zap.String(outcomePullRequestFieldNameConstant, outcome.PullRequestURL),
			zap.String(outcomeReasonFieldNameConstant, outcome.Reason),
		)
	}
}

func defaultMaxRetryDelay(initialDelay time.Duration) time.Duration {
	maxDelay := githubcli.DefaultRetryPolicy().MaxDelay
	if initialDelay > maxDelay {
		return initialDelay
	}
	return maxDelay
}
