package migrate

import (
	"strings"
	"time"
)

const (
	defaultSearchQueryConstant       = "uses:github/codeql-action/init@v2 in:file language:YAML"
	defaultPageSizeConstant          = 10
	defaultBranchNameConstant        = "update-codeql-v3"
	defaultCommitMessageConstant     = "Update CodeQL to v3"
	defaultPullRequestTitleConstant  = "Upgrade CodeQL Action to v3"
	defaultPullRequestBodyConstant   = "GitHub has deprecated CodeQL Action v2. This PR updates workflows to use CodeQL Action v3."
	defaultMaxWorkersConstant        = 4
	defaultRetryAttemptsConstant     = 4
	defaultRetryDelaySecondsConstant = 2
)

// CommandConfiguration captures persisted configuration for the migrate command.
type CommandConfiguration struct {
	SearchQuery            string `mapstructure:"search_query"`
	PageSize               int    `mapstructure:"page_size"`
	DryRun                 bool   `mapstructure:"dry_run"`
	BranchName             string `mapstructure:"branch_name"`
	SkipCleanup            bool   `mapstructure:"skip_cleanup"`
	MaxWorkers             int    `mapstructure:"max_workers"`
	CommitMessage          string `mapstructure:"commit_message"`
	PullRequestTitle       string `mapstructure:"pr_title"`
	PullRequestBody        string `mapstructure:"pr_body"`
	RunTimeoutSeconds      int    `mapstructure:"run_timeout"`
	RetryAttempts          int    `mapstructure:"retry_attempts"`
	RetryDelaySeconds      int    `mapstructure:"retry_delay"`
	FailureIssueRepository string `mapstructure:"failure_issue_repo"`
}

// DefaultCommandConfiguration returns baseline configuration values for the migrate command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		SearchQuery:       defaultSearchQueryConstant,
		PageSize:          defaultPageSizeConstant,
		BranchName:        defaultBranchNameConstant,
		MaxWorkers:        defaultMaxWorkersConstant,
		CommitMessage:     defaultCommitMessageConstant,
		PullRequestTitle:  defaultPullRequestTitleConstant,
		PullRequestBody:   defaultPullRequestBodyConstant,
		RetryAttempts:     defaultRetryAttemptsConstant,
		RetryDelaySeconds: defaultRetryDelaySecondsConstant,
	}
}

// DefaultConfigurationValues exposes migrate defaults keyed beneath the
// provided configuration prefix for registration with the configuration loader.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationKeyPrefix + ".search_query":       defaults.SearchQuery,
		configurationKeyPrefix + ".page_size":          defaults.PageSize,
		configurationKeyPrefix + ".dry_run":            defaults.DryRun,
		configurationKeyPrefix + ".branch_name":        defaults.BranchName,
		configurationKeyPrefix + ".skip_cleanup":       defaults.SkipCleanup,
		configurationKeyPrefix + ".max_workers":        defaults.MaxWorkers,
		configurationKeyPrefix + ".commit_message":     defaults.CommitMessage,
		configurationKeyPrefix + ".pr_title":           defaults.PullRequestTitle,
		configurationKeyPrefix + ".pr_body":            defaults.PullRequestBody,
		configurationKeyPrefix + ".run_timeout":        defaults.RunTimeoutSeconds,
		configurationKeyPrefix + ".retry_attempts":     defaults.RetryAttempts,
		configurationKeyPrefix + ".retry_delay":        defaults.RetryDelaySeconds,
		configurationKeyPrefix + ".failure_issue_repo": defaults.FailureIssueRepository,
	}
}

// Sanitize trims configured values and restores defaults for empty or invalid entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	defaults := DefaultCommandConfiguration()

	sanitized.SearchQuery = fallbackWhenBlank(configuration.SearchQuery, defaults.SearchQuery)
	sanitized.BranchName = fallbackWhenBlank(configuration.BranchName, defaults.BranchName)
	sanitized.CommitMessage = fallbackWhenBlank(configuration.CommitMessage, defaults.CommitMessage)
	sanitized.PullRequestTitle = fallbackWhenBlank(configuration.PullRequestTitle, defaults.PullRequestTitle)
	sanitized.PullRequestBody = fallbackWhenBlank(configuration.PullRequestBody, defaults.PullRequestBody)
	sanitized.FailureIssueRepository = strings.TrimSpace(configuration.FailureIssueRepository)

	if sanitized.PageSize <= 0 {
		sanitized.PageSize = defaults.PageSize
	}
	if sanitized.MaxWorkers <= 0 {
		sanitized.MaxWorkers = defaults.MaxWorkers
	}
	if sanitized.RetryAttempts <= 0 {
		sanitized.RetryAttempts = defaults.RetryAttempts
	}
	if sanitized.RetryDelaySeconds <= 0 {
		sanitized.RetryDelaySeconds = defaults.RetryDelaySeconds
	}
	if sanitized.RunTimeoutSeconds < 0 {
		sanitized.RunTimeoutSeconds = 0
	}

	return sanitized
}

// RunTimeout converts the configured timeout into a duration; zero means unbounded.
func (configuration CommandConfiguration) RunTimeout() time.Duration {
	return time.Duration(configuration.RunTimeoutSeconds) * time.Second
}

// RetryDelay converts the configured retry delay into a duration.
func (configuration CommandConfiguration) RetryDelay() time.Duration {
	return time.Duration(configuration.RetryDelaySeconds) * time.Second
}

func fallbackWhenBlank(value string, fallback string) string {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return fallback
	}
	return trimmedValue
}
