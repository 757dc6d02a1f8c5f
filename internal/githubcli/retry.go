package githubcli

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/codeql-tools/migrator/internal/execshell"
)

const (
	defaultRetryAttemptsConstant     = 4
	defaultRetryInitialDelayConstant = 2 * time.Second
	defaultRetryMaximumDelayConstant = 30 * time.Second
	retryDelayGrowthFactorConstant   = 2
)

var rateLimitIndicatorConstants = []string{
	"rate limit",
	"secondary rate limit",
	"HTTP 403",
	"HTTP 429",
}

var transientNetworkIndicatorConstants = []string{
	"could not resolve host",
	"connection refused",
	"connection reset",
	"network is unreachable",
	"temporary failure in name resolution",
	"timed out",
	"HTTP 502",
	"HTTP 503",
}

// RetryPolicy bounds retries of transient GitHub API failures.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy returns the retry bounds applied when configuration supplies none.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  defaultRetryAttemptsConstant,
		InitialDelay: defaultRetryInitialDelayConstant,
		MaxDelay:     defaultRetryMaximumDelayConstant,
	}
}

func (policy RetryPolicy) normalized() RetryPolicy {
	normalizedPolicy := policy
	if normalizedPolicy.MaxAttempts <= 0 {
		normalizedPolicy.MaxAttempts = defaultRetryAttemptsConstant
	}
	if normalizedPolicy.InitialDelay <= 0 {
		normalizedPolicy.InitialDelay = defaultRetryInitialDelayConstant
	}
	if normalizedPolicy.MaxDelay <= 0 {
		normalizedPolicy.MaxDelay = defaultRetryMaximumDelayConstant
	}
	return normalizedPolicy
}

// IsRateLimitError reports whether the supplied error represents GitHub API throttling.
func IsRateLimitError(candidateError error) bool {
	return commandOutputContainsIndicator(candidateError, rateLimitIndicatorConstants)
}

// IsTransientNetworkError reports whether the supplied error looks like a
// recoverable network failure rather than a definitive command rejection.
// Errors raised before the command could run at all also qualify.
func IsTransientNetworkError(candidateError error) bool {
	if candidateError == nil {
		return false
	}

	executionFailure := execshell.CommandExecutionError{}
	if errors.As(candidateError, &executionFailure) {
		return true
	}
	return commandOutputContainsIndicator(candidateError, transientNetworkIndicatorConstants)
}

// IsRetryableError reports whether a failed operation is worth repeating.
func IsRetryableError(candidateError error) bool {
	return IsRateLimitError(candidateError) || IsTransientNetworkError(candidateError)
}

func commandOutputContainsIndicator(candidateError error, indicators []string) bool {
	if candidateError == nil {
		return false
	}

	commandFailure := execshell.CommandFailedError{}
	if !errors.As(candidateError, &commandFailure) {
		return false
	}

	combinedOutput := strings.ToLower(commandFailure.Result.StandardError + "\n" + commandFailure.Result.StandardOutput)
	for _, indicator := range indicators {
		if strings.Contains(combinedOutput, strings.ToLower(indicator)) {
			return true
		}
	}
	return false
}

// ExecuteWithRetry runs the operation, retrying rate-limited and transient
// network failures with exponential backoff.
func ExecuteWithRetry(executionContext context.Context, policy RetryPolicy, operation func(context.Context) error) error {
	normalizedPolicy := policy.normalized()

	currentDelay := normalizedPolicy.InitialDelay
	var lastError error
	for attemptNumber := 1; attemptNumber <= normalizedPolicy.MaxAttempts; attemptNumber++ {
		lastError = operation(executionContext)
		if lastError == nil {
			return nil
		}
		if !IsRetryableError(lastError) {
			return lastError
		}
		if attemptNumber == normalizedPolicy.MaxAttempts {
			break
		}

		delayTimer := time.NewTimer(currentDelay)
		select {
		case <-executionContext.Done():
			delayTimer.Stop()
			return executionContext.Err()
		case <-delayTimer.C:
		}

		currentDelay *= retryDelayGrowthFactorConstant
		if currentDelay > normalizedPolicy.MaxDelay {
			currentDelay = normalizedPolicy.MaxDelay
		}
	}

	return lastError
}
