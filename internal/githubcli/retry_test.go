package githubcli_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeql-tools/migrator/internal/execshell"
	"github.com/codeql-tools/migrator/internal/githubcli"
)

func rateLimitFailure() error {
	return execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGitHub},
		Result:  execshell.ExecutionResult{ExitCode: 1, StandardError: "HTTP 403: API rate limit exceeded"},
	}
}

func TestIsRateLimitErrorClassification(testInstance *testing.T) {
	testCases := []struct {
		name           string
		candidateError error
		expectedResult bool
	}{
		{
			name:           "rate_limit_stderr",
			candidateError: rateLimitFailure(),
			expectedResult: true,
		},
		{
			name: "secondary_rate_limit",
			candidateError: execshell.CommandFailedError{
				Command: execshell.ShellCommand{Name: execshell.CommandGitHub},
				Result:  execshell.ExecutionResult{ExitCode: 1, StandardError: "You have exceeded a secondary rate limit"},
			},
			expectedResult: true,
		},
		{
			name: "ordinary_command_failure",
			candidateError: execshell.CommandFailedError{
				Command: execshell.ShellCommand{Name: execshell.CommandGitHub},
				Result:  execshell.ExecutionResult{ExitCode: 1, StandardError: "could not resolve repository"},
			},
			expectedResult: false,
		},
		{
			name:           "plain_error",
			candidateError: errors.New("network unreachable"),
			expectedResult: false,
		},
		{
			name:           "nil_error",
			candidateError: nil,
			expectedResult: false,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedResult, githubcli.IsRateLimitError(testCase.candidateError))
		})
	}
}

func unresolvableHostFailure() error {
	return execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGitHub},
		Result:  execshell.ExecutionResult{ExitCode: 1, StandardError: "fatal: unable to access remote: Could not resolve host: github.com"},
	}
}

func TestIsTransientNetworkErrorClassification(testInstance *testing.T) {
	testCases := []struct {
		name           string
		candidateError error
		expectedResult bool
	}{
		{
			name:           "unresolvable_host",
			candidateError: unresolvableHostFailure(),
			expectedResult: true,
		},
		{
			name: "connection_reset",
			candidateError: execshell.CommandFailedError{
				Command: execshell.ShellCommand{Name: execshell.CommandGitHub},
				Result:  execshell.ExecutionResult{ExitCode: 1, StandardError: "read: connection reset by peer"},
			},
			expectedResult: true,
		},
		{
			name: "gateway_unavailable",
			candidateError: execshell.CommandFailedError{
				Command: execshell.ShellCommand{Name: execshell.CommandGitHub},
				Result:  execshell.ExecutionResult{ExitCode: 1, StandardError: "HTTP 503: Service Unavailable"},
			},
			expectedResult: true,
		},
		{
			name: "command_never_started",
			candidateError: execshell.CommandExecutionError{
				Command: execshell.ShellCommand{Name: execshell.CommandGitHub},
				Cause:   errors.New("resource temporarily unavailable"),
			},
			expectedResult: true,
		},
		{
			name: "definitive_rejection",
			candidateError: execshell.CommandFailedError{
				Command: execshell.ShellCommand{Name: execshell.CommandGitHub},
				Result:  execshell.ExecutionResult{ExitCode: 1, StandardError: "HTTP 404: Not Found"},
			},
			expectedResult: false,
		},
		{
			name:           "plain_error",
			candidateError: errors.New("network unreachable"),
			expectedResult: false,
		},
		{
			name:           "nil_error",
			candidateError: nil,
			expectedResult: false,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedResult, githubcli.IsTransientNetworkError(testCase.candidateError))
		})
	}
}

func TestExecuteWithRetryRecoversFromTransientNetworkFailure(testInstance *testing.T) {
	attemptCount := 0
	retryError := githubcli.ExecuteWithRetry(context.Background(), githubcli.RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, func(context.Context) error {
		attemptCount++
		if attemptCount < 3 {
			return unresolvableHostFailure()
		}
		return nil
	})

	require.NoError(testInstance, retryError)
	require.Equal(testInstance, 3, attemptCount)
}

func TestExecuteWithRetryStopsOnSuccess(testInstance *testing.T) {
	attemptCount := 0
	retryError := githubcli.ExecuteWithRetry(context.Background(), githubcli.RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, func(context.Context) error {
		attemptCount++
		if attemptCount < 2 {
			return rateLimitFailure()
		}
		return nil
	})

	require.NoError(testInstance, retryError)
	require.Equal(testInstance, 2, attemptCount)
}

func TestExecuteWithRetryReturnsNonRetryableImmediately(testInstance *testing.T) {
	attemptCount := 0
	nonRetryableError := errors.New("fatal")
	retryError := githubcli.ExecuteWithRetry(context.Background(), githubcli.RetryPolicy{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, func(context.Context) error {
		attemptCount++
		return nonRetryableError
	})

	require.ErrorIs(testInstance, retryError, nonRetryableError)
	require.Equal(testInstance, 1, attemptCount)
}

func TestExecuteWithRetryExhaustsAttempts(testInstance *testing.T) {
	attemptCount := 0
	retryError := githubcli.ExecuteWithRetry(context.Background(), githubcli.RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, func(context.Context) error {
		attemptCount++
		return rateLimitFailure()
	})

	require.Error(testInstance, retryError)
	require.True(testInstance, githubcli.IsRateLimitError(retryError))
	require.Equal(testInstance, 3, attemptCount)
}

func TestExecuteWithRetryHonorsContextCancellation(testInstance *testing.T) {
	cancellableContext, cancelFunction := context.WithCancel(context.Background())
	attemptCount := 0
	retryError := githubcli.ExecuteWithRetry(cancellableContext, githubcli.RetryPolicy{MaxAttempts: 4, InitialDelay: time.Minute, MaxDelay: time.Minute}, func(context.Context) error {
		attemptCount++
		cancelFunction()
		return rateLimitFailure()
	})

	require.ErrorIs(testInstance, retryError, context.Canceled)
	require.Equal(testInstance, 1, attemptCount)
}
