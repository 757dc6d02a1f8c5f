package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant        = "logger not configured"
	commandRunnerNotConfiguredMessageConstant = "command runner not configured"
	commandStartedLogMessageConstant          = "Shell command started"
	commandCompletedLogMessageConstant        = "Shell command completed"
	commandFailedLogMessageConstant           = "Shell command failed"
	logFieldCommandNameConstant               = "command_name"
	logFieldCommandArgumentsConstant          = "command_arguments"
	logFieldWorkingDirectoryConstant          = "working_directory"
	logFieldExitCodeConstant                  = "exit_code"
	logFieldStandardErrorConstant             = "standard_error"
)

// CommandName identifies a supported executable.
type CommandName string

// Supported executables.
const (
	CommandGit    CommandName = "git"
	CommandGitHub CommandName = "gh"
)

// CommandDetails describes a single invocation of an executable.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand combines a CommandName with invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable results of executing a command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner represents the ability to run shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// Sentinel errors surfaced during executor construction.
var (
	ErrLoggerNotConfigured        = errors.New(loggerNotConfiguredMessageConstant)
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
)

// CommandFailedError reports a command that completed with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the command failure.
func (failure CommandFailedError) Error() string {
	return CommandMessageFormatter{}.BuildFailureMessage(failure.Command, failure.Result)
}

// CommandExecutionError reports a command that could not be executed at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (failure CommandExecutionError) Error() string {
	return CommandMessageFormatter{}.BuildExecutionFailureMessage(failure.Command, failure.Cause)
}

// Unwrap exposes the underlying cause.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// ShellExecutor runs git and gh commands with lifecycle logging.
type ShellExecutor struct {
	logger               *zap.Logger
	commandRunner        CommandRunner
	messageFormatter     CommandMessageFormatter
	humanReadableLogging bool
	eventObserver        CommandEventObserver
}

// NewShellExecutor constructs a ShellExecutor with the provided collaborators.
func NewShellExecutor(logger *zap.Logger, commandRunner CommandRunner, humanReadableLogging bool) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if commandRunner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	return &ShellExecutor{
		logger:               logger,
		commandRunner:        commandRunner,
		messageFormatter:     CommandMessageFormatter{},
		humanReadableLogging: humanReadableLogging,
		eventObserver:        noopCommandEventObserver{},
	}, nil
}

// SetCommandEventObserver replaces the observer receiving command lifecycle events.
func (executor *ShellExecutor) SetCommandEventObserver(observer CommandEventObserver) {
	if observer == nil {
		executor.eventObserver = noopCommandEventObserver{}
		return
	}
	executor.eventObserver = observer
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// ExecuteGitHubCLI runs the GitHub CLI with the provided details.
func (executor *ShellExecutor) ExecuteGitHubCLI(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGitHub, Details: details})
}

// Execute runs the supplied command, logging lifecycle events and translating failures into typed errors.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.logLifecycleEvent(executor.messageFormatter.BuildStartedMessage(command), command, nil, nil)
	executor.eventObserver.CommandStarted(command)

	executionResult, executionError := executor.commandRunner.Run(executionContext, command)
	if executionError != nil {
		executor.logLifecycleEvent(executor.messageFormatter.BuildExecutionFailureMessage(command, executionError), command, nil, executionError)
		executor.eventObserver.CommandExecutionFailed(command, executionError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: executionError}
	}

	executor.eventObserver.CommandCompleted(command, executionResult)

	if executionResult.ExitCode != 0 {
		executor.logLifecycleEvent(executor.messageFormatter.BuildFailureMessage(command, executionResult), command, &executionResult, nil)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logLifecycleEvent(executor.messageFormatter.BuildSuccessMessage(command), command, &executionResult, nil)
	return executionResult, nil
}

func (executor *ShellExecutor) logLifecycleEvent(message string, command ShellCommand, result *ExecutionResult, failure error) {
	if executor.humanReadableLogging {
		executor.logger.Info(message)
		return
	}

	logFields := []zap.Field{
		zap.String(logFieldCommandNameConstant, string(command.Name)),
		zap.String(logFieldCommandArgumentsConstant, strings.Join(command.Details.Arguments, " ")),
	}
	if len(command.Details.WorkingDirectory) > 0 {
		logFields = append(logFields, zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory))
	}
	if result != nil {
		logFields = append(logFields, zap.Int(logFieldExitCodeConstant, result.ExitCode))
		if len(strings.TrimSpace(result.StandardError)) > 0 {
			logFields = append(logFields, zap.String(logFieldStandardErrorConstant, strings.TrimSpace(result.StandardError)))
		}
	}
	if failure != nil {
		logFields = append(logFields, zap.Error(failure))
	}

	switch {
	case failure != nil:
		executor.logger.Debug(fmt.Sprintf("%s: %s", commandFailedLogMessageConstant, message), logFields...)
	case result != nil && result.ExitCode != 0:
		executor.logger.Debug(fmt.Sprintf("%s: %s", commandFailedLogMessageConstant, message), logFields...)
	case result != nil:
		executor.logger.Debug(fmt.Sprintf("%s: %s", commandCompletedLogMessageConstant, message), logFields...)
	default:
		executor.logger.Debug(fmt.Sprintf("%s: %s", commandStartedLogMessageConstant, message), logFields...)
	}
}
