package migrate

import (
	"errors"
	"fmt"
)

const (
	discoveryErrorTemplateConstant = "discovery failed: %s"
	workspaceErrorTemplateConstant = "workspace preparation failed for %s: %s"
	patchErrorTemplateConstant     = "patch failed for %s: %s"
	patchFileErrorTemplateConstant = "patch failed for %s (%s): %s"
	publishErrorTemplateConstant   = "publish failed for %s: %s"
	runFailedMessageConstant       = "one or more repositories failed to migrate"
)

// ErrRunFailed reports that at least one repository produced a failed outcome.
var ErrRunFailed = errors.New(runFailedMessageConstant)

// DiscoveryError indicates the Locator could not produce candidates.
type DiscoveryError struct {
	Cause error
}

// Error describes the discovery failure.
func (discoveryError DiscoveryError) Error() string {
	return fmt.Sprintf(discoveryErrorTemplateConstant, discoveryError.Cause)
}

// Unwrap exposes the underlying cause.
func (discoveryError DiscoveryError) Unwrap() error {
	return discoveryError.Cause
}

// WorkspaceError indicates a clone or checkout failure for one repository.
type WorkspaceError struct {
	Repository string
	Cause      error
}

// Error describes the workspace failure.
func (workspaceError WorkspaceError) Error() string {
	return fmt.Sprintf(workspaceErrorTemplateConstant, workspaceError.Repository, workspaceError.Cause)
}

// Unwrap exposes the underlying cause.
func (workspaceError WorkspaceError) Unwrap() error {
	return workspaceError.Cause
}

// PatchError indicates an unexpected file read, write, or verification failure.
// A file without matches is a normal outcome, not a PatchError.
type PatchError struct {
	Repository string
	FilePath   string
	Cause      error
}

// Error describes the patch failure.
func (patchError PatchError) Error() string {
	if len(patchError.FilePath) > 0 {
		return fmt.Sprintf(patchFileErrorTemplateConstant, patchError.Repository, patchError.FilePath, patchError.Cause)
	}
	return fmt.Sprintf(patchErrorTemplateConstant, patchError.Repository, patchError.Cause)
}

// Unwrap exposes the underlying cause.
func (patchError PatchError) Unwrap() error {
	return patchError.Cause
}

// PublishError indicates a commit, push, or pull-request API failure.
type PublishError struct {
	Repository string
	Cause      error
}

// Error describes the publish failure.
func (publishError PublishError) Error() string {
	return fmt.Sprintf(publishErrorTemplateConstant, publishError.Repository, publishError.Cause)
}

// Unwrap exposes the underlying cause.
func (publishError PublishError) Unwrap() error {
	return publishError.Cause
}

// classifyFailureStage maps a pipeline error to its reason code.
func classifyFailureStage(pipelineError error) FailureStage {
	switch {
	case errors.As(pipelineError, &DiscoveryError{}):
		return FailureStageDiscovery
	case errors.As(pipelineError, &WorkspaceError{}):
		return FailureStageWorkspace
	case errors.As(pipelineError, &PatchError{}):
		return FailureStagePatch
	case errors.As(pipelineError, &PublishError{}):
		return FailureStagePublish
	default:
		return FailureStagePublish
	}
}
