package migrate

// Candidate identifies a repository whose default branch references the
// legacy CodeQL action version. Produced by the Locator and treated as
// immutable by downstream stages.
type Candidate struct {
	Repository    string
	DefaultBranch string
	CloneURL      string
	MatchedPaths  []string
}

// PatchResult records one rewritten line inside a workflow file.
type PatchResult struct {
	FilePath   string
	LineNumber int
	OldLine    string
	NewLine    string
}

// PublishStatus enumerates terminal per-repository outcomes.
type PublishStatus string

// Publish status enumerations.
const (
	PublishStatusCreated PublishStatus = PublishStatus("created")
	PublishStatusUpdated PublishStatus = PublishStatus("updated")
	PublishStatusSkipped PublishStatus = PublishStatus("skipped")
	PublishStatusFailed  PublishStatus = PublishStatus("failed")
)

// FailureStage names the pipeline stage that produced a failed outcome.
type FailureStage string

// Failure stage enumerations.
const (
	FailureStageDiscovery FailureStage = FailureStage("discovery")
	FailureStageWorkspace FailureStage = FailureStage("workspace")
	FailureStagePatch     FailureStage = FailureStage("patch")
	FailureStagePublish   FailureStage = FailureStage("publish")
	FailureStageCancelled FailureStage = FailureStage("cancelled")
)

// PublishOutcome captures the terminal state of one repository's migration.
type PublishOutcome struct {
	Repository     string
	BranchName     string
	PullRequestURL string
	Status         PublishStatus
	FailureStage   FailureStage
	Reason         string
	ChangedFiles   []string
	DryRun         bool
}

// RunSummary aggregates the outcomes of one invocation.
type RunSummary struct {
	Outcomes  []PublishOutcome
	Processed int
	Changed   int
	Failed    int
}

// FailedOutcomes returns the outcomes whose status is failed.
func (summary RunSummary) FailedOutcomes() []PublishOutcome {
	failedOutcomes := make([]PublishOutcome, 0, summary.Failed)
	for _, outcome := range summary.Outcomes {
		if outcome.Status == PublishStatusFailed {
			failedOutcomes = append(failedOutcomes, outcome)
		}
	}
	return failedOutcomes
}
