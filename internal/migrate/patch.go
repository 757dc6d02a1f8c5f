package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	workflowsDirectoryRelativePathConstant = ".github/workflows"
	yamlExtensionConstant                  = ".yaml"
	ymlExtensionConstant                   = ".yml"
	lineSeparatorConstant                  = "\n"
	readWorkflowErrorTemplateConstant      = "unable to read workflow file: %w"
	writeWorkflowErrorTemplateConstant     = "unable to write workflow file: %w"
	inspectWorkflowsErrorTemplateConstant  = "unable to inspect workflows directory: %w"
	legacyReferenceReplacementConstant     = "${1}@v3${2}"
)

// legacyReferencePattern matches a uses: token referencing github/codeql-action
// at the legacy major version. The trailing group rejects longer version tokens
// such as @v2.1.0 so only the exact @v2 suffix is rewritten. Lines are matched
// whether or not they are commented out; the rewrite preserves everything
// around the version token byte-for-byte.
var legacyReferencePattern = regexp.MustCompile(`(uses:\s*["']?github/codeql-action/[\w./-]+)@v2([^\w.]|$)`)

// PatchEngine performs the pure line-oriented rewrite of workflow files.
type PatchEngine struct{}

// NewPatchEngine constructs a PatchEngine.
func NewPatchEngine() *PatchEngine {
	return &PatchEngine{}
}

// ContainsLegacyReference reports whether the content still references the legacy version.
func (engine *PatchEngine) ContainsLegacyReference(content string) bool {
	return legacyReferencePattern.MatchString(content)
}

// RewriteContent replaces every legacy reference line in the content and
// returns the rewritten content together with one PatchResult per changed
// line. Content without matches is returned unchanged.
func (engine *PatchEngine) RewriteContent(filePath string, content string) (string, []PatchResult) {
	lines := strings.Split(content, lineSeparatorConstant)
	patchResults := make([]PatchResult, 0)

	for lineIndex, line := range lines {
		rewrittenLine := legacyReferencePattern.ReplaceAllString(line, legacyReferenceReplacementConstant)
		if rewrittenLine == line {
			continue
		}
		lines[lineIndex] = rewrittenLine
		patchResults = append(patchResults, PatchResult{
			FilePath:   filePath,
			LineNumber: lineIndex + 1,
			OldLine:    line,
			NewLine:    rewrittenLine,
		})
	}

	if len(patchResults) == 0 {
		return content, nil
	}
	return strings.Join(lines, lineSeparatorConstant), patchResults
}

// ApplyToWorkspace rewrites every workflow file under the workspace's
// .github/workflows directory and returns the aggregated PatchResults.
// A missing workflows directory yields an empty change set.
func (engine *PatchEngine) ApplyToWorkspace(repository string, workspacePath string) ([]PatchResult, error) {
	workflowsRoot := filepath.Join(workspacePath, workflowsDirectoryRelativePathConstant)
	directoryInfo, statError := os.Stat(workflowsRoot)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, PatchError{Repository: repository, Cause: fmt.Errorf(inspectWorkflowsErrorTemplateConstant, statError)}
	}
	if !directoryInfo.IsDir() {
		return nil, nil
	}

	aggregatedResults := make([]PatchResult, 0)
	walkError := filepath.WalkDir(workflowsRoot, func(path string, directoryEntry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return entryError
		}
		if directoryEntry.IsDir() {
			return nil
		}
		if !isWorkflowFile(path) {
			return nil
		}

		relativePath, relativeError := filepath.Rel(workspacePath, path)
		if relativeError != nil {
			relativePath = path
		}

		fileInfo, fileInfoError := directoryEntry.Info()
		if fileInfoError != nil {
			return PatchError{Repository: repository, FilePath: relativePath, Cause: fileInfoError}
		}

		fileContent, readError := os.ReadFile(path)
		if readError != nil {
			return PatchError{Repository: repository, FilePath: relativePath, Cause: fmt.Errorf(readWorkflowErrorTemplateConstant, readError)}
		}

		rewrittenContent, fileResults := engine.RewriteContent(relativePath, string(fileContent))
		if len(fileResults) == 0 {
			return nil
		}

		writeError := os.WriteFile(path, []byte(rewrittenContent), fileInfo.Mode().Perm())
		if writeError != nil {
			return PatchError{Repository: repository, FilePath: relativePath, Cause: fmt.Errorf(writeWorkflowErrorTemplateConstant, writeError)}
		}

		aggregatedResults = append(aggregatedResults, fileResults...)
		return nil
	})
	if walkError != nil {
		patchFailure := PatchError{}
		if errors.As(walkError, &patchFailure) {
			return nil, patchFailure
		}
		return nil, PatchError{Repository: repository, Cause: walkError}
	}

	return aggregatedResults, nil
}

func isWorkflowFile(path string) bool {
	extension := strings.ToLower(filepath.Ext(path))
	return extension == yamlExtensionConstant || extension == ymlExtensionConstant
}
