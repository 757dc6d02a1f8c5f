package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	verifyReadErrorTemplateConstant      = "unable to read patched file: %w"
	verifyParseErrorTemplateConstant     = "patched file is not valid YAML: %w"
	verifyResidualLegacyMessageConstant  = "patched file still references the legacy version"
)

// Verifier checks patched workflow files before they are published.
type Verifier struct {
	engine *PatchEngine
}

// NewVerifier constructs a Verifier sharing the engine's matching rule.
func NewVerifier(engine *PatchEngine) *Verifier {
	if engine == nil {
		engine = NewPatchEngine()
	}
	return &Verifier{engine: engine}
}

// VerifyWorkspace confirms every patched file parses as YAML and contains no
// remaining legacy references. Violations surface as PatchErrors.
func (verifier *Verifier) VerifyWorkspace(repository string, workspacePath string, patchResults []PatchResult) error {
	verifiedPaths := make(map[string]struct{}, len(patchResults))
	for _, patchResult := range patchResults {
		if _, alreadyVerified := verifiedPaths[patchResult.FilePath]; alreadyVerified {
			continue
		}
		verifiedPaths[patchResult.FilePath] = struct{}{}

		fileContent, readError := os.ReadFile(filepath.Join(workspacePath, patchResult.FilePath))
		if readError != nil {
			return PatchError{Repository: repository, FilePath: patchResult.FilePath, Cause: fmt.Errorf(verifyReadErrorTemplateConstant, readError)}
		}

		var parsedDocument yaml.Node
		parseError := yaml.Unmarshal(fileContent, &parsedDocument)
		if parseError != nil {
			return PatchError{Repository: repository, FilePath: patchResult.FilePath, Cause: fmt.Errorf(verifyParseErrorTemplateConstant, parseError)}
		}

		if verifier.engine.ContainsLegacyReference(string(fileContent)) {
			return PatchError{Repository: repository, FilePath: patchResult.FilePath, Cause: errors.New(verifyResidualLegacyMessageConstant)}
		}
	}

	return nil
}
