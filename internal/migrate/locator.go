package migrate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/codeql-tools/migrator/internal/githubcli"
	"github.com/codeql-tools/migrator/internal/gitrepo"
)

const (
	githubHostConstant                       = "github.com"
	repositoryNameSeparatorConstant          = "/"
	repositoryNameInvalidMessageConstant     = "expected owner/name"
	locatorClientMissingMessageConstant      = "code search client not configured"
	searchPageErrorTemplateConstant          = "code search page %d failed: %w"
	metadataResolutionErrorTemplateConstant  = "unable to resolve repository metadata: %w"
	cloneURLErrorTemplateConstant            = "unable to derive clone URL: %w"
	defaultBranchMissingMessageConstant      = "repository metadata missing default branch"
	searchPageFieldNameConstant              = "page"
	repositoryFieldNameConstant              = "repository"
	matchedRepositoriesFieldNameConstant     = "matched_repositories"
	candidateCountFieldNameConstant          = "candidates"
	archivedRepositorySkippedMessageConstant = "Skipping archived repository"
	partialDiscoveryMessageConstant          = "Code search failed mid-pagination; continuing with collected candidates"
	discoveryCompletedMessageConstant        = "Candidate discovery completed"
)

// ErrLocatorClientNotConfigured indicates the locator was constructed without a search client.
var ErrLocatorClientNotConfigured = errors.New(locatorClientMissingMessageConstant)

// CodeSearchClient is the subset of the GitHub client the Locator depends on.
type CodeSearchClient interface {
	SearchCode(executionContext context.Context, query string, pageSize int, pageNumber int) (githubcli.CodeSearchPage, error)
	ResolveRepoMetadata(executionContext context.Context, repository string) (githubcli.RepositoryMetadata, error)
}

// CandidateFailure records a repository that was matched by discovery but
// could not be turned into a Candidate.
type CandidateFailure struct {
	Repository string
	Cause      error
}

// DiscoveryReport is the Locator's aggregated output.
type DiscoveryReport struct {
	Candidates []Candidate
	Failures   []CandidateFailure
}

// Locator drives the hosting provider's code search to produce Candidates.
type Locator struct {
	logger      *zap.Logger
	client      CodeSearchClient
	query       string
	pageSize    int
	retryPolicy githubcli.RetryPolicy
}

// LocatorOptions configures Locator construction.
type LocatorOptions struct {
	Logger      *zap.Logger
	Client      CodeSearchClient
	Query       string
	PageSize    int
	RetryPolicy githubcli.RetryPolicy
}

// NewLocator constructs a Locator.
func NewLocator(options LocatorOptions) (*Locator, error) {
	if options.Client == nil {
		return nil, ErrLocatorClientNotConfigured
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	query := strings.TrimSpace(options.Query)
	if len(query) == 0 {
		query = defaultSearchQueryConstant
	}

	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSizeConstant
	}

	return &Locator{
		logger:      logger,
		client:      options.Client,
		query:       query,
		pageSize:    pageSize,
		retryPolicy: options.RetryPolicy,
	}, nil
}

// DiscoverCandidates pages through code search results, deduplicates matched
// repositories, and resolves each into a Candidate. Repositories whose
// metadata cannot be resolved are reported as failures rather than aborting
// discovery. An error is returned only when the search itself failed before
// any candidate could be collected.
func (locator *Locator) DiscoverCandidates(executionContext context.Context) (DiscoveryReport, error) {
	matchedPathsByRepository := make(map[string][]string)

	pageNumber := 1
	for {
		var searchPage githubcli.CodeSearchPage
		searchError := githubcli.ExecuteWithRetry(executionContext, locator.retryPolicy, func(retryContext context.Context) error {
			var pageError error
			searchPage, pageError = locator.client.SearchCode(retryContext, locator.query, locator.pageSize, pageNumber)
			return pageError
		})
		if searchError != nil {
			if len(matchedPathsByRepository) == 0 {
				return DiscoveryReport{}, DiscoveryError{Cause: fmt.Errorf(searchPageErrorTemplateConstant, pageNumber, searchError)}
			}
			locator.logger.Warn(partialDiscoveryMessageConstant,
				zap.Int(searchPageFieldNameConstant, pageNumber),
				zap.Error(searchError),
			)
			break
		}

		for _, match := range searchPage.Matches {
			repositoryName := strings.TrimSpace(match.RepositoryNameWithOwner)
			if len(repositoryName) == 0 {
				continue
			}
			matchedPathsByRepository[repositoryName] = appendUniquePath(matchedPathsByRepository[repositoryName], match.Path)
		}

		if len(searchPage.Matches) < locator.pageSize {
			break
		}
		if searchPage.TotalCount > 0 && pageNumber*locator.pageSize >= searchPage.TotalCount {
			break
		}
		pageNumber++
	}

	repositoryNames := make([]string, 0, len(matchedPathsByRepository))
	for repositoryName := range matchedPathsByRepository {
		repositoryNames = append(repositoryNames, repositoryName)
	}
	sort.Strings(repositoryNames)

	report := DiscoveryReport{
		Candidates: make([]Candidate, 0, len(repositoryNames)),
		Failures:   make([]CandidateFailure, 0),
	}

	for _, repositoryName := range repositoryNames {
		var metadata githubcli.RepositoryMetadata
		metadataError := githubcli.ExecuteWithRetry(executionContext, locator.retryPolicy, func(retryContext context.Context) error {
			var resolutionError error
			metadata, resolutionError = locator.client.ResolveRepoMetadata(retryContext, repositoryName)
			return resolutionError
		})
		if metadataError != nil {
			report.Failures = append(report.Failures, CandidateFailure{
				Repository: repositoryName,
				Cause:      DiscoveryError{Cause: fmt.Errorf(metadataResolutionErrorTemplateConstant, metadataError)},
			})
			continue
		}

		if metadata.IsArchived {
			locator.logger.Info(archivedRepositorySkippedMessageConstant, zap.String(repositoryFieldNameConstant, repositoryName))
			continue
		}

		defaultBranch := strings.TrimSpace(metadata.DefaultBranch)
		if len(defaultBranch) == 0 {
			report.Failures = append(report.Failures, CandidateFailure{
				Repository: repositoryName,
				Cause:      DiscoveryError{Cause: errors.New(defaultBranchMissingMessageConstant)},
			})
			continue
		}

		cloneURL, cloneURLError := buildCloneURL(repositoryName)
		if cloneURLError != nil {
			report.Failures = append(report.Failures, CandidateFailure{
				Repository: repositoryName,
				Cause:      DiscoveryError{Cause: fmt.Errorf(cloneURLErrorTemplateConstant, cloneURLError)},
			})
			continue
		}

		report.Candidates = append(report.Candidates, Candidate{
			Repository:    repositoryName,
			DefaultBranch: defaultBranch,
			CloneURL:      cloneURL,
			MatchedPaths:  matchedPathsByRepository[repositoryName],
		})
	}

	locator.logger.Info(discoveryCompletedMessageConstant,
		zap.Int(matchedRepositoriesFieldNameConstant, len(matchedPathsByRepository)),
		zap.Int(candidateCountFieldNameConstant, len(report.Candidates)),
	)

	return report, nil
}

func buildCloneURL(repositoryName string) (string, error) {
	owner, repository, found := strings.Cut(repositoryName, repositoryNameSeparatorConstant)
	if !found {
		return "", gitrepo.RemoteURLParseError{Input: repositoryName, Message: repositoryNameInvalidMessageConstant}
	}
	return gitrepo.FormatRemoteURL(gitrepo.RemoteURL{
		Protocol:   gitrepo.RemoteProtocolHTTPS,
		Host:       githubHostConstant,
		Owner:      owner,
		Repository: repository,
	})
}

func appendUniquePath(paths []string, candidatePath string) []string {
	trimmedPath := strings.TrimSpace(candidatePath)
	if len(trimmedPath) == 0 {
		return paths
	}
	for _, existingPath := range paths {
		if existingPath == trimmedPath {
			return paths
		}
	}
	return append(paths, trimmedPath)
}
