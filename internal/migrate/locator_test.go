package migrate_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codeql-tools/migrator/internal/githubcli"
	"github.com/codeql-tools/migrator/internal/migrate"
)

const (
	testSearchQueryConstant           = "uses:github/codeql-action/init@v2 in:file language:YAML"
	testFirstRepositoryConstant       = "octo-org/alpha"
	testSecondRepositoryConstant      = "octo-org/beta"
	testArchivedRepositoryConstant    = "octo-org/attic"
	testDefaultBranchConstant         = "main"
	testSearchFailureMessageConstant  = "search exploded"
	testMetadataFailureMessage        = "metadata lookup failed"
	testWorkflowPathConstant          = ".github/workflows/codeql.yml"
	testSecondWorkflowPathConstant    = ".github/workflows/scan.yml"
	testImmediateRetryPolicyMaxConst  = 1
)

type stubCodeSearchClient struct {
	pages            []githubcli.CodeSearchPage
	searchError      error
	failAfterPage    int
	metadataByName   map[string]githubcli.RepositoryMetadata
	metadataErrors   map[string]error
	searchCallCount  int
	metadataRequests []string
}

func (client *stubCodeSearchClient) SearchCode(_ context.Context, _ string, _ int, pageNumber int) (githubcli.CodeSearchPage, error) {
	client.searchCallCount++
	if client.searchError != nil && (client.failAfterPage == 0 || pageNumber > client.failAfterPage) {
		return githubcli.CodeSearchPage{}, client.searchError
	}
	if pageNumber > len(client.pages) {
		return githubcli.CodeSearchPage{}, nil
	}
	return client.pages[pageNumber-1], nil
}

func (client *stubCodeSearchClient) ResolveRepoMetadata(_ context.Context, repository string) (githubcli.RepositoryMetadata, error) {
	client.metadataRequests = append(client.metadataRequests, repository)
	if metadataError, hasError := client.metadataErrors[repository]; hasError {
		return githubcli.RepositoryMetadata{}, metadataError
	}
	metadata, known := client.metadataByName[repository]
	if !known {
		return githubcli.RepositoryMetadata{NameWithOwner: repository, DefaultBranch: testDefaultBranchConstant}, nil
	}
	return metadata, nil
}

func immediateRetryPolicy() githubcli.RetryPolicy {
	return githubcli.RetryPolicy{MaxAttempts: testImmediateRetryPolicyMaxConst}
}

func TestNewLocatorValidation(testInstance *testing.T) {
	_, creationError := migrate.NewLocator(migrate.LocatorOptions{Logger: zap.NewNop()})
	require.ErrorIs(testInstance, creationError, migrate.ErrLocatorClientNotConfigured)
}

func TestLocatorDiscoverCandidates(testInstance *testing.T) {
	testInstance.Run("deduplicates_repositories_across_pages", func(subtestInstance *testing.T) {
		searchClient := &stubCodeSearchClient{
			pages: []githubcli.CodeSearchPage{
				{
					TotalCount: 3,
					Matches: []githubcli.CodeSearchMatch{
						{RepositoryNameWithOwner: testFirstRepositoryConstant, Path: testWorkflowPathConstant},
						{RepositoryNameWithOwner: testSecondRepositoryConstant, Path: testWorkflowPathConstant},
					},
				},
				{
					TotalCount: 3,
					Matches: []githubcli.CodeSearchMatch{
						{RepositoryNameWithOwner: testFirstRepositoryConstant, Path: testSecondWorkflowPathConstant},
					},
				},
			},
		}

		locator, creationError := migrate.NewLocator(migrate.LocatorOptions{
			Client:      searchClient,
			Query:       testSearchQueryConstant,
			PageSize:    2,
			RetryPolicy: immediateRetryPolicy(),
		})
		require.NoError(subtestInstance, creationError)

		report, discoveryError := locator.DiscoverCandidates(context.Background())
		require.NoError(subtestInstance, discoveryError)
		require.Empty(subtestInstance, report.Failures)
		require.Len(subtestInstance, report.Candidates, 2)

		require.Equal(subtestInstance, testFirstRepositoryConstant, report.Candidates[0].Repository)
		require.Equal(subtestInstance, []string{testWorkflowPathConstant, testSecondWorkflowPathConstant}, report.Candidates[0].MatchedPaths)
		require.Equal(subtestInstance, testDefaultBranchConstant, report.Candidates[0].DefaultBranch)
		require.Equal(subtestInstance, fmt.Sprintf("https://github.com/%s.git", testFirstRepositoryConstant), report.Candidates[0].CloneURL)
		require.Equal(subtestInstance, testSecondRepositoryConstant, report.Candidates[1].Repository)
	})

	testInstance.Run("stops_paging_after_short_page", func(subtestInstance *testing.T) {
		searchClient := &stubCodeSearchClient{
			pages: []githubcli.CodeSearchPage{
				{
					TotalCount: 1,
					Matches: []githubcli.CodeSearchMatch{
						{RepositoryNameWithOwner: testFirstRepositoryConstant, Path: testWorkflowPathConstant},
					},
				},
			},
		}

		locator, creationError := migrate.NewLocator(migrate.LocatorOptions{
			Client:      searchClient,
			PageSize:    10,
			RetryPolicy: immediateRetryPolicy(),
		})
		require.NoError(subtestInstance, creationError)

		_, discoveryError := locator.DiscoverCandidates(context.Background())
		require.NoError(subtestInstance, discoveryError)
		require.Equal(subtestInstance, 1, searchClient.searchCallCount)
	})

	testInstance.Run("skips_archived_repositories", func(subtestInstance *testing.T) {
		searchClient := &stubCodeSearchClient{
			pages: []githubcli.CodeSearchPage{
				{
					TotalCount: 2,
					Matches: []githubcli.CodeSearchMatch{
						{RepositoryNameWithOwner: testFirstRepositoryConstant, Path: testWorkflowPathConstant},
						{RepositoryNameWithOwner: testArchivedRepositoryConstant, Path: testWorkflowPathConstant},
					},
				},
			},
			metadataByName: map[string]githubcli.RepositoryMetadata{
				testArchivedRepositoryConstant: {NameWithOwner: testArchivedRepositoryConstant, DefaultBranch: testDefaultBranchConstant, IsArchived: true},
			},
		}

		locator, creationError := migrate.NewLocator(migrate.LocatorOptions{
			Client:      searchClient,
			RetryPolicy: immediateRetryPolicy(),
		})
		require.NoError(subtestInstance, creationError)

		report, discoveryError := locator.DiscoverCandidates(context.Background())
		require.NoError(subtestInstance, discoveryError)
		require.Empty(subtestInstance, report.Failures)
		require.Len(subtestInstance, report.Candidates, 1)
		require.Equal(subtestInstance, testFirstRepositoryConstant, report.Candidates[0].Repository)
	})

	testInstance.Run("records_metadata_failures_without_aborting", func(subtestInstance *testing.T) {
		searchClient := &stubCodeSearchClient{
			pages: []githubcli.CodeSearchPage{
				{
					TotalCount: 2,
					Matches: []githubcli.CodeSearchMatch{
						{RepositoryNameWithOwner: testFirstRepositoryConstant, Path: testWorkflowPathConstant},
						{RepositoryNameWithOwner: testSecondRepositoryConstant, Path: testWorkflowPathConstant},
					},
				},
			},
			metadataErrors: map[string]error{
				testSecondRepositoryConstant: errors.New(testMetadataFailureMessage),
			},
		}

		locator, creationError := migrate.NewLocator(migrate.LocatorOptions{
			Client:      searchClient,
			RetryPolicy: immediateRetryPolicy(),
		})
		require.NoError(subtestInstance, creationError)

		report, discoveryError := locator.DiscoverCandidates(context.Background())
		require.NoError(subtestInstance, discoveryError)
		require.Len(subtestInstance, report.Candidates, 1)
		require.Len(subtestInstance, report.Failures, 1)
		require.Equal(subtestInstance, testSecondRepositoryConstant, report.Failures[0].Repository)

		discoveryFailure := migrate.DiscoveryError{}
		require.ErrorAs(subtestInstance, report.Failures[0].Cause, &discoveryFailure)
	})

	testInstance.Run("search_failure_without_candidates_is_fatal", func(subtestInstance *testing.T) {
		searchClient := &stubCodeSearchClient{
			searchError: errors.New(testSearchFailureMessageConstant),
		}

		locator, creationError := migrate.NewLocator(migrate.LocatorOptions{
			Client:      searchClient,
			RetryPolicy: immediateRetryPolicy(),
		})
		require.NoError(subtestInstance, creationError)

		_, discoveryError := locator.DiscoverCandidates(context.Background())
		require.Error(subtestInstance, discoveryError)

		discoveryFailure := migrate.DiscoveryError{}
		require.ErrorAs(subtestInstance, discoveryError, &discoveryFailure)
	})

	testInstance.Run("search_failure_mid_pagination_keeps_collected_candidates", func(subtestInstance *testing.T) {
		searchClient := &stubCodeSearchClient{
			pages: []githubcli.CodeSearchPage{
				{
					TotalCount: 4,
					Matches: []githubcli.CodeSearchMatch{
						{RepositoryNameWithOwner: testFirstRepositoryConstant, Path: testWorkflowPathConstant},
						{RepositoryNameWithOwner: testSecondRepositoryConstant, Path: testWorkflowPathConstant},
					},
				},
			},
			searchError:   errors.New(testSearchFailureMessageConstant),
			failAfterPage: 1,
		}

		locator, creationError := migrate.NewLocator(migrate.LocatorOptions{
			Client:      searchClient,
			PageSize:    2,
			RetryPolicy: immediateRetryPolicy(),
		})
		require.NoError(subtestInstance, creationError)

		report, discoveryError := locator.DiscoverCandidates(context.Background())
		require.NoError(subtestInstance, discoveryError)
		require.Len(subtestInstance, report.Candidates, 2)
	})
}
