package gitrepo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeql-tools/migrator/internal/gitrepo"
)

func TestParseRemoteURL(testInstance *testing.T) {
	testCases := []struct {
		name           string
		remote         string
		expectError    bool
		expectedResult gitrepo.RemoteURL
	}{
		{
			name:   "https_with_git_suffix",
			remote: "https://github.com/owner/example.git",
			expectedResult: gitrepo.RemoteURL{
				Protocol:   gitrepo.RemoteProtocolHTTPS,
				Host:       "github.com",
				Owner:      "owner",
				Repository: "example",
			},
		},
		{
			name:   "ssh_scp_syntax",
			remote: "git@github.com:owner/example.git",
			expectedResult: gitrepo.RemoteURL{
				Protocol:   gitrepo.RemoteProtocolSSH,
				Host:       "github.com",
				Owner:      "owner",
				Repository: "example",
			},
		},
		{
			name:        "unsupported_protocol",
			remote:      "ftp://github.com/owner/example",
			expectError: true,
		},
		{
			name:        "empty_remote",
			remote:      "   ",
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			parsedRemote, parseError := gitrepo.ParseRemoteURL(testCase.remote)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedResult, parsedRemote)
		})
	}
}

func TestFormatRemoteURL(testInstance *testing.T) {
	httpsRemote, httpsError := gitrepo.FormatRemoteURL(gitrepo.RemoteURL{
		Protocol:   gitrepo.RemoteProtocolHTTPS,
		Host:       "github.com",
		Owner:      "owner",
		Repository: "example",
	})
	require.NoError(testInstance, httpsError)
	require.Equal(testInstance, "https://github.com/owner/example.git", httpsRemote)

	sshRemote, sshError := gitrepo.FormatRemoteURL(gitrepo.RemoteURL{
		Protocol:   gitrepo.RemoteProtocolSSH,
		Host:       "github.com",
		Owner:      "owner",
		Repository: "example",
	})
	require.NoError(testInstance, sshError)
	require.Equal(testInstance, "git@github.com:owner/example.git", sshRemote)

	_, unsupportedError := gitrepo.FormatRemoteURL(gitrepo.RemoteURL{
		Protocol:   gitrepo.RemoteProtocol("ftp"),
		Host:       "github.com",
		Owner:      "owner",
		Repository: "example",
	})
	require.Error(testInstance, unsupportedError)
}
