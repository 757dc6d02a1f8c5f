package gitrepo

import (
	"fmt"
	"strings"
)

const (
	sshSchemePrefixConstant        = "ssh://"
	httpsSchemePrefixConstant      = "https://"
	scpUserPrefixConstant          = "git@"
	remoteUserDelimiterConstant    = "@"
	scpPathDelimiterConstant       = ":"
	remotePathSeparatorConstant    = "/"
	gitDirectorySuffixConstant     = ".git"
	remoteURLErrorTemplateConstant = "%s: %s"
	malformedRemoteMessageConstant = "malformed remote url"
	unknownProtocolMessageConstant = "unsupported remote protocol"
)

// RemoteProtocol enumerates supported git remote protocols.
type RemoteProtocol string

// Supported remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
)

// RemoteURL represents a structured git remote URL.
type RemoteURL struct {
	Protocol   RemoteProtocol
	Host       string
	Owner      string
	Repository string
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLErrorTemplateConstant, parseError.Input, parseError.Message)
}

// UnsupportedProtocolError indicates the provided protocol cannot be formatted.
type UnsupportedProtocolError struct {
	Protocol RemoteProtocol
}

// Error describes the unsupported protocol.
func (protocolError UnsupportedProtocolError) Error() string {
	return fmt.Sprintf(remoteURLErrorTemplateConstant, protocolError.Protocol, unknownProtocolMessageConstant)
}

// ParseRemoteURL converts a textual remote URL into a structured
// representation. It accepts https URLs plus ssh remotes in either URL or
// scp syntax; anything else is rejected with a RemoteURLParseError.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSpace(remote)
	switch {
	case len(trimmedRemote) == 0:
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	case strings.HasPrefix(trimmedRemote, sshSchemePrefixConstant):
		return parseSSHRemote(strings.TrimPrefix(trimmedRemote, sshSchemePrefixConstant))
	case strings.HasPrefix(trimmedRemote, scpUserPrefixConstant):
		return parseSSHRemote(trimmedRemote)
	case strings.HasPrefix(trimmedRemote, httpsSchemePrefixConstant):
		return parseHTTPSRemote(strings.TrimPrefix(trimmedRemote, httpsSchemePrefixConstant))
	}
	return RemoteURL{}, RemoteURLParseError{Input: remote, Message: malformedRemoteMessageConstant}
}

func parseSSHRemote(remote string) (RemoteURL, error) {
	_, hostAndPath, userFound := strings.Cut(remote, remoteUserDelimiterConstant)
	if !userFound {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: malformedRemoteMessageConstant}
	}

	host, repositoryPath, delimiterFound := strings.Cut(hostAndPath, scpPathDelimiterConstant)
	if !delimiterFound {
		host, repositoryPath, delimiterFound = strings.Cut(hostAndPath, remotePathSeparatorConstant)
		if !delimiterFound {
			return RemoteURL{}, RemoteURLParseError{Input: remote, Message: malformedRemoteMessageConstant}
		}
	}

	owner, repository, splitError := splitRepositoryPath(repositoryPath)
	if splitError != nil {
		return RemoteURL{}, splitError
	}
	return RemoteURL{Protocol: RemoteProtocolSSH, Host: host, Owner: owner, Repository: repository}, nil
}

func parseHTTPSRemote(remote string) (RemoteURL, error) {
	host, repositoryPath, delimiterFound := strings.Cut(remote, remotePathSeparatorConstant)
	if !delimiterFound || len(host) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: malformedRemoteMessageConstant}
	}

	owner, repository, splitError := splitRepositoryPath(repositoryPath)
	if splitError != nil {
		return RemoteURL{}, splitError
	}
	return RemoteURL{Protocol: RemoteProtocolHTTPS, Host: host, Owner: owner, Repository: repository}, nil
}

func splitRepositoryPath(repositoryPath string) (string, string, error) {
	owner, repositorySegment, separatorFound := strings.Cut(repositoryPath, remotePathSeparatorConstant)
	repositoryName := strings.TrimSuffix(repositorySegment, gitDirectorySuffixConstant)
	if !separatorFound || len(owner) == 0 || len(repositoryName) == 0 {
		return "", "", RemoteURLParseError{Input: repositoryPath, Message: malformedRemoteMessageConstant}
	}
	return owner, repositoryName, nil
}

// FormatRemoteURL creates a textual remote URL from a structured representation.
func FormatRemoteURL(remote RemoteURL) (string, error) {
	for _, requiredField := range []string{remote.Host, remote.Owner, remote.Repository} {
		if len(strings.TrimSpace(requiredField)) == 0 {
			return "", RemoteURLParseError{Input: requiredField, Message: requiredValueMessageConstant}
		}
	}

	repositoryPath := remote.Owner + remotePathSeparatorConstant + remote.Repository + gitDirectorySuffixConstant
	switch remote.Protocol {
	case RemoteProtocolSSH:
		return scpUserPrefixConstant + remote.Host + scpPathDelimiterConstant + repositoryPath, nil
	case RemoteProtocolHTTPS:
		return httpsSchemePrefixConstant + remote.Host + remotePathSeparatorConstant + repositoryPath, nil
	default:
		return "", UnsupportedProtocolError{Protocol: remote.Protocol}
	}
}
