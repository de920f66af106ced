package gitrepo

import (
	"fmt"
	"strings"
)

const (
	sshProtocolPrefixConstant           = "ssh://"
	sshUserDelimiterConstant            = "@"
	sshPathDelimiterConstant            = ":"
	httpsProtocolPrefixConstant         = "https://"
	pathSeparatorConstant               = "/"
	gitSuffixConstant                   = ".git"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	requiredValueMessageConstant        = "value required"
	invalidRemoteURLMessageConstant     = "invalid repository locator"
	ownerAndNameMessageConstant         = "expected owner/name"
)

// RepositoryLocator identifies a repository on a hosting service. Host is empty for owner/name shorthand.
type RepositoryLocator struct {
	Host       string
	Owner      string
	Repository string
}

// RemoteURLParseError indicates a locator string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// ParseRepositoryLocator accepts owner/name, https://host/owner/name[.git],
// git@host:owner/name[.git], and ssh://git@host/owner/name[.git].
func ParseRepositoryLocator(value string) (RepositoryLocator, error) {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return RepositoryLocator{}, RemoteURLParseError{Input: value, Message: requiredValueMessageConstant}
	}

	switch {
	case strings.HasPrefix(trimmedValue, httpsProtocolPrefixConstant):
		return parseHostAndPath(value, strings.TrimPrefix(trimmedValue, httpsProtocolPrefixConstant), pathSeparatorConstant)
	case strings.HasPrefix(trimmedValue, sshProtocolPrefixConstant):
		return parseSSHRemote(value, strings.TrimPrefix(trimmedValue, sshProtocolPrefixConstant), pathSeparatorConstant)
	case strings.Contains(trimmedValue, sshUserDelimiterConstant):
		return parseSSHRemote(value, trimmedValue, sshPathDelimiterConstant)
	}

	owner, repository, splitError := splitOwnerAndRepository(value, trimmedValue)
	if splitError != nil {
		return RepositoryLocator{}, splitError
	}
	return RepositoryLocator{Owner: owner, Repository: repository}, nil
}

func parseSSHRemote(input string, remote string, pathDelimiter string) (RepositoryLocator, error) {
	userSplitIndex := strings.Index(remote, sshUserDelimiterConstant)
	if userSplitIndex == -1 {
		return RepositoryLocator{}, RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
	}
	return parseHostAndPath(input, remote[userSplitIndex+1:], pathDelimiter)
}

func parseHostAndPath(input string, hostAndPath string, pathDelimiter string) (RepositoryLocator, error) {
	pathSplitIndex := strings.Index(hostAndPath, pathDelimiter)
	if pathSplitIndex <= 0 {
		return RepositoryLocator{}, RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
	}

	owner, repository, splitError := splitOwnerAndRepository(input, strings.TrimSuffix(hostAndPath[pathSplitIndex+1:], pathSeparatorConstant))
	if splitError != nil {
		return RepositoryLocator{}, splitError
	}
	return RepositoryLocator{Host: hostAndPath[:pathSplitIndex], Owner: owner, Repository: repository}, nil
}

func splitOwnerAndRepository(input string, path string) (string, string, error) {
	segments := strings.Split(path, pathSeparatorConstant)
	if len(segments) != 2 {
		return "", "", RemoteURLParseError{Input: input, Message: ownerAndNameMessageConstant}
	}

	owner := strings.TrimSpace(segments[0])
	repository := strings.TrimSpace(strings.TrimSuffix(segments[1], gitSuffixConstant))
	if len(owner) == 0 || len(repository) == 0 {
		return "", "", RemoteURLParseError{Input: input, Message: ownerAndNameMessageConstant}
	}
	return owner, repository, nil
}
