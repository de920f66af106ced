package githubauth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	pathutils "github.com/broadinstitute/submodule-bump/internal/utils/path"
)

// Environment variable and file names consulted by default.
const (
	EnvGitHubToken       = "GITHUB_TOKEN"
	DefaultTokenFilePath = "~/.github-token"
)

const (
	tokenSourceSeparatorConstant               = ":"
	environmentTokenSourceTypeValueConstant    = "env"
	fileTokenSourceTypeValueConstant           = "file"
	tokenSourceMissingErrorMessageConstant     = "token source must be provided"
	environmentNameMissingErrorMessageConstant = "environment variable name must be provided"
	filePathMissingErrorMessageConstant        = "token file path must be provided"
	environmentTokenMissingTemplateConstant    = "environment variable %s is not set"
	fileReadErrorTemplateConstant              = "unable to read token file %s: %w"
	fileTokenEmptyErrorTemplateConstant        = "token file %s is empty"
	unsupportedTokenSourceTemplateConstant     = "unsupported token source type %q"
	tokenNotFoundTemplateConstant              = "could not find GitHub token: tried %s"
	environmentSourceDescriptionConstant       = "%s environment variable"
	sourceDescriptionSeparatorConstant         = " and "
)

// ErrTokenNotFound indicates that none of the configured sources yielded a token.
var ErrTokenNotFound = errors.New("github token not found")

// TokenSourceType enumerates the supported token retrieval mechanisms.
type TokenSourceType string

// Token source type enumerations.
const (
	TokenSourceTypeEnvironment TokenSourceType = TokenSourceType(environmentTokenSourceTypeValueConstant)
	TokenSourceTypeFile        TokenSourceType = TokenSourceType(fileTokenSourceTypeValueConstant)
)

// TokenSourceConfiguration specifies how to locate a credentials token.
type TokenSourceConfiguration struct {
	Type      TokenSourceType
	Reference string
}

// Describe renders the source the way it is reported to operators.
func (source TokenSourceConfiguration) Describe() string {
	if source.Type == TokenSourceTypeEnvironment {
		return fmt.Sprintf(environmentSourceDescriptionConstant, source.Reference)
	}
	return source.Reference
}

// DefaultTokenSources lists the GITHUB_TOKEN variable followed by the ~/.github-token file.
func DefaultTokenSources() []string {
	return []string{
		environmentTokenSourceTypeValueConstant + tokenSourceSeparatorConstant + EnvGitHubToken,
		fileTokenSourceTypeValueConstant + tokenSourceSeparatorConstant + DefaultTokenFilePath,
	}
}

// TokenResolver retrieves authentication tokens from configured sources.
type TokenResolver interface {
	ResolveToken(resolutionContext context.Context, source TokenSourceConfiguration) (string, error)
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// TokenNotFoundError lists every source consulted before giving up.
type TokenNotFoundError struct {
	Sources []TokenSourceConfiguration
}

// Error describes the sources that were tried.
func (notFoundError TokenNotFoundError) Error() string {
	descriptions := make([]string, 0, len(notFoundError.Sources))
	for _, source := range notFoundError.Sources {
		descriptions = append(descriptions, source.Describe())
	}
	return fmt.Sprintf(tokenNotFoundTemplateConstant, strings.Join(descriptions, sourceDescriptionSeparatorConstant))
}

// Unwrap allows errors.Is comparisons against ErrTokenNotFound.
func (notFoundError TokenNotFoundError) Unwrap() error {
	return ErrTokenNotFound
}

// NewTokenResolver creates a token resolver with optional dependency overrides.
func NewTokenResolver(environmentLookup EnvironmentLookup, fileReader FileReader, homeExpander *pathutils.HomeExpander) TokenResolver {
	resolvedEnvironmentLookup := environmentLookup
	if resolvedEnvironmentLookup == nil {
		resolvedEnvironmentLookup = os.LookupEnv
	}

	resolvedFileReader := fileReader
	if resolvedFileReader == nil {
		resolvedFileReader = os.ReadFile
	}

	resolvedHomeExpander := homeExpander
	if resolvedHomeExpander == nil {
		resolvedHomeExpander = pathutils.NewHomeExpander()
	}

	return &tokenResolver{
		environmentLookup: resolvedEnvironmentLookup,
		fileReader:        resolvedFileReader,
		homeExpander:      resolvedHomeExpander,
	}
}

// ParseTokenSource interprets textual token source declarations such as env:NAME or file:/path.
// A value without a type prefix names an environment variable.
func ParseTokenSource(sourceValue string) (TokenSourceConfiguration, error) {
	trimmedValue := strings.TrimSpace(sourceValue)
	if len(trimmedValue) == 0 {
		return TokenSourceConfiguration{}, errors.New(tokenSourceMissingErrorMessageConstant)
	}

	components := strings.SplitN(trimmedValue, tokenSourceSeparatorConstant, 2)
	if len(components) == 1 {
		return TokenSourceConfiguration{
			Type:      TokenSourceTypeEnvironment,
			Reference: trimmedValue,
		}, nil
	}

	sourceType := strings.ToLower(strings.TrimSpace(components[0]))
	reference := strings.TrimSpace(components[1])

	switch sourceType {
	case environmentTokenSourceTypeValueConstant:
		if len(reference) == 0 {
			return TokenSourceConfiguration{}, errors.New(environmentNameMissingErrorMessageConstant)
		}
		return TokenSourceConfiguration{Type: TokenSourceTypeEnvironment, Reference: reference}, nil
	case fileTokenSourceTypeValueConstant:
		if len(reference) == 0 {
			return TokenSourceConfiguration{}, errors.New(filePathMissingErrorMessageConstant)
		}
		return TokenSourceConfiguration{Type: TokenSourceTypeFile, Reference: reference}, nil
	default:
		return TokenSourceConfiguration{}, fmt.Errorf(unsupportedTokenSourceTemplateConstant, sourceType)
	}
}

// ParseTokenSources parses every declaration in order.
func ParseTokenSources(sourceValues []string) ([]TokenSourceConfiguration, error) {
	parsedSources := make([]TokenSourceConfiguration, 0, len(sourceValues))
	for _, sourceValue := range sourceValues {
		if len(strings.TrimSpace(sourceValue)) == 0 {
			continue
		}
		parsedSource, parseError := ParseTokenSource(sourceValue)
		if parseError != nil {
			return nil, parseError
		}
		parsedSources = append(parsedSources, parsedSource)
	}
	return parsedSources, nil
}

// ResolveFirstToken returns the token from the first source that yields one.
// Sources that are absent or empty are skipped; a TokenNotFoundError is returned when all fail.
func ResolveFirstToken(resolutionContext context.Context, resolver TokenResolver, sources []TokenSourceConfiguration) (string, TokenSourceConfiguration, error) {
	for _, source := range sources {
		token, resolveError := resolver.ResolveToken(resolutionContext, source)
		if resolveError != nil {
			continue
		}
		return token, source, nil
	}
	return "", TokenSourceConfiguration{}, TokenNotFoundError{Sources: sources}
}

type tokenResolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
	homeExpander      *pathutils.HomeExpander
}

func (resolver *tokenResolver) ResolveToken(resolutionContext context.Context, source TokenSourceConfiguration) (string, error) {
	switch source.Type {
	case TokenSourceTypeEnvironment:
		value, found := resolver.environmentLookup(source.Reference)
		trimmedValue := strings.TrimSpace(value)
		if !found || len(trimmedValue) == 0 {
			return "", fmt.Errorf(environmentTokenMissingTemplateConstant, source.Reference)
		}
		return trimmedValue, nil
	case TokenSourceTypeFile:
		expandedPath := resolver.homeExpander.Expand(source.Reference)
		contents, readError := resolver.fileReader(expandedPath)
		if readError != nil {
			return "", fmt.Errorf(fileReadErrorTemplateConstant, expandedPath, readError)
		}
		trimmedValue := strings.TrimSpace(string(contents))
		if len(trimmedValue) == 0 {
			return "", fmt.Errorf(fileTokenEmptyErrorTemplateConstant, expandedPath)
		}
		return trimmedValue, nil
	default:
		return "", fmt.Errorf(unsupportedTokenSourceTemplateConstant, source.Type)
	}
}
