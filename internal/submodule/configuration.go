package submodule

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/broadinstitute/submodule-bump/internal/githubapi"
	"github.com/broadinstitute/submodule-bump/internal/githubauth"
)

// Names of the required inputs as operators set them.
const (
	InputGitHubToken = "GITHUB_TOKEN"
	InputProject     = "PROJECT"
	InputBranch      = "BRANCH"
	InputCommitSHA   = "GIT_SHA"
	InputRepository  = "REPOSITORY"
)

// DefaultRepository is the repository whose submodules are bumped unless configured otherwise.
const DefaultRepository = "broadinstitute/firecloud-develop"

const (
	apiBaseURLKeyConstant            = "github.api_base_url"
	repositoryKeyConstant            = "github.repository"
	tokenSourcesKeyConstant          = "github.token_sources"
	projectKeyConstant               = "bump.project"
	branchKeyConstant                = "bump.branch"
	commitSHAKeyConstant             = "bump.commit_sha"
	configurationKeySeparator        = "."
	inputNotSetTemplateConstant      = "%s not set"
	inputInvalidTemplateConstant     = "%s: %v"
	invalidCommitSHATemplateConstant = "%q is not a full 40-character commit SHA"
)

// Configuration aggregates the settings of a bump run.
type Configuration struct {
	GitHub GitHubConfiguration `mapstructure:"github"`
	Bump   BumpConfiguration   `mapstructure:"bump"`
}

// GitHubConfiguration locates the API, the repository, and the token.
type GitHubConfiguration struct {
	APIBaseURL   string                   `mapstructure:"api_base_url"`
	Repository   githubapi.RepositoryName `mapstructure:"repository"`
	TokenSources []string                 `mapstructure:"token_sources"`
}

// BumpConfiguration holds the PROJECT, BRANCH, and GIT_SHA inputs.
type BumpConfiguration struct {
	Project   string `mapstructure:"project"`
	Branch    string `mapstructure:"branch"`
	CommitSHA string `mapstructure:"commit_sha"`
}

// ConfigError reports a required input that is absent or unusable.
type ConfigError struct {
	Input string
	Cause error
}

// Error names the offending input.
func (configError ConfigError) Error() string {
	if configError.Cause == nil {
		return fmt.Sprintf(inputNotSetTemplateConstant, configError.Input)
	}
	return fmt.Sprintf(inputInvalidTemplateConstant, configError.Input, configError.Cause)
}

// Unwrap exposes the underlying cause.
func (configError ConfigError) Unwrap() error {
	return configError.Cause
}

// DefaultConfiguration supplies baseline values.
func DefaultConfiguration() Configuration {
	return Configuration{
		GitHub: GitHubConfiguration{
			APIBaseURL:   githubapi.DefaultBaseURL,
			Repository:   githubapi.RepositoryName{Owner: "broadinstitute", Name: "firecloud-develop"},
			TokenSources: githubauth.DefaultTokenSources(),
		},
	}
}

// DefaultConfigurationValues returns viper defaults keyed below prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	return map[string]any{
		prefixedKey(prefix, apiBaseURLKeyConstant):   githubapi.DefaultBaseURL,
		prefixedKey(prefix, repositoryKeyConstant):   DefaultRepository,
		prefixedKey(prefix, tokenSourcesKeyConstant): githubauth.DefaultTokenSources(),
	}
}

// EnvironmentBindings maps configuration keys below prefix onto the plain PROJECT, BRANCH, and GIT_SHA variables.
func EnvironmentBindings(prefix string) map[string][]string {
	return map[string][]string{
		prefixedKey(prefix, projectKeyConstant):   {InputProject},
		prefixedKey(prefix, branchKeyConstant):    {InputBranch},
		prefixedKey(prefix, commitSHAKeyConstant): {InputCommitSHA},
	}
}

// Sanitize trims configured values and restores defaults for unset GitHub settings.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration

	sanitized.GitHub.APIBaseURL = strings.TrimSpace(configuration.GitHub.APIBaseURL)
	if len(sanitized.GitHub.APIBaseURL) == 0 {
		sanitized.GitHub.APIBaseURL = defaults.GitHub.APIBaseURL
	}
	if configuration.GitHub.Repository.IsZero() {
		sanitized.GitHub.Repository = defaults.GitHub.Repository
	}

	trimmedSources := make([]string, 0, len(configuration.GitHub.TokenSources))
	for _, tokenSource := range configuration.GitHub.TokenSources {
		if trimmedSource := strings.TrimSpace(tokenSource); len(trimmedSource) > 0 {
			trimmedSources = append(trimmedSources, trimmedSource)
		}
	}
	if len(trimmedSources) == 0 {
		trimmedSources = defaults.GitHub.TokenSources
	}
	sanitized.GitHub.TokenSources = trimmedSources

	sanitized.Bump = configuration.Bump.Sanitize()
	return sanitized
}

// Sanitize trims the bump inputs.
func (configuration BumpConfiguration) Sanitize() BumpConfiguration {
	return BumpConfiguration{
		Project:   strings.TrimSpace(configuration.Project),
		Branch:    strings.TrimSpace(configuration.Branch),
		CommitSHA: strings.TrimSpace(configuration.CommitSHA),
	}
}

// Validate reports the first missing input in PROJECT, BRANCH, GIT_SHA order,
// then rejects a GIT_SHA that is not a full object name.
func (configuration BumpConfiguration) Validate() error {
	if len(configuration.Project) == 0 {
		return ConfigError{Input: InputProject}
	}
	if len(configuration.Branch) == 0 {
		return ConfigError{Input: InputBranch}
	}
	if len(configuration.CommitSHA) == 0 {
		return ConfigError{Input: InputCommitSHA}
	}
	if !plumbing.IsHash(configuration.CommitSHA) {
		return ConfigError{Input: InputCommitSHA, Cause: fmt.Errorf(invalidCommitSHATemplateConstant, configuration.CommitSHA)}
	}
	return nil
}

func prefixedKey(prefix string, key string) string {
	if len(prefix) == 0 {
		return key
	}
	return prefix + configurationKeySeparator + key
}
