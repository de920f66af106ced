package submodule

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/broadinstitute/submodule-bump/internal/githubapi"
	"github.com/broadinstitute/submodule-bump/internal/githubauth"
)

const (
	commandUseConstant                    = "bump"
	commandShortDescriptionConstant       = "Point a submodule at a new commit on a GitHub branch"
	commandLongDescriptionConstant        = "bump records GIT_SHA as the commit of submodule PROJECT on BRANCH using the GitHub Git Data API. No local clone is involved."
	commandExecutionErrorTemplateConstant = "submodule bump failed: %w"
	unexpectedArgumentsMessageConstant    = "bump does not accept positional arguments"
	successTemplateConstant               = "%s updated to %s.\n"
	tokenResolvedMessageConstant          = "github token resolved"
	logFieldTokenSourceConstant           = "token_source"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the loaded configuration.
type ConfigurationProvider func() Configuration

// ClientFactory builds the Git Data client for an authenticated session.
type ClientFactory func(clientContext context.Context, configuration githubapi.ClientConfiguration) (GitDataClient, error)

// CommandBuilder assembles the Cobra command performing a submodule bump.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	TokenResolver         githubauth.TokenResolver
	ClientFactory         ClientFactory
}

// Build constructs the bump command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.Run,
	}

	return command, nil
}

// Run resolves the token, validates the inputs, and performs one bump.
// Every input problem is reported before the first network call.
func (builder *CommandBuilder) Run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	logger := builder.resolveLogger()
	configuration := builder.resolveConfiguration()

	token, tokenError := builder.resolveToken(executionContext, logger, configuration.GitHub)
	if tokenError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, tokenError)
	}

	if validationError := configuration.Bump.Validate(); validationError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, validationError)
	}

	client, clientError := builder.resolveClientFactory()(executionContext, githubapi.ClientConfiguration{
		BaseURL: configuration.GitHub.APIBaseURL,
		Token:   token,
	})
	if clientError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, clientError)
	}

	bumper, bumperError := NewBumper(logger, client)
	if bumperError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, bumperError)
	}

	result, bumpError := bumper.Bump(executionContext, BumpOptions{
		Repository:    configuration.GitHub.Repository,
		Branch:        configuration.Bump.Branch,
		SubmodulePath: configuration.Bump.Project,
		CommitSHA:     configuration.Bump.CommitSHA,
	})
	if bumpError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, bumpError)
	}

	writeSummary(command.OutOrStdout(), result)
	return nil
}

func writeSummary(writer io.Writer, result BumpResult) {
	fmt.Fprintf(writer, successTemplateConstant, result.Branch, result.CommitSHA)
}

func (builder *CommandBuilder) resolveToken(resolutionContext context.Context, logger *zap.Logger, configuration GitHubConfiguration) (string, error) {
	tokenSources, parseError := githubauth.ParseTokenSources(configuration.TokenSources)
	if parseError != nil {
		return "", ConfigError{Input: InputGitHubToken, Cause: parseError}
	}

	resolver := builder.TokenResolver
	if resolver == nil {
		resolver = githubauth.NewTokenResolver(nil, nil, nil)
	}

	token, tokenSource, resolveError := githubauth.ResolveFirstToken(resolutionContext, resolver, tokenSources)
	if resolveError != nil {
		return "", ConfigError{Input: InputGitHubToken, Cause: resolveError}
	}

	logger.Debug(tokenResolvedMessageConstant, zap.String(logFieldTokenSourceConstant, tokenSource.Describe()))
	return token, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	if builder.ConfigurationProvider == nil {
		return DefaultConfiguration().Sanitize()
	}

	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveClientFactory() ClientFactory {
	if builder.ClientFactory != nil {
		return builder.ClientFactory
	}

	return newGitHubClient
}

func newGitHubClient(clientContext context.Context, configuration githubapi.ClientConfiguration) (GitDataClient, error) {
	client, clientError := githubapi.NewClient(clientContext, configuration)
	if clientError != nil {
		return nil, clientError
	}
	return client, nil
}
