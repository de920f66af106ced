package submodule_test

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"

	"github.com/broadinstitute/submodule-bump/internal/githubapi"
	"github.com/broadinstitute/submodule-bump/internal/githubauth"
	"github.com/broadinstitute/submodule-bump/internal/submodule"
	pathutils "github.com/broadinstitute/submodule-bump/internal/utils/path"
)

const (
	testTokenConstant            = "secret-token"
	testAPIHostConstant          = "https://api.github.com"
	testRepositoryPathConstant   = "/repos/broadinstitute/firecloud-develop"
	testBranchReferencePath      = testRepositoryPathConstant + "/git/refs/heads/develop"
	testHomeDirectoryConstant    = "/home/tester"
	testTokenFilePathConstant    = testHomeDirectoryConstant + "/.github-token"
	testExpectedSuccessConstant  = "develop updated to " + testNewCommitSHAConstant + ".\n"
	testTokenNotFoundMessageText = "could not find GitHub token: tried GITHUB_TOKEN environment variable and ~/.github-token"
)

type commandHarness struct {
	builder         *submodule.CommandBuilder
	client          *stubGitDataClient
	factoryCalls    int
	receivedClients []githubapi.ClientConfiguration
}

func newCommandHarness(environment map[string]string, files map[string]string, configuration submodule.Configuration) *commandHarness {
	harness := &commandHarness{client: newStubGitDataClient()}

	resolver := githubauth.NewTokenResolver(
		func(key string) (string, bool) {
			value, found := environment[key]
			return value, found
		},
		func(path string) ([]byte, error) {
			contents, found := files[path]
			if !found {
				return nil, fs.ErrNotExist
			}
			return []byte(contents), nil
		},
		pathutils.NewHomeExpanderWithProvider(func() (string, error) {
			return testHomeDirectoryConstant, nil
		}),
	)

	harness.builder = &submodule.CommandBuilder{
		ConfigurationProvider: func() submodule.Configuration {
			return configuration
		},
		TokenResolver: resolver,
		ClientFactory: func(_ context.Context, clientConfiguration githubapi.ClientConfiguration) (submodule.GitDataClient, error) {
			harness.factoryCalls++
			harness.receivedClients = append(harness.receivedClients, clientConfiguration)
			return harness.client, nil
		},
	}

	return harness
}

func executeCommand(testInstance *testing.T, builder *submodule.CommandBuilder, arguments ...string) (string, error) {
	testInstance.Helper()

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetErr(&bytes.Buffer{})
	command.SilenceUsage = true
	command.SilenceErrors = true
	command.SetContext(context.Background())
	command.SetArgs(append([]string{}, arguments...))

	executionError := command.Execute()
	return outputBuffer.String(), executionError
}

func completeBumpConfiguration() submodule.Configuration {
	return submodule.Configuration{
		Bump: submodule.BumpConfiguration{
			Project:   testProjectConstant,
			Branch:    testBranchConstant,
			CommitSHA: testFullCommitSHAConstant,
		},
	}
}

func TestCommandReportsMissingInputs(testInstance *testing.T) {
	tokenEnvironment := map[string]string{"GITHUB_TOKEN": testTokenConstant}

	testCases := []struct {
		name          string
		environment   map[string]string
		bump          submodule.BumpConfiguration
		expectedInput string
		expectedText  string
	}{
		{
			name:          "token_missing",
			environment:   map[string]string{},
			bump:          completeBumpConfiguration().Bump,
			expectedInput: submodule.InputGitHubToken,
			expectedText:  testTokenNotFoundMessageText,
		},
		{
			name:          "everything_missing_reports_token",
			environment:   map[string]string{},
			bump:          submodule.BumpConfiguration{},
			expectedInput: submodule.InputGitHubToken,
			expectedText:  testTokenNotFoundMessageText,
		},
		{
			name:          "project_missing",
			environment:   tokenEnvironment,
			bump:          submodule.BumpConfiguration{Branch: testBranchConstant, CommitSHA: testFullCommitSHAConstant},
			expectedInput: submodule.InputProject,
			expectedText:  "PROJECT not set",
		},
		{
			name:          "branch_missing",
			environment:   tokenEnvironment,
			bump:          submodule.BumpConfiguration{Project: testProjectConstant, CommitSHA: testFullCommitSHAConstant},
			expectedInput: submodule.InputBranch,
			expectedText:  "BRANCH not set",
		},
		{
			name:          "commit_sha_missing",
			environment:   tokenEnvironment,
			bump:          submodule.BumpConfiguration{Project: testProjectConstant, Branch: testBranchConstant},
			expectedInput: submodule.InputCommitSHA,
			expectedText:  "GIT_SHA not set",
		},
		{
			name:          "blank_inputs_count_as_missing",
			environment:   map[string]string{"GITHUB_TOKEN": "  "},
			bump:          submodule.BumpConfiguration{Project: " ", Branch: " ", CommitSHA: " "},
			expectedInput: submodule.InputGitHubToken,
			expectedText:  testTokenNotFoundMessageText,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			harness := newCommandHarness(testCase.environment, nil, submodule.Configuration{Bump: testCase.bump})

			output, executionError := executeCommand(testInstance, harness.builder)
			require.Error(testInstance, executionError)
			require.Empty(testInstance, output)

			var configError submodule.ConfigError
			require.True(testInstance, errors.As(executionError, &configError))
			require.Equal(testInstance, testCase.expectedInput, configError.Input)
			require.Contains(testInstance, executionError.Error(), testCase.expectedText)
			require.Contains(testInstance, executionError.Error(), "submodule bump failed")

			require.Zero(testInstance, harness.factoryCalls)
			require.Empty(testInstance, harness.client.calls)
		})
	}
}

func TestCommandMissingTokenUnwrapsToSentinel(testInstance *testing.T) {
	harness := newCommandHarness(map[string]string{}, nil, completeBumpConfiguration())

	_, executionError := executeCommand(testInstance, harness.builder)
	require.ErrorIs(testInstance, executionError, githubauth.ErrTokenNotFound)
}

func TestCommandBumpsBranch(testInstance *testing.T) {
	testCases := []struct {
		name        string
		environment map[string]string
		files       map[string]string
	}{
		{
			name:        "token_from_environment",
			environment: map[string]string{"GITHUB_TOKEN": testTokenConstant},
		},
		{
			name:        "token_from_home_file",
			environment: map[string]string{},
			files:       map[string]string{testTokenFilePathConstant: testTokenConstant + "\n"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			harness := newCommandHarness(testCase.environment, testCase.files, completeBumpConfiguration())

			output, executionError := executeCommand(testInstance, harness.builder)
			require.NoError(testInstance, executionError)
			require.Equal(testInstance, testExpectedSuccessConstant, output)

			require.Equal(testInstance, 1, harness.factoryCalls)
			require.Equal(testInstance, githubapi.ClientConfiguration{
				BaseURL: githubapi.DefaultBaseURL,
				Token:   testTokenConstant,
			}, harness.receivedClients[0])

			require.Len(testInstance, harness.client.calls, 5)
			require.Equal(testInstance, "broadinstitute/firecloud-develop@develop", harness.client.calls[0].target)
			require.JSONEq(testInstance, `{"sha":"commit000"}`, harness.client.calls[4].body)
		})
	}
}

func TestCommandRejectsPositionalArguments(testInstance *testing.T) {
	harness := newCommandHarness(map[string]string{"GITHUB_TOKEN": testTokenConstant}, nil, completeBumpConfiguration())

	_, executionError := executeCommand(testInstance, harness.builder, "unexpected")
	require.Error(testInstance, executionError)
	require.Zero(testInstance, harness.factoryCalls)
}

func TestCommandPropagatesRemoteFailure(testInstance *testing.T) {
	harness := newCommandHarness(map[string]string{"GITHUB_TOKEN": testTokenConstant}, nil, completeBumpConfiguration())
	harness.client.failingCall = testGetReferenceCallName
	harness.client.failure = &githubapi.RemoteAPIError{
		Step:       githubapi.StepGetBranchReference,
		Method:     http.MethodGet,
		URL:        testAPIHostConstant + testBranchReferencePath,
		StatusCode: http.StatusNotFound,
		Body:       `{"message":"Not Found"}`,
	}

	output, executionError := executeCommand(testInstance, harness.builder)
	require.Empty(testInstance, output)
	require.True(testInstance, githubapi.IsNotFound(executionError))
	require.Contains(testInstance, executionError.Error(), "submodule bump failed: get branch reference failed: GET "+testAPIHostConstant+testBranchReferencePath+" returned 404")
	require.Len(testInstance, harness.client.calls, 1)
}

func TestCommandAgainstMockedGitHub(testInstance *testing.T) {
	defer gock.Off()

	commitURL := testAPIHostConstant + testRepositoryPathConstant + "/git/commits/" + testHeadSHAConstant

	gock.New(testAPIHostConstant).
		Get(testBranchReferencePath).
		MatchHeader("Authorization", "^Bearer "+testTokenConstant+"$").
		Reply(http.StatusOK).
		JSON(map[string]any{"ref": "refs/heads/develop", "object": map[string]any{"type": "commit", "sha": testHeadSHAConstant, "url": commitURL}})

	gock.New(testAPIHostConstant).
		Get(testRepositoryPathConstant + "/git/commits/" + testHeadSHAConstant).
		Reply(http.StatusOK).
		JSON(map[string]any{"sha": testHeadSHAConstant, "tree": map[string]any{"sha": testBaseTreeSHAConstant}})

	gock.New(testAPIHostConstant).
		Post(testRepositoryPathConstant + "/git/trees").
		MatchType("json").
		JSON(map[string]any{
			"base_tree": testBaseTreeSHAConstant,
			"tree": []map[string]any{
				{"path": testProjectConstant, "mode": "160000", "type": "commit", "sha": testFullCommitSHAConstant},
			},
		}).
		Reply(http.StatusCreated).
		JSON(map[string]any{"sha": testNewTreeSHAConstant})

	gock.New(testAPIHostConstant).
		Post(testRepositoryPathConstant + "/git/commits").
		MatchType("json").
		JSON(map[string]any{
			"message": "Bump myApp version to " + testFullCommitSHAConstant,
			"parents": []string{testHeadSHAConstant},
			"tree":    testNewTreeSHAConstant,
		}).
		Reply(http.StatusCreated).
		JSON(map[string]any{"sha": testNewCommitSHAConstant})

	gock.New(testAPIHostConstant).
		Patch(testBranchReferencePath).
		MatchType("json").
		JSON(map[string]any{"sha": testNewCommitSHAConstant}).
		Reply(http.StatusOK).
		JSON(map[string]any{"ref": "refs/heads/develop", "object": map[string]any{"type": "commit", "sha": testNewCommitSHAConstant}})

	builder := &submodule.CommandBuilder{
		ConfigurationProvider: completeBumpConfiguration,
		TokenResolver: githubauth.NewTokenResolver(func(key string) (string, bool) {
			if key == githubauth.EnvGitHubToken {
				return testTokenConstant, true
			}
			return "", false
		}, nil, nil),
	}

	output, executionError := executeCommand(testInstance, builder)
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, testExpectedSuccessConstant, output)
	require.True(testInstance, gock.IsDone())
}

func TestCommandStopsWhenBranchIsMissing(testInstance *testing.T) {
	defer gock.Off()

	gock.New(testAPIHostConstant).
		Get(testBranchReferencePath).
		Reply(http.StatusNotFound).
		JSON(map[string]any{"message": "Not Found"})

	builder := &submodule.CommandBuilder{
		ConfigurationProvider: completeBumpConfiguration,
		TokenResolver: githubauth.NewTokenResolver(func(string) (string, bool) {
			return testTokenConstant, true
		}, nil, nil),
	}

	_, executionError := executeCommand(testInstance, builder)
	require.True(testInstance, githubapi.IsNotFound(executionError))
	require.True(testInstance, gock.IsDone())
	require.False(testInstance, gock.HasUnmatchedRequest())
}
