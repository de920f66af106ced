package githubapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the public GitHub REST API root.
const DefaultBaseURL = "https://api.github.com/"

const (
	userAgentConstant                   = "submodule-bump"
	baseURLPathSuffixConstant           = "/"
	invalidBaseURLTemplateConstant      = "invalid GitHub API base URL %q: %w"
	unsupportedBaseURLTemplateConstant  = "GitHub API base URL %q must be absolute"
	requestConstructionTemplateConstant = "unable to build request: %w"
)

// ClientConfiguration describes how to reach and authenticate against the GitHub API.
type ClientConfiguration struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// Client performs JSON calls against the GitHub REST API.
type Client struct {
	apiClient *github.Client
}

// NewClient constructs a Client. When a token is configured every request carries
// it as a bearer credential; otherwise requests are anonymous.
func NewClient(clientContext context.Context, configuration ClientConfiguration) (*Client, error) {
	baseURL, baseURLError := parseBaseURL(configuration.BaseURL)
	if baseURLError != nil {
		return nil, baseURLError
	}

	httpClient := configuration.HTTPClient
	if token := strings.TrimSpace(configuration.Token); len(token) > 0 {
		if clientContext == nil {
			clientContext = context.Background()
		}
		if httpClient != nil {
			clientContext = context.WithValue(clientContext, oauth2.HTTPClient, httpClient)
		}
		tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(clientContext, tokenSource)
	}

	apiClient := github.NewClient(httpClient)
	apiClient.BaseURL = baseURL
	apiClient.UserAgent = userAgentConstant

	return &Client{apiClient: apiClient}, nil
}

// BaseURL returns the API root requests are resolved against.
func (client *Client) BaseURL() *url.URL {
	resolvedURL := *client.apiClient.BaseURL
	return &resolvedURL
}

// Call sends one request and decodes the JSON reply into responseBody when it is non-nil.
// endpoint may be relative to the base URL or absolute. requestBody is JSON encoded when non-nil.
func (client *Client) Call(callContext context.Context, step Step, method string, endpoint string, requestBody any, responseBody any) error {
	request, requestError := client.apiClient.NewRequest(method, endpoint, requestBody)
	if requestError != nil {
		return &RemoteAPIError{
			Step:   step,
			Method: method,
			URL:    endpoint,
			Cause:  fmt.Errorf(requestConstructionTemplateConstant, requestError),
		}
	}

	response, callError := client.apiClient.Do(callContext, request, responseBody)
	if callError != nil {
		return newRemoteAPIError(step, request, response, callError)
	}

	return nil
}

func newRemoteAPIError(step Step, request *http.Request, response *github.Response, cause error) *RemoteAPIError {
	remoteError := &RemoteAPIError{
		Step:   step,
		Method: request.Method,
		URL:    request.URL.String(),
		Cause:  cause,
	}

	if response != nil && response.Response != nil {
		remoteError.StatusCode = response.StatusCode
		if response.Body != nil {
			if responseBytes, readError := io.ReadAll(response.Body); readError == nil {
				remoteError.Body = strings.TrimSpace(string(responseBytes))
			}
		}
	}

	if len(remoteError.Body) == 0 {
		var errorResponse *github.ErrorResponse
		if errors.As(cause, &errorResponse) {
			remoteError.Body = errorResponse.Message
		} else if remoteError.StatusCode != 0 {
			remoteError.Body = cause.Error()
		}
	}

	return remoteError
}

func parseBaseURL(rawBaseURL string) (*url.URL, error) {
	trimmedBaseURL := strings.TrimSpace(rawBaseURL)
	if len(trimmedBaseURL) == 0 {
		trimmedBaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(trimmedBaseURL, baseURLPathSuffixConstant) {
		trimmedBaseURL += baseURLPathSuffixConstant
	}

	parsedURL, parseError := url.Parse(trimmedBaseURL)
	if parseError != nil {
		return nil, fmt.Errorf(invalidBaseURLTemplateConstant, rawBaseURL, parseError)
	}
	if !parsedURL.IsAbs() {
		return nil, fmt.Errorf(unsupportedBaseURLTemplateConstant, rawBaseURL)
	}
	return parsedURL, nil
}
