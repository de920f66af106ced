package githubapi

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	remoteStatusErrorTemplateConstant    = "%s failed: %s %s returned %d: %s"
	remoteTransportErrorTemplateConstant = "%s failed: %s %s: %v"
	malformedResponseTemplateConstant    = "%s returned a response without %s"
)

// Step names one call of a multi-call workflow for diagnostics.
type Step string

// RemoteAPIError reports a GitHub API call that did not succeed.
// StatusCode is zero when no HTTP response was received.
type RemoteAPIError struct {
	Step       Step
	Method     string
	URL        string
	StatusCode int
	Body       string
	Cause      error
}

// Error describes the failed request and the server's reply.
func (remoteError *RemoteAPIError) Error() string {
	if remoteError.StatusCode == 0 {
		return fmt.Sprintf(remoteTransportErrorTemplateConstant, remoteError.Step, remoteError.Method, remoteError.URL, remoteError.Cause)
	}
	return fmt.Sprintf(remoteStatusErrorTemplateConstant, remoteError.Step, remoteError.Method, remoteError.URL, remoteError.StatusCode, remoteError.Body)
}

// Unwrap exposes the underlying go-github or transport error.
func (remoteError *RemoteAPIError) Unwrap() error {
	return remoteError.Cause
}

// MalformedResponseError indicates a successful response missing a field the workflow depends on.
type MalformedResponseError struct {
	Step  Step
	Field string
}

// Error names the missing field.
func (malformedError *MalformedResponseError) Error() string {
	return fmt.Sprintf(malformedResponseTemplateConstant, malformedError.Step, malformedError.Field)
}

// IsNotFound reports whether err is a RemoteAPIError for a 404 response.
func IsNotFound(err error) bool {
	var remoteError *RemoteAPIError
	return errors.As(err, &remoteError) && remoteError.StatusCode == http.StatusNotFound
}
