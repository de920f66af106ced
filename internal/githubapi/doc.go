// Package githubapi issues JSON requests against the GitHub REST API.
//
// Client builds on go-github for request construction, authentication headers,
// and response decoding. Every failed call surfaces as a *RemoteAPIError that
// carries the step, the request shape, the HTTP status, and the raw response
// body. Typed helpers cover the Git Data endpoints used to move a branch:
// references, commits, and trees.
package githubapi
