// Package githubauth locates the GitHub token used to authenticate API calls.
//
// Sources are declared as env:NAME or file:PATH and are tried in order; the
// default order is the GITHUB_TOKEN environment variable followed by
// ~/.github-token.
package githubauth
