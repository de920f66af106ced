// Package gitrepo parses the textual forms operators use to name a hosted
// repository: owner/name shorthand and HTTPS or SSH remote URLs.
package gitrepo
