// Package submodule moves a gitlink inside a GitHub repository without a local clone.
//
// Bumper drives the Git Data API in four dependent steps: it resolves the
// branch head, creates a tree that overrides one submodule path on top of the
// head's tree, creates a commit whose only parent is the old head, and
// advances the branch reference to that commit. CommandBuilder wires the
// workflow into Cobra, resolving the GitHub token and the PROJECT, BRANCH, and
// GIT_SHA inputs before any network call is made.
package submodule
