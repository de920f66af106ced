package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/google/go-github/v62/github"

	"github.com/broadinstitute/submodule-bump/internal/gitrepo"
)

// Steps of the Git Data workflow, in call order.
const (
	StepGetBranchReference    Step = "get branch reference"
	StepGetCommit             Step = "get head commit"
	StepCreateTree            Step = "create tree"
	StepCreateCommit          Step = "create commit"
	StepUpdateBranchReference Step = "update branch reference"
)

const (
	repositoryRootTemplateConstant    = "repos/%s/%s"
	branchReferenceTemplateConstant   = "%s/git/refs/heads/%s"
	treesEndpointTemplateConstant     = "%s/git/trees"
	commitsEndpointTemplateConstant   = "%s/git/commits"
	repositorySeparatorConstant       = "/"
	gitlinkModeBaseConstant           = 8
	invalidRepositoryTemplateConstant = "invalid repository %q: %w"
	invalidBranchTemplateConstant     = "invalid branch %q: %s"
	emptyBranchSegmentMessageConstant = "branch name contains an empty path segment"
	referenceObjectFieldConstant      = "object"
	referenceObjectSHAFieldConstant   = "object.sha"
	referenceObjectURLFieldConstant   = "object.url"
	commitTreeSHAFieldConstant        = "tree.sha"
	objectSHAFieldConstant            = "sha"
)

// GitlinkMode is the tree entry mode recording a submodule commit.
var GitlinkMode = strconv.FormatUint(uint64(filemode.Submodule), gitlinkModeBaseConstant)

// GitlinkType is the tree entry type of a submodule commit.
var GitlinkType = plumbing.CommitObject.String()

// RepositoryName identifies a GitHub repository as owner/name.
type RepositoryName struct {
	Owner string
	Name  string
}

// ParseRepositoryName parses owner/name or a GitHub remote URL naming the repository.
func ParseRepositoryName(value string) (RepositoryName, error) {
	locator, parseError := gitrepo.ParseRepositoryLocator(value)
	if parseError != nil {
		return RepositoryName{}, fmt.Errorf(invalidRepositoryTemplateConstant, value, parseError)
	}
	return RepositoryName{Owner: locator.Owner, Name: locator.Repository}, nil
}

// String renders owner/name.
func (repository RepositoryName) String() string {
	return repository.Owner + repositorySeparatorConstant + repository.Name
}

// IsZero reports whether the repository is unset.
func (repository RepositoryName) IsZero() bool {
	return len(repository.Owner) == 0 && len(repository.Name) == 0
}

// MarshalText renders owner/name.
func (repository RepositoryName) MarshalText() ([]byte, error) {
	return []byte(repository.String()), nil
}

// UnmarshalText parses owner/name.
func (repository *RepositoryName) UnmarshalText(text []byte) error {
	parsedRepository, parseError := ParseRepositoryName(string(text))
	if parseError != nil {
		return parseError
	}
	*repository = parsedRepository
	return nil
}

// APIRoot returns the repository's API path relative to the API base URL.
func (repository RepositoryName) APIRoot() string {
	return fmt.Sprintf(repositoryRootTemplateConstant, url.PathEscape(repository.Owner), url.PathEscape(repository.Name))
}

// BranchReferencePath returns the git/refs/heads endpoint for branch.
func (repository RepositoryName) BranchReferencePath(branch string) (string, error) {
	segments := strings.Split(branch, repositorySeparatorConstant)
	for segmentIndex, segment := range segments {
		if len(segment) == 0 {
			return "", fmt.Errorf(invalidBranchTemplateConstant, branch, emptyBranchSegmentMessageConstant)
		}
		segments[segmentIndex] = url.PathEscape(segment)
	}
	return fmt.Sprintf(branchReferenceTemplateConstant, repository.APIRoot(), strings.Join(segments, repositorySeparatorConstant)), nil
}

// CreateTreeRequest is the body of POST git/trees.
type CreateTreeRequest struct {
	BaseTree string              `json:"base_tree"`
	Tree     []*github.TreeEntry `json:"tree"`
}

// CreateCommitRequest is the body of POST git/commits.
type CreateCommitRequest struct {
	Message string   `json:"message"`
	Parents []string `json:"parents"`
	Tree    string   `json:"tree"`
}

// UpdateReferenceRequest is the body of PATCH git/refs/heads/{branch}. It never sets force.
type UpdateReferenceRequest struct {
	SHA string `json:"sha"`
}

// NewGitlinkEntry builds a tree entry pointing path at a submodule commit.
func NewGitlinkEntry(path string, commitSHA string) *github.TreeEntry {
	return &github.TreeEntry{
		Path: github.String(path),
		Mode: github.String(GitlinkMode),
		Type: github.String(GitlinkType),
		SHA:  github.String(commitSHA),
	}
}

// GetBranchReference resolves the reference of branch. The returned object carries
// both the head commit SHA and its API URL.
func (client *Client) GetBranchReference(callContext context.Context, repository RepositoryName, branch string) (*github.Reference, error) {
	referencePath, pathError := repository.BranchReferencePath(branch)
	if pathError != nil {
		return nil, pathError
	}

	reference := &github.Reference{}
	if callError := client.Call(callContext, StepGetBranchReference, http.MethodGet, referencePath, nil, reference); callError != nil {
		return nil, callError
	}

	if reference.Object == nil {
		return nil, &MalformedResponseError{Step: StepGetBranchReference, Field: referenceObjectFieldConstant}
	}
	if len(reference.Object.GetSHA()) == 0 {
		return nil, &MalformedResponseError{Step: StepGetBranchReference, Field: referenceObjectSHAFieldConstant}
	}
	if len(reference.Object.GetURL()) == 0 {
		return nil, &MalformedResponseError{Step: StepGetBranchReference, Field: referenceObjectURLFieldConstant}
	}

	return reference, nil
}

// GetCommit fetches the commit at commitURL, the URL reported by a reference object.
func (client *Client) GetCommit(callContext context.Context, commitURL string) (*github.Commit, error) {
	commit := &github.Commit{}
	if callError := client.Call(callContext, StepGetCommit, http.MethodGet, commitURL, nil, commit); callError != nil {
		return nil, callError
	}

	if len(commit.GetTree().GetSHA()) == 0 {
		return nil, &MalformedResponseError{Step: StepGetCommit, Field: commitTreeSHAFieldConstant}
	}

	return commit, nil
}

// CreateTree creates a tree layered on request.BaseTree.
func (client *Client) CreateTree(callContext context.Context, repository RepositoryName, request CreateTreeRequest) (*github.Tree, error) {
	tree := &github.Tree{}
	treesPath := fmt.Sprintf(treesEndpointTemplateConstant, repository.APIRoot())
	if callError := client.Call(callContext, StepCreateTree, http.MethodPost, treesPath, request, tree); callError != nil {
		return nil, callError
	}

	if len(tree.GetSHA()) == 0 {
		return nil, &MalformedResponseError{Step: StepCreateTree, Field: objectSHAFieldConstant}
	}

	return tree, nil
}

// CreateCommit creates a commit object. The commit is unreachable until a reference points at it.
func (client *Client) CreateCommit(callContext context.Context, repository RepositoryName, request CreateCommitRequest) (*github.Commit, error) {
	commit := &github.Commit{}
	commitsPath := fmt.Sprintf(commitsEndpointTemplateConstant, repository.APIRoot())
	if callError := client.Call(callContext, StepCreateCommit, http.MethodPost, commitsPath, request, commit); callError != nil {
		return nil, callError
	}

	if len(commit.GetSHA()) == 0 {
		return nil, &MalformedResponseError{Step: StepCreateCommit, Field: objectSHAFieldConstant}
	}

	return commit, nil
}

// UpdateBranchReference moves branch to request.SHA. GitHub rejects the update unless it is a fast-forward.
func (client *Client) UpdateBranchReference(callContext context.Context, repository RepositoryName, branch string, request UpdateReferenceRequest) (*github.Reference, error) {
	referencePath, pathError := repository.BranchReferencePath(branch)
	if pathError != nil {
		return nil, pathError
	}

	reference := &github.Reference{}
	if callError := client.Call(callContext, StepUpdateBranchReference, http.MethodPatch, referencePath, request, reference); callError != nil {
		return nil, callError
	}

	return reference, nil
}
