package submodule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v62/github"
	"go.uber.org/zap"

	"github.com/broadinstitute/submodule-bump/internal/githubapi"
)

const (
	commitMessageTemplateConstant      = "Bump %s version to %s"
	clientNotConfiguredMessageConstant = "git data client not configured"
	stepStartedMessageConstant         = "calling GitHub"
	branchResolvedMessageConstant      = "branch head resolved"
	treeResolvedMessageConstant        = "head tree resolved"
	treeCreatedMessageConstant         = "tree created"
	commitCreatedMessageConstant       = "commit created"
	branchUpdatedMessageConstant       = "branch updated"
	logFieldStepConstant               = "step"
	logFieldRepositoryConstant         = "repository"
	logFieldBranchConstant             = "branch"
	logFieldSubmodulePathConstant      = "submodule_path"
	logFieldSubmoduleSHAConstant       = "submodule_sha"
	logFieldHeadSHAConstant            = "head_sha"
	logFieldTreeSHAConstant            = "tree_sha"
	logFieldNewTreeSHAConstant         = "new_tree_sha"
	logFieldNewCommitSHAConstant       = "new_commit_sha"
)

// ErrClientNotConfigured indicates the bumper was constructed without a Git Data client.
var ErrClientNotConfigured = errors.New(clientNotConfiguredMessageConstant)

// GitDataClient is the subset of the GitHub Git Data API the bumper needs.
type GitDataClient interface {
	GetBranchReference(callContext context.Context, repository githubapi.RepositoryName, branch string) (*github.Reference, error)
	GetCommit(callContext context.Context, commitURL string) (*github.Commit, error)
	CreateTree(callContext context.Context, repository githubapi.RepositoryName, request githubapi.CreateTreeRequest) (*github.Tree, error)
	CreateCommit(callContext context.Context, repository githubapi.RepositoryName, request githubapi.CreateCommitRequest) (*github.Commit, error)
	UpdateBranchReference(callContext context.Context, repository githubapi.RepositoryName, branch string, request githubapi.UpdateReferenceRequest) (*github.Reference, error)
}

// BumpOptions describes one gitlink update.
// Message defaults to "Bump {SubmodulePath} version to {CommitSHA}".
type BumpOptions struct {
	Repository    githubapi.RepositoryName
	Branch        string
	SubmodulePath string
	CommitSHA     string
	Message       string
}

// BumpResult records the objects read and written by a bump.
// CommitSHA is the new branch head.
type BumpResult struct {
	Repository      githubapi.RepositoryName
	Branch          string
	PreviousHeadSHA string
	BaseTreeSHA     string
	TreeSHA         string
	CommitSHA       string
}

// Bumper advances a branch by one commit that repoints a submodule.
type Bumper struct {
	logger *zap.Logger
	client GitDataClient
}

// NewBumper constructs a Bumper.
func NewBumper(logger *zap.Logger, client GitDataClient) (*Bumper, error) {
	if client == nil {
		return nil, ErrClientNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bumper{logger: logger, client: client}, nil
}

// CommitMessage renders the default commit message for a bump.
func CommitMessage(submodulePath string, commitSHA string) string {
	return fmt.Sprintf(commitMessageTemplateConstant, submodulePath, commitSHA)
}

// Bump records options.CommitSHA at options.SubmodulePath on options.Branch.
//
// The calls are strictly sequential and any failure stops the run before the
// branch moves. Trees or commits created before the failure stay unreferenced.
func (bumper *Bumper) Bump(bumpContext context.Context, options BumpOptions) (BumpResult, error) {
	if validationError := options.validate(); validationError != nil {
		return BumpResult{}, validationError
	}

	message := options.Message
	if len(message) == 0 {
		message = CommitMessage(options.SubmodulePath, options.CommitSHA)
	}

	logger := bumper.logger.With(
		zap.String(logFieldRepositoryConstant, options.Repository.String()),
		zap.String(logFieldBranchConstant, options.Branch),
	)
	result := BumpResult{Repository: options.Repository, Branch: options.Branch}

	logger.Debug(stepStartedMessageConstant, zap.String(logFieldStepConstant, string(githubapi.StepGetBranchReference)))
	reference, referenceError := bumper.client.GetBranchReference(bumpContext, options.Repository, options.Branch)
	if referenceError != nil {
		return BumpResult{}, referenceError
	}
	result.PreviousHeadSHA = reference.GetObject().GetSHA()
	logger.Debug(branchResolvedMessageConstant, zap.String(logFieldHeadSHAConstant, result.PreviousHeadSHA))

	logger.Debug(stepStartedMessageConstant, zap.String(logFieldStepConstant, string(githubapi.StepGetCommit)))
	headCommit, headCommitError := bumper.client.GetCommit(bumpContext, reference.GetObject().GetURL())
	if headCommitError != nil {
		return BumpResult{}, headCommitError
	}
	result.BaseTreeSHA = headCommit.GetTree().GetSHA()
	logger.Debug(treeResolvedMessageConstant, zap.String(logFieldTreeSHAConstant, result.BaseTreeSHA))

	logger.Debug(stepStartedMessageConstant, zap.String(logFieldStepConstant, string(githubapi.StepCreateTree)))
	tree, treeError := bumper.client.CreateTree(bumpContext, options.Repository, githubapi.CreateTreeRequest{
		BaseTree: result.BaseTreeSHA,
		Tree:     []*github.TreeEntry{githubapi.NewGitlinkEntry(options.SubmodulePath, options.CommitSHA)},
	})
	if treeError != nil {
		return BumpResult{}, treeError
	}
	result.TreeSHA = tree.GetSHA()
	logger.Debug(treeCreatedMessageConstant,
		zap.String(logFieldNewTreeSHAConstant, result.TreeSHA),
		zap.String(logFieldSubmodulePathConstant, options.SubmodulePath),
		zap.String(logFieldSubmoduleSHAConstant, options.CommitSHA),
	)

	logger.Debug(stepStartedMessageConstant, zap.String(logFieldStepConstant, string(githubapi.StepCreateCommit)))
	commit, commitError := bumper.client.CreateCommit(bumpContext, options.Repository, githubapi.CreateCommitRequest{
		Message: message,
		Parents: []string{result.PreviousHeadSHA},
		Tree:    result.TreeSHA,
	})
	if commitError != nil {
		return BumpResult{}, commitError
	}
	result.CommitSHA = commit.GetSHA()
	logger.Debug(commitCreatedMessageConstant, zap.String(logFieldNewCommitSHAConstant, result.CommitSHA))

	logger.Debug(stepStartedMessageConstant, zap.String(logFieldStepConstant, string(githubapi.StepUpdateBranchReference)))
	if _, updateError := bumper.client.UpdateBranchReference(bumpContext, options.Repository, options.Branch, githubapi.UpdateReferenceRequest{SHA: result.CommitSHA}); updateError != nil {
		return BumpResult{}, updateError
	}
	logger.Info(branchUpdatedMessageConstant,
		zap.String(logFieldHeadSHAConstant, result.PreviousHeadSHA),
		zap.String(logFieldNewCommitSHAConstant, result.CommitSHA),
		zap.String(logFieldSubmodulePathConstant, options.SubmodulePath),
		zap.String(logFieldSubmoduleSHAConstant, options.CommitSHA),
	)

	return result, nil
}

func (options BumpOptions) validate() error {
	if options.Repository.IsZero() {
		return ConfigError{Input: InputRepository}
	}
	if len(options.SubmodulePath) == 0 {
		return ConfigError{Input: InputProject}
	}
	if len(options.Branch) == 0 {
		return ConfigError{Input: InputBranch}
	}
	if len(options.CommitSHA) == 0 {
		return ConfigError{Input: InputCommitSHA}
	}
	return nil
}
