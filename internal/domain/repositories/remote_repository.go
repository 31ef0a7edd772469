// Package repositories defines the ports through which the domain drives
// external systems: the remote code-hosting API and the durable catalog.
package repositories

import (
	"context"

	"github.com/pgoslatara/actup/internal/domain/entities"
)

// RemoteRepository abstracts the authenticated, rate-aware GitHub API surface
// actup consumes. Implementations classify failures into the entities error
// taxonomy: ErrNotFound, ErrRateLimitExceeded, ErrWriteConflict, RemoteError.
type RemoteRepository interface {
	// CurrentUser returns the authenticated user's login.
	CurrentUser(ctx context.Context) (string, error)

	// GetRepository returns repository metadata, including the default branch.
	GetRepository(ctx context.Context, fullName string) (entities.Repository, error)

	// ListTags returns all tag names of a repository, newest semver first.
	ListTags(ctx context.Context, fullName string) ([]string, error)

	// ResolveTagSHA resolves a tag to the commit SHA it points at, following
	// annotated tag objects to the underlying commit.
	ResolveTagSHA(ctx context.Context, fullName, tag string) (string, error)

	// ListWorkflowFiles returns the paths of workflow and action definition
	// files under .github/ on the default branch.
	ListWorkflowFiles(ctx context.Context, repo entities.Repository) ([]string, error)

	// GetFileContent reads a file from a repository's default branch.
	GetFileContent(ctx context.Context, repo entities.Repository, path string) (string, error)

	// GetBranchHead returns the commit SHA at the tip of a branch.
	GetBranchHead(ctx context.Context, fullName, branch string) (string, error)

	// EnsureFork forks the repository into the authenticated user's account
	// (a no-op when the fork already exists) and returns the fork's full name.
	EnsureFork(ctx context.Context, fullName string) (string, error)

	// CreateBranch creates a branch ref at the given commit. An existing ref
	// pointing elsewhere surfaces as ErrWriteConflict; an existing ref at the
	// same commit is treated as success.
	CreateBranch(ctx context.Context, fullName, branchName, fromSHA string) error

	// CommitFiles commits the file changes onto the branch and returns the
	// new head SHA.
	CommitFiles(ctx context.Context, fullName, branchName string, input entities.BranchInput) (string, error)

	// OpenPullRequest opens a pull request against the repository.
	OpenPullRequest(ctx context.Context, fullName string, input entities.PullRequestInput) (*entities.PullRequest, error)

	// ListOpenPullRequests lists open pull requests whose head branch starts
	// with the given prefix.
	ListOpenPullRequests(ctx context.Context, fullName, branchPrefix string) ([]entities.PullRequest, error)

	// GetPullRequestState returns the current state of a pull request:
	// "open", "merged", or "closed".
	GetPullRequestState(ctx context.Context, fullName string, number int) (string, error)

	// SearchPopularRepositories returns up to limit repositories ordered by
	// star count descending.
	SearchPopularRepositories(ctx context.Context, limit int) ([]entities.Repository, error)
}
