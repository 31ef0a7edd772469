package entities

import "time"

// PRStatus is the lifecycle state of a remediation pull request.
type PRStatus string

const (
	PRStatusOpen             PRStatus = "open"
	PRStatusMerged           PRStatus = "merged"
	PRStatusClosed           PRStatus = "closed"
	PRStatusSkippedDuplicate PRStatus = "skipped_duplicate"
)

// PullRequestRecord is one attempted remediation against a repository.
// At most one record per (repository, mode) may have status "open".
type PullRequestRecord struct {
	RepoFullName string
	Mode         RemediationMode
	BranchName   string
	Number       int
	URL          string
	Status       PRStatus
	CreatedAt    time.Time
}

// FileChange represents a file modification to be included in a commit.
type FileChange struct {
	Path    string
	Content string
}

// BranchInput contains the data needed to create a branch with file changes.
type BranchInput struct {
	BranchName    string
	BaseSHA       string
	Changes       []FileChange
	CommitMessage string
}

// PullRequestInput contains the data needed to open a pull request.
type PullRequestInput struct {
	// Head is the source in "owner:branch" form when the branch lives on a fork.
	Head  string
	Base  string
	Title string
	Body  string
	Draft bool
}

// PullRequest represents a pull request returned by the remote API.
type PullRequest struct {
	Number     int
	Title      string
	URL        string
	State      string
	BranchName string
}
