package entities

import (
	"errors"
	"fmt"
)

// Sentinel errors for remote and resolution failures. Callers branch with
// errors.Is; none of these are retried blindly.
var (
	// ErrNotFound means a repository, tag, or file disappeared. Distinct from
	// transient failures: the caller skips the item and moves on.
	ErrNotFound = errors.New("not found")

	// ErrRateLimitExceeded means the shared API budget is exhausted and the
	// bounded backoff did not recover. Aborts the current repository only.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrAmbiguousVersion means an action has no parseable stable semver tag.
	// Version-bump planning is skipped; pinning the current tag may proceed.
	ErrAmbiguousVersion = errors.New("no stable semver tag")

	// ErrDuplicatePullRequest means an open remediation PR already exists for
	// the (repository, mode) pair. Recorded as skipped_duplicate, not a failure.
	ErrDuplicatePullRequest = errors.New("open pull request already exists")

	// ErrWriteConflict means a remote ref moved between read and write.
	// The orchestrator refreshes and retries once.
	ErrWriteConflict = errors.New("remote ref conflict")

	// ErrTagMoved means a tag resolved to a different commit than the cached
	// pin. The pin is kept; the anomaly is flagged.
	ErrTagMoved = errors.New("tag moved since it was pinned")
)

// RemoteError carries the HTTP status of an unexpected remote API failure.
type RemoteError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %v", e.Operation, e.StatusCode, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
