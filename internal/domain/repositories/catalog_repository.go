package repositories

import (
	"context"

	"github.com/pgoslatara/actup/internal/domain/entities"
)

// CatalogRepository is the durable store for known actions, resolved pins,
// discovered mentions, and pull request history. All writes use upsert
// semantics keyed by natural identity so concurrent workers never corrupt
// shared rows. The catalog exclusively owns durable state.
type CatalogRepository interface {
	// Init creates the schema if it does not exist.
	Init(ctx context.Context) error
	Close() error

	// SaveAction upserts an action keyed by (owner, name).
	SaveAction(ctx context.Context, action entities.Action) error
	GetAction(ctx context.Context, owner, name string) (entities.Action, bool, error)
	ListActions(ctx context.Context) ([]entities.Action, error)

	// SavePin records a resolved (action, tag) -> SHA mapping. Pins are
	// write-once: when a pin exists with a different SHA the stored value is
	// kept, the anomaly is flagged on the row, and ErrTagMoved is returned.
	SavePin(ctx context.Context, pin entities.Pin) error
	GetPin(ctx context.Context, owner, name, tag string) (entities.Pin, bool, error)
	ListMovedPins(ctx context.Context) ([]entities.Pin, error)

	// ReplaceMentions supersedes the mention snapshot of one file: previous
	// rows for (repo, file) are removed and the new mentions inserted, in one
	// transaction.
	ReplaceMentions(ctx context.Context, repoFullName, filePath string, mentions []entities.Mention) error
	ListMentions(ctx context.Context, repoFullName string) ([]entities.Mention, error)
	ListMentionedRepositories(ctx context.Context) ([]string, error)

	// SaveRepository upserts a discovered repository keyed by full name.
	SaveRepository(ctx context.Context, repo entities.Repository) error
	ListRepositories(ctx context.Context) ([]entities.Repository, error)

	// SavePullRequest upserts a pull request record keyed by (repo, mode,
	// branch).
	SavePullRequest(ctx context.Context, record entities.PullRequestRecord) error
	// OpenPullRequest returns the open record for (repo, mode), if any.
	OpenPullRequest(ctx context.Context, repoFullName string, mode entities.RemediationMode) (entities.PullRequestRecord, bool, error)
	ListPullRequests(ctx context.Context) ([]entities.PullRequestRecord, error)
	// UpdatePullRequestStatus sets the status of a recorded pull request.
	UpdatePullRequestStatus(ctx context.Context, repoFullName string, number int, status entities.PRStatus) error
}
