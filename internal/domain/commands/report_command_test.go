package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgoslatara/actup/internal/domain/commands"
	"github.com/pgoslatara/actup/internal/domain/entities"
	doubles "github.com/pgoslatara/actup/test/infrastructure/repositorydoubles"
)

func TestReportCommandExecute(t *testing.T) {
	t.Parallel()

	t.Run("should refresh open records against the live state", func(t *testing.T) {
		t.Parallel()

		// given
		remote := &doubles.SpyRemoteRepository{
			PRStates: map[int]string{42: "merged"},
		}
		store := doubles.NewFakeCatalogRepository()
		require.NoError(t, store.SavePullRequest(context.Background(), entities.PullRequestRecord{
			RepoFullName: "octo/demo",
			Mode:         entities.ModePinToSHA,
			BranchName:   "actup/pin-actions-to-sha-0123456789",
			Number:       42,
			Status:       entities.PRStatusOpen,
		}))
		cmd := commands.NewReportCommand(
			stubRemoteProvider{remote: remote},
			stubCatalogProvider{store: store},
		)

		// when
		err := cmd.Execute(context.Background(), testSettings())

		// then
		require.NoError(t, err)
		records, listErr := store.ListPullRequests(context.Background())
		require.NoError(t, listErr)
		require.Len(t, records, 1)
		assert.Equal(t, entities.PRStatusMerged, records[0].Status)
	})

	t.Run("should leave still-open records untouched", func(t *testing.T) {
		t.Parallel()

		// given
		remote := &doubles.SpyRemoteRepository{}
		store := doubles.NewFakeCatalogRepository()
		require.NoError(t, store.SavePullRequest(context.Background(), entities.PullRequestRecord{
			RepoFullName: "octo/demo",
			Mode:         entities.ModeLatestVersion,
			BranchName:   "actup/update-actions-abcdef0123",
			Number:       7,
			Status:       entities.PRStatusOpen,
		}))
		cmd := commands.NewReportCommand(
			stubRemoteProvider{remote: remote},
			stubCatalogProvider{store: store},
		)

		// when
		err := cmd.Execute(context.Background(), testSettings())

		// then
		require.NoError(t, err)
		records, listErr := store.ListPullRequests(context.Background())
		require.NoError(t, listErr)
		require.Len(t, records, 1)
		assert.Equal(t, entities.PRStatusOpen, records[0].Status)
	})
}
