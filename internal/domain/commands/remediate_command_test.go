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

func remediationRemote() *doubles.SpyRemoteRepository {
	return &doubles.SpyRemoteRepository{
		Repositories: map[string]entities.Repository{
			"octo/demo": {FullName: "octo/demo", DefaultBranch: "main"},
		},
		WorkflowFiles: map[string][]string{
			"octo/demo": {".github/workflows/ci.yml"},
		},
		FileContents: map[string]string{
			"octo/demo:.github/workflows/ci.yml": "jobs:\n  b:\n    steps:\n      - uses: actions/checkout@v4.0.1\n",
		},
		TagSHAs: map[string]string{
			"actions/checkout@v4.0.1": "7a1234567890abcdef",
		},
		BranchHeads: map[string]string{
			"octo/demo:main": "base-sha",
		},
	}
}

func TestRemediateCommandExecute(t *testing.T) {
	t.Parallel()

	t.Run("should remediate explicit repositories and record the pull request", func(t *testing.T) {
		t.Parallel()

		// given
		remote := remediationRemote()
		store := doubles.NewFakeCatalogRepository()
		tracker := &recordingTracker{}
		cmd := commands.NewRemediateCommand(
			stubRemoteProvider{remote: remote},
			stubCatalogProvider{store: store, tracker: tracker},
		)

		// when
		err := cmd.Execute(context.Background(), testSettings(), commands.RemediateOptions{
			Mode:  entities.ModePinToSHA,
			Repos: []string{"octo/demo"},
		})

		// then
		require.NoError(t, err)
		require.Len(t, remote.PRInputs, 1)
		assert.True(t, remote.PRInputs[0].Draft)

		record, found, recErr := store.OpenPullRequest(context.Background(), "octo/demo", entities.ModePinToSHA)
		require.NoError(t, recErr)
		require.True(t, found)
		assert.NotEmpty(t, record.URL)
		assert.Len(t, tracker.Records, 1)
	})

	t.Run("should fall back to discovered repositories when none are configured", func(t *testing.T) {
		t.Parallel()

		// given
		remote := remediationRemote()
		store := doubles.NewFakeCatalogRepository()
		require.NoError(t, store.SaveRepository(context.Background(),
			entities.Repository{FullName: "octo/demo", DefaultBranch: "main"}))
		cmd := commands.NewRemediateCommand(
			stubRemoteProvider{remote: remote},
			stubCatalogProvider{store: store, tracker: &recordingTracker{}},
		)

		// when
		err := cmd.Execute(context.Background(), testSettings(), commands.RemediateOptions{
			Mode: entities.ModePinToSHA,
		})

		// then
		require.NoError(t, err)
		assert.Len(t, remote.PRInputs, 1)
	})

	t.Run("should not touch excluded repositories", func(t *testing.T) {
		t.Parallel()

		// given
		remote := remediationRemote()
		store := doubles.NewFakeCatalogRepository()
		settings := testSettings()
		settings.ExcludeRepos = []string{"octo/demo"}
		cmd := commands.NewRemediateCommand(
			stubRemoteProvider{remote: remote},
			stubCatalogProvider{store: store, tracker: &recordingTracker{}},
		)

		// when
		err := cmd.Execute(context.Background(), settings, commands.RemediateOptions{
			Mode:  entities.ModePinToSHA,
			Repos: []string{"octo/demo"},
		})

		// then
		require.NoError(t, err)
		assert.Empty(t, remote.ForkedRepos)
		assert.Empty(t, remote.PRInputs)
	})

	t.Run("should succeed with a partial-failure summary", func(t *testing.T) {
		t.Parallel()

		// given
		remote := remediationRemote()
		remote.CommitFilesErr = assert.AnError
		cmd := commands.NewRemediateCommand(
			stubRemoteProvider{remote: remote},
			stubCatalogProvider{store: doubles.NewFakeCatalogRepository(), tracker: &recordingTracker{}},
		)

		// when
		err := cmd.Execute(context.Background(), testSettings(), commands.RemediateOptions{
			Mode:  entities.ModePinToSHA,
			Repos: []string{"octo/demo"},
		})

		// then
		require.NoError(t, err)
		assert.Empty(t, remote.PRInputs)
	})
}
