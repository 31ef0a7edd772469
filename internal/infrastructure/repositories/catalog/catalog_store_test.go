package catalog_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/infrastructure/repositories/catalog"
)

func openTestStore(t *testing.T) *catalog.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	store, err := catalog.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestOpen(t *testing.T) {
	t.Run("should open a plain file path and survive concurrent writers", func(t *testing.T) {
		// given
		path := filepath.Join(t.TempDir(), "actup.db")
		store, err := catalog.Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })

		ctx := context.Background()
		require.NoError(t, store.Init(ctx))

		// when: concurrent writers exercise more than one pooled connection
		var wg sync.WaitGroup
		errs := make([]error, 8)
		for idx := range errs {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				errs[idx] = store.SaveAction(ctx, entities.Action{
					Owner: "actions",
					Name:  fmt.Sprintf("tool-%d", idx),
				})
			}(idx)
		}
		wg.Wait()

		// then: busy contention is absorbed instead of surfacing SQLITE_BUSY
		for _, saveErr := range errs {
			require.NoError(t, saveErr)
		}
		all, listErr := store.ListActions(ctx)
		require.NoError(t, listErr)
		assert.Len(t, all, 8)
	})
}

func TestStoreActions(t *testing.T) {
	t.Run("should upsert an action keyed by owner and name", func(t *testing.T) {
		// given
		store := openTestStore(t)
		ctx := context.Background()
		action := entities.Action{Owner: "actions", Name: "checkout", LatestVersion: "v4.0.0", Stars: 1000}

		// when
		require.NoError(t, store.SaveAction(ctx, action))
		action.LatestVersion = "v4.0.1"
		action.Stars = 1200
		require.NoError(t, store.SaveAction(ctx, action))

		// then
		got, found, err := store.GetAction(ctx, "actions", "checkout")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "v4.0.1", got.LatestVersion)
		assert.Equal(t, 1200, got.Stars)

		all, err := store.ListActions(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("should report a missing action without an error", func(t *testing.T) {
		// given
		store := openTestStore(t)

		// when
		_, found, err := store.GetAction(context.Background(), "nobody", "nothing")

		// then
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestStorePins(t *testing.T) {
	t.Run("should store a pin exactly once and keep it on conflicting saves", func(t *testing.T) {
		// given
		store := openTestStore(t)
		ctx := context.Background()
		pin := entities.Pin{
			Owner: "actions", Name: "checkout", Tag: "v4.0.1",
			SHA: "aaaa1111", ResolvedAt: time.Now().UTC(),
		}
		require.NoError(t, store.SavePin(ctx, pin))

		// when
		moved := pin
		moved.SHA = "bbbb2222"
		err := store.SavePin(ctx, moved)

		// then
		require.ErrorIs(t, err, entities.ErrTagMoved)

		got, found, getErr := store.GetPin(ctx, "actions", "checkout", "v4.0.1")
		require.NoError(t, getErr)
		require.True(t, found)
		assert.Equal(t, "aaaa1111", got.SHA)
		assert.Equal(t, "bbbb2222", got.MovedSHA)
		assert.True(t, got.Moved())

		movedPins, listErr := store.ListMovedPins(ctx)
		require.NoError(t, listErr)
		require.Len(t, movedPins, 1)
		assert.Equal(t, "v4.0.1", movedPins[0].Tag)
	})

	t.Run("should accept a repeated save with the same sha", func(t *testing.T) {
		// given
		store := openTestStore(t)
		ctx := context.Background()
		pin := entities.Pin{Owner: "actions", Name: "checkout", Tag: "v4.0.1", SHA: "aaaa1111"}
		require.NoError(t, store.SavePin(ctx, pin))

		// when
		err := store.SavePin(ctx, pin)

		// then
		require.NoError(t, err)
		movedPins, listErr := store.ListMovedPins(ctx)
		require.NoError(t, listErr)
		assert.Empty(t, movedPins)
	})
}

func TestStoreMentions(t *testing.T) {
	t.Run("should supersede the mention snapshot per file", func(t *testing.T) {
		// given
		store := openTestStore(t)
		ctx := context.Background()
		first := []entities.Mention{
			{RepoFullName: "octo/demo", FilePath: "ci.yml", Line: 7, Raw: "actions/checkout@v3.0.0",
				Owner: "actions", Name: "checkout", Ref: "v3.0.0", Kind: entities.RefKindTag},
			{RepoFullName: "octo/demo", FilePath: "ci.yml", Line: 8, Raw: "actions/setup-go@v4.1.0",
				Owner: "actions", Name: "setup-go", Ref: "v4.1.0", Kind: entities.RefKindTag},
		}
		require.NoError(t, store.ReplaceMentions(ctx, "octo/demo", "ci.yml", first))

		// when
		second := []entities.Mention{
			{RepoFullName: "octo/demo", FilePath: "ci.yml", Line: 7, Raw: "actions/checkout@v4.0.1",
				Owner: "actions", Name: "checkout", Ref: "v4.0.1", Kind: entities.RefKindTag},
		}
		require.NoError(t, store.ReplaceMentions(ctx, "octo/demo", "ci.yml", second))

		// then
		mentions, err := store.ListMentions(ctx, "octo/demo")
		require.NoError(t, err)
		require.Len(t, mentions, 1)
		assert.Equal(t, "v4.0.1", mentions[0].Ref)
	})

	t.Run("should keep snapshots of other files untouched", func(t *testing.T) {
		// given
		store := openTestStore(t)
		ctx := context.Background()
		ci := []entities.Mention{{RepoFullName: "octo/demo", FilePath: "ci.yml", Line: 7,
			Raw: "actions/checkout@v4.0.1", Owner: "actions", Name: "checkout", Ref: "v4.0.1", Kind: entities.RefKindTag}}
		release := []entities.Mention{{RepoFullName: "octo/demo", FilePath: "release.yml", Line: 3,
			Raw: "actions/setup-go@v4.1.0", Owner: "actions", Name: "setup-go", Ref: "v4.1.0", Kind: entities.RefKindTag}}
		require.NoError(t, store.ReplaceMentions(ctx, "octo/demo", "ci.yml", ci))
		require.NoError(t, store.ReplaceMentions(ctx, "octo/demo", "release.yml", release))

		// when
		require.NoError(t, store.ReplaceMentions(ctx, "octo/demo", "ci.yml", nil))

		// then
		mentions, err := store.ListMentions(ctx, "octo/demo")
		require.NoError(t, err)
		require.Len(t, mentions, 1)
		assert.Equal(t, "release.yml", mentions[0].FilePath)

		repos, err := store.ListMentionedRepositories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"octo/demo"}, repos)
	})
}

func TestStoreRepositories(t *testing.T) {
	t.Run("should upsert repositories and list them by stars", func(t *testing.T) {
		// given
		store := openTestStore(t)
		ctx := context.Background()
		require.NoError(t, store.SaveRepository(ctx, entities.Repository{FullName: "octo/small", Stars: 10, DefaultBranch: "main"}))
		require.NoError(t, store.SaveRepository(ctx, entities.Repository{FullName: "octo/big", Stars: 9000, DefaultBranch: "main"}))

		// when
		require.NoError(t, store.SaveRepository(ctx, entities.Repository{FullName: "octo/small", Stars: 20, DefaultBranch: "master"}))

		// then
		repos, err := store.ListRepositories(ctx)
		require.NoError(t, err)
		require.Len(t, repos, 2)
		assert.Equal(t, "octo/big", repos[0].FullName)
		assert.Equal(t, "master", repos[1].DefaultBranch)
		assert.Equal(t, 20, repos[1].Stars)
	})
}

func TestStorePullRequests(t *testing.T) {
	t.Run("should find the open record per repository and mode", func(t *testing.T) {
		// given
		store := openTestStore(t)
		ctx := context.Background()
		record := entities.PullRequestRecord{
			RepoFullName: "octo/demo",
			Mode:         entities.ModePinToSHA,
			BranchName:   "actup/pin-actions-to-sha-0123456789",
			Number:       42,
			URL:          "https://github.com/octo/demo/pull/42",
			Status:       entities.PRStatusOpen,
			CreatedAt:    time.Now().UTC(),
		}
		require.NoError(t, store.SavePullRequest(ctx, record))

		// when
		open, found, err := store.OpenPullRequest(ctx, "octo/demo", entities.ModePinToSHA)

		// then
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 42, open.Number)

		_, found, err = store.OpenPullRequest(ctx, "octo/demo", entities.ModeLatestVersion)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("should release the open slot when the record is closed", func(t *testing.T) {
		// given
		store := openTestStore(t)
		ctx := context.Background()
		record := entities.PullRequestRecord{
			RepoFullName: "octo/demo",
			Mode:         entities.ModeLatestVersion,
			BranchName:   "actup/update-actions-abcdef0123",
			Number:       7,
			Status:       entities.PRStatusOpen,
		}
		require.NoError(t, store.SavePullRequest(ctx, record))

		// when
		require.NoError(t, store.UpdatePullRequestStatus(ctx, "octo/demo", 7, entities.PRStatusMerged))

		// then
		_, found, err := store.OpenPullRequest(ctx, "octo/demo", entities.ModeLatestVersion)
		require.NoError(t, err)
		assert.False(t, found)

		all, err := store.ListPullRequests(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, entities.PRStatusMerged, all[0].Status)
	})
}
