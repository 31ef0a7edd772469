package catalog_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/infrastructure/repositories/catalog"
)

func TestTrackerAppend(t *testing.T) {
	t.Parallel()

	t.Run("should create the file with a header and append rows", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "PR_TRACKER.md")
		tracker := catalog.NewTracker(path)
		record := entities.PullRequestRecord{
			RepoFullName: "octo/demo",
			Mode:         entities.ModePinToSHA,
			Number:       42,
			URL:          "https://github.com/octo/demo/pull/42",
			Status:       entities.PRStatusOpen,
			CreatedAt:    time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		}

		// when
		require.NoError(t, tracker.Append(record))
		record.Number = 43
		record.URL = "https://github.com/octo/demo/pull/43"
		require.NoError(t, tracker.Append(record))

		// then
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "# Pull Request Tracker")
		assert.Contains(t, string(content), "| 2026-03-14 | octo/demo | pin_to_sha | [#42](https://github.com/octo/demo/pull/42) | open |")
		assert.Contains(t, string(content), "[#43](https://github.com/octo/demo/pull/43)")
	})

	t.Run("should keep existing rows when reopened", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "PR_TRACKER.md")
		first := catalog.NewTracker(path)
		require.NoError(t, first.Append(entities.PullRequestRecord{
			RepoFullName: "octo/demo", Mode: entities.ModeLatestVersion, Number: 1, Status: entities.PRStatusOpen,
		}))

		// when
		second := catalog.NewTracker(path)
		require.NoError(t, second.Append(entities.PullRequestRecord{
			RepoFullName: "octo/other", Mode: entities.ModeLatestVersion, Number: 2, Status: entities.PRStatusOpen,
		}))

		// then
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "octo/demo")
		assert.Contains(t, string(content), "octo/other")
	})
}
