package resolver_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/resolver"
	doubles "github.com/pgoslatara/actup/test/infrastructure/repositorydoubles"
)

func TestLatestStableOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		tags      []string
		expected  string
		expectErr bool
	}{
		{
			name:     "should pick highest stable version and skip pre-releases",
			tags:     []string{"v3.0.0", "v4.0.0", "v4.0.1", "v4.1.0-beta"},
			expected: "v4.0.1",
		},
		{
			name:     "should skip build metadata tags",
			tags:     []string{"v1.0.0", "v1.0.1+build.5"},
			expected: "v1.0.0",
		},
		{
			name:     "should prefer the more specific form on a tie",
			tags:     []string{"v4", "v4.0.0"},
			expected: "v4.0.0",
		},
		{
			name:     "should accept tags without the v prefix",
			tags:     []string{"1.2.3", "1.10.0"},
			expected: "1.10.0",
		},
		{
			name:     "should ignore tags that are not semver at all",
			tags:     []string{"nightly", "v2.0.0", "latest"},
			expected: "v2.0.0",
		},
		{
			name:      "should fail when no stable tag exists",
			tags:      []string{"v1.0.0-rc.1", "nightly"},
			expectErr: true,
		},
		{
			name:      "should fail on an empty tag list",
			tags:      nil,
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// when
			latest, err := resolver.LatestStableOf(tt.tags)

			// then
			if tt.expectErr {
				require.ErrorIs(t, err, entities.ErrAmbiguousVersion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, latest)
		})
	}
}

func TestResolverLatestStable(t *testing.T) {
	t.Parallel()

	t.Run("should list tags and return the highest stable", func(t *testing.T) {
		t.Parallel()

		// given
		remote := &doubles.SpyRemoteRepository{
			Tags: map[string][]string{
				"actions/checkout": {"v3.0.0", "v4.0.0", "v4.0.1", "v4.1.0-beta"},
			},
		}
		r := resolver.New(remote, doubles.NewFakeCatalogRepository())

		// when
		latest, err := r.LatestStable(context.Background(), "actions", "checkout")

		// then
		require.NoError(t, err)
		assert.Equal(t, "v4.0.1", latest)
	})
}

func TestResolverResolveSHA(t *testing.T) {
	t.Parallel()

	t.Run("should resolve once and serve the second call from the pin cache", func(t *testing.T) {
		t.Parallel()

		// given
		remote := &doubles.SpyRemoteRepository{
			TagSHAs: map[string]string{
				"actions/checkout@v4.0.1": "7a1234567890abcdef",
			},
		}
		r := resolver.New(remote, doubles.NewFakeCatalogRepository())

		// when
		first, err1 := r.ResolveSHA(context.Background(), "actions", "checkout", "v4.0.1")
		second, err2 := r.ResolveSHA(context.Background(), "actions", "checkout", "v4.0.1")

		// then
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, "7a1234567890abcdef", first)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, remote.ResolveCalls())
	})

	t.Run("should single-flight concurrent resolutions of the same pair", func(t *testing.T) {
		t.Parallel()

		// given
		remote := &doubles.SpyRemoteRepository{
			TagSHAs: map[string]string{
				"actions/checkout@v4.0.1": "7a1234567890abcdef",
			},
		}
		catalog := doubles.NewFakeCatalogRepository()
		r := resolver.New(remote, catalog)

		// when
		const callers = 16
		results := make([]string, callers)
		errs := make([]error, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				results[idx], errs[idx] = r.ResolveSHA(context.Background(), "actions", "checkout", "v4.0.1")
			}(i)
		}
		wg.Wait()

		// then
		for i := 0; i < callers; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, "7a1234567890abcdef", results[i])
		}
		// the write-once pin was stored exactly once
		pin, found, err := catalog.GetPin(context.Background(), "actions", "checkout", "v4.0.1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "7a1234567890abcdef", pin.SHA)
	})

	t.Run("should keep the cached SHA when the tag moved", func(t *testing.T) {
		t.Parallel()

		// given
		remote := &doubles.SpyRemoteRepository{
			TagSHAs: map[string]string{
				"actions/checkout@v4.0.1": "cccccccccccccccccccc",
			},
		}
		catalog := doubles.NewFakeCatalogRepository()
		catalog.Pins["actions/checkout@v4.0.1"] = entities.Pin{
			Owner: "actions", Name: "checkout", Tag: "v4.0.1", SHA: "aaaaaaaaaaaaaaaaaaaa",
		}
		r := resolver.New(remote, catalog)

		// when
		sha, err := r.ResolveSHA(context.Background(), "actions", "checkout", "v4.0.1")

		// then
		require.NoError(t, err)
		assert.Equal(t, "aaaaaaaaaaaaaaaaaaaa", sha)
		assert.Zero(t, remote.ResolveCalls())
	})

	t.Run("should propagate not-found for vanished tags", func(t *testing.T) {
		t.Parallel()

		// given
		remote := &doubles.SpyRemoteRepository{}
		r := resolver.New(remote, doubles.NewFakeCatalogRepository())

		// when
		_, err := r.ResolveSHA(context.Background(), "actions", "gone", "v1.0.0")

		// then
		require.ErrorIs(t, err, entities.ErrNotFound)
	})
}

func TestIsNewer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		current   string
		candidate string
		expected  bool
	}{
		{
			name:      "should detect newer patch version",
			current:   "v4.0.0",
			candidate: "v4.0.1",
			expected:  true,
		},
		{
			name:      "should detect equal versions as not newer",
			current:   "v4.0.1",
			candidate: "v4.0.1",
			expected:  false,
		},
		{
			name:      "should detect older candidate as not newer",
			current:   "v4.0.1",
			candidate: "v3.0.0",
			expected:  false,
		},
		{
			name:      "should handle missing v prefix",
			current:   "3.0.0",
			candidate: "v4.0.0",
			expected:  true,
		},
		{
			name:      "should not compare branch names",
			current:   "main",
			candidate: "v4.0.0",
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// when
			result := resolver.IsNewer(tt.current, tt.candidate)

			// then
			assert.Equal(t, tt.expected, result)
		})
	}
}
