package planner_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/planner"
	"github.com/pgoslatara/actup/internal/scanner"
)

// stubVersions is a canned VersionSource for planner tests.
type stubVersions struct {
	mu          sync.Mutex
	latest      map[string]string // "owner/name" -> tag
	shas        map[string]string // "owner/name@tag" -> sha
	latestCalls int
	shaCalls    int
}

func (s *stubVersions) LatestStable(_ context.Context, owner, name string) (string, error) {
	s.mu.Lock()
	s.latestCalls++
	s.mu.Unlock()
	if tag, ok := s.latest[owner+"/"+name]; ok {
		return tag, nil
	}
	return "", entities.ErrAmbiguousVersion
}

func (s *stubVersions) ResolveSHA(_ context.Context, owner, name, tag string) (string, error) {
	s.mu.Lock()
	s.shaCalls++
	s.mu.Unlock()
	if sha, ok := s.shas[owner+"/"+name+"@"+tag]; ok {
		return sha, nil
	}
	return "", entities.ErrNotFound
}

const planWorkflow = `name: CI
on: push
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v3.0.0
      - uses: actions/setup-go@93397bea11091df50f3d7e59dc26a7711a8bcfbe # v4.1.0
      - uses: org/internal-action@main
`

func planFile(t *testing.T, p *planner.Planner, content string, mode entities.RemediationMode, target entities.PinTarget) (entities.FileChange, bool) {
	t.Helper()
	mentions := scanner.ScanFile("octo/demo", ".github/workflows/ci.yml", content)
	change, changed, err := p.Plan(context.Background(), ".github/workflows/ci.yml", content, mentions, mode, target)
	require.NoError(t, err)
	return change, changed
}

func TestPlannerLatestVersion(t *testing.T) {
	t.Parallel()

	t.Run("should bump tag refs to the latest stable version", func(t *testing.T) {
		t.Parallel()

		// given
		p := planner.New(&stubVersions{
			latest: map[string]string{"actions/checkout": "v4.0.1"},
		})

		// when
		change, changed := planFile(t, p, planWorkflow, entities.ModeLatestVersion, entities.PinTargetCurrent)

		// then
		require.True(t, changed)
		assert.Contains(t, change.Content, "uses: actions/checkout@v4.0.1")
		assert.NotContains(t, change.Content, "@v3.0.0")
	})

	t.Run("should leave sha and branch refs alone", func(t *testing.T) {
		t.Parallel()

		// given
		p := planner.New(&stubVersions{
			latest: map[string]string{
				"actions/setup-go":    "v5.0.0",
				"org/internal-action": "v2.0.0",
			},
		})

		// when
		change, changed := planFile(t, p, planWorkflow, entities.ModeLatestVersion, entities.PinTargetCurrent)

		// then
		assert.False(t, changed)
		assert.Empty(t, change.Content)
	})

	t.Run("should skip actions without a stable version", func(t *testing.T) {
		t.Parallel()

		// given
		p := planner.New(&stubVersions{})

		// when
		_, changed := planFile(t, p, planWorkflow, entities.ModeLatestVersion, entities.PinTargetCurrent)

		// then
		assert.False(t, changed)
	})

	t.Run("should be idempotent once everything is current", func(t *testing.T) {
		t.Parallel()

		// given
		p := planner.New(&stubVersions{
			latest: map[string]string{"actions/checkout": "v4.0.1"},
		})
		change, changed := planFile(t, p, planWorkflow, entities.ModeLatestVersion, entities.PinTargetCurrent)
		require.True(t, changed)

		// when
		_, changedAgain := planFile(t, p, change.Content, entities.ModeLatestVersion, entities.PinTargetCurrent)

		// then
		assert.False(t, changedAgain)
	})

	t.Run("should refresh a stale version annotation next to the bumped ref", func(t *testing.T) {
		t.Parallel()

		// given
		content := "      - uses: actions/checkout@v3.0.0 # v3.0.0\n"
		p := planner.New(&stubVersions{
			latest: map[string]string{"actions/checkout": "v4.0.1"},
		})

		// when
		change, changed := planFile(t, p, content, entities.ModeLatestVersion, entities.PinTargetCurrent)

		// then
		require.True(t, changed)
		assert.Contains(t, change.Content, "uses: actions/checkout@v4.0.1 # v4.0.1")
		assert.NotContains(t, change.Content, "v3.0.0")
	})
}

func TestPlannerPinToSHA(t *testing.T) {
	t.Parallel()

	t.Run("should pin a tag ref to its commit and annotate the tag", func(t *testing.T) {
		t.Parallel()

		// given
		content := "      - uses: actions/checkout@v4.0.1\n"
		p := planner.New(&stubVersions{
			shas: map[string]string{"actions/checkout@v4.0.1": "7a1234567890abcdef"},
		})

		// when
		change, changed := planFile(t, p, content, entities.ModePinToSHA, entities.PinTargetCurrent)

		// then
		require.True(t, changed)
		assert.Contains(t, change.Content, "uses: actions/checkout@7a1234567890abcdef # v4.0.1")
	})

	t.Run("should be idempotent on already-pinned content", func(t *testing.T) {
		t.Parallel()

		// given
		p := planner.New(&stubVersions{
			shas: map[string]string{
				"actions/checkout@v3.0.0": "aaaa1111bbbb2222cccc3333dddd4444eeee5555",
				"actions/setup-go@v4.1.0": "93397bea11091df50f3d7e59dc26a7711a8bcfbe",
			},
		})
		change, changed := planFile(t, p, planWorkflow, entities.ModePinToSHA, entities.PinTargetCurrent)
		require.True(t, changed)

		// when
		_, changedAgain := planFile(t, p, change.Content, entities.ModePinToSHA, entities.PinTargetCurrent)

		// then
		assert.False(t, changedAgain)
	})

	t.Run("should re-pin a sha ref through its annotation when the pin differs", func(t *testing.T) {
		t.Parallel()

		// given
		content := "      - uses: actions/setup-go@0123456789012345678901234567890123456789 # v4.1.0\n"
		p := planner.New(&stubVersions{
			shas: map[string]string{"actions/setup-go@v4.1.0": "93397bea11091df50f3d7e59dc26a7711a8bcfbe"},
		})

		// when
		change, changed := planFile(t, p, content, entities.ModePinToSHA, entities.PinTargetCurrent)

		// then
		require.True(t, changed)
		assert.Contains(t, change.Content, "uses: actions/setup-go@93397bea11091df50f3d7e59dc26a7711a8bcfbe # v4.1.0")
	})

	t.Run("should skip sha refs whose original tag is not recoverable", func(t *testing.T) {
		t.Parallel()

		// given
		content := "      - uses: actions/setup-go@0123456789012345678901234567890123456789\n"
		p := planner.New(&stubVersions{
			shas: map[string]string{"actions/setup-go@v4.1.0": "93397bea11091df50f3d7e59dc26a7711a8bcfbe"},
		})

		// when
		_, changed := planFile(t, p, content, entities.ModePinToSHA, entities.PinTargetCurrent)

		// then
		assert.False(t, changed)
	})

	t.Run("should skip branch refs", func(t *testing.T) {
		t.Parallel()

		// given
		content := "      - uses: org/internal-action@main\n"
		p := planner.New(&stubVersions{
			shas: map[string]string{"org/internal-action@main": "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"},
		})

		// when
		_, changed := planFile(t, p, content, entities.ModePinToSHA, entities.PinTargetCurrent)

		// then
		assert.False(t, changed)
	})

	t.Run("should pin to the latest stable tag when configured", func(t *testing.T) {
		t.Parallel()

		// given
		content := "      - uses: actions/checkout@v3.0.0\n"
		p := planner.New(&stubVersions{
			latest: map[string]string{"actions/checkout": "v4.0.1"},
			shas:   map[string]string{"actions/checkout@v4.0.1": "7a1234567890abcdef"},
		})

		// when
		change, changed := planFile(t, p, content, entities.ModePinToSHA, entities.PinTargetLatest)

		// then
		require.True(t, changed)
		assert.Contains(t, change.Content, "uses: actions/checkout@7a1234567890abcdef # v4.0.1")
	})

	t.Run("should fall back to the current tag when no stable version exists", func(t *testing.T) {
		t.Parallel()

		// given
		content := "      - uses: actions/checkout@v3.0.0\n"
		p := planner.New(&stubVersions{
			shas: map[string]string{"actions/checkout@v3.0.0": "aaaa1111bbbb2222cccc3333dddd4444eeee5555"},
		})

		// when
		change, changed := planFile(t, p, content, entities.ModePinToSHA, entities.PinTargetLatest)

		// then
		require.True(t, changed)
		assert.Contains(t, change.Content, "uses: actions/checkout@aaaa1111bbbb2222cccc3333dddd4444eeee5555 # v3.0.0")
	})

	t.Run("should preserve quoting around the uses value", func(t *testing.T) {
		t.Parallel()

		// given
		content := "      - uses: \"actions/checkout@v4.0.1\"\n"
		p := planner.New(&stubVersions{
			shas: map[string]string{"actions/checkout@v4.0.1": "7a1234567890abcdef"},
		})

		// when
		change, changed := planFile(t, p, content, entities.ModePinToSHA, entities.PinTargetCurrent)

		// then
		require.True(t, changed)
		assert.Contains(t, change.Content, "\"actions/checkout@7a1234567890abcdef\" # v4.0.1")
	})
}
