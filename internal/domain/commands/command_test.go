package commands_test

import (
	"context"
	"sync"

	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/domain/repositories"
	"github.com/pgoslatara/actup/internal/orchestrator"
)

// stubRemoteProvider hands out one shared spy regardless of token.
type stubRemoteProvider struct {
	remote repositories.RemoteRepository
}

func (s stubRemoteProvider) Get(string) repositories.RemoteRepository {
	return s.remote
}

// stubCatalogProvider hands out one shared fake store and tracker.
type stubCatalogProvider struct {
	store   repositories.CatalogRepository
	tracker orchestrator.TrackerLog
}

func (s stubCatalogProvider) Open(context.Context, string) (repositories.CatalogRepository, error) {
	return s.store, nil
}

func (s stubCatalogProvider) Tracker(string) orchestrator.TrackerLog {
	return s.tracker
}

// recordingTracker collects appended records in memory.
type recordingTracker struct {
	mu      sync.Mutex
	Records []entities.PullRequestRecord
}

func (r *recordingTracker) Append(record entities.PullRequestRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Records = append(r.Records, record)
	return nil
}

func testSettings() *entities.Settings {
	return &entities.Settings{
		Token:             "test-token",
		DatabaseFile:      "actup.db",
		TrackerFile:       "PR_TRACKER.md",
		Workers:           2,
		PinTarget:         entities.PinTargetCurrent,
		PopularReposLimit: 10,
	}
}
