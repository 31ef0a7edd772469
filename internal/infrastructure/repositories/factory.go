// Package repositories wires the concrete infrastructure implementations
// behind the domain repository interfaces.
package repositories

import (
	"context"
	"fmt"

	domainRepos "github.com/pgoslatara/actup/internal/domain/repositories"
	"github.com/pgoslatara/actup/internal/infrastructure/repositories/catalog"
	"github.com/pgoslatara/actup/internal/infrastructure/repositories/github"
	"github.com/pgoslatara/actup/internal/orchestrator"
	"github.com/pgoslatara/actup/internal/ratelimit"
)

// RemoteFactory builds authenticated remote repositories. All clients built
// by one factory share a single rate gate, so concurrent workers coordinate
// their API budget.
type RemoteFactory struct {
	gate *ratelimit.Gate
}

func NewRemoteFactory() *RemoteFactory {
	return &RemoteFactory{gate: ratelimit.NewGate()}
}

// Get returns a remote repository authenticated with the given token.
func (f *RemoteFactory) Get(token string) domainRepos.RemoteRepository {
	return github.NewGitHubRemoteRepository(token, f.gate)
}

// CatalogFactory opens catalog stores and tracker logs.
type CatalogFactory struct{}

func NewCatalogFactory() *CatalogFactory {
	return &CatalogFactory{}
}

// Open opens the database file and ensures the schema exists. The caller owns
// the returned store and must Close it.
func (f *CatalogFactory) Open(ctx context.Context, databaseFile string) (domainRepos.CatalogRepository, error) {
	store, err := catalog.Open(databaseFile)
	if err != nil {
		return nil, err
	}
	if err = store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return store, nil
}

// Tracker returns the append-only pull request log at the given path.
func (f *CatalogFactory) Tracker(trackerFile string) orchestrator.TrackerLog {
	return catalog.NewTracker(trackerFile)
}
