// Package commands implements the application operations behind the CLI:
// init, discover, scan, resolve, remediate, report.
package commands

import (
	"context"

	"github.com/pgoslatara/actup/internal/domain/repositories"
	"github.com/pgoslatara/actup/internal/orchestrator"
)

// RemoteProvider yields authenticated remote repositories. All remotes from
// one provider share a rate gate.
type RemoteProvider interface {
	Get(token string) repositories.RemoteRepository
}

// CatalogProvider opens catalog stores and tracker logs. Callers own the
// returned store and must Close it.
type CatalogProvider interface {
	Open(ctx context.Context, databaseFile string) (repositories.CatalogRepository, error)
	Tracker(trackerFile string) orchestrator.TrackerLog
}
