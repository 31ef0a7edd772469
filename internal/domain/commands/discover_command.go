package commands

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"

	"github.com/pgoslatara/actup/internal/domain/entities"
)

// Discover is the interface for the discover command.
type Discover interface {
	Execute(ctx context.Context, settings *entities.Settings) error
}

// DiscoverCommand populates the catalog with repositories to audit: the most
// popular repositories from the search API plus any explicitly configured ones.
type DiscoverCommand struct {
	remotes  RemoteProvider
	catalogs CatalogProvider
}

func NewDiscoverCommand(remotes RemoteProvider, catalogs CatalogProvider) *DiscoverCommand {
	return &DiscoverCommand{remotes: remotes, catalogs: catalogs}
}

func (it *DiscoverCommand) Execute(ctx context.Context, settings *entities.Settings) error {
	remote := it.remotes.Get(settings.Token)
	store, err := it.catalogs.Open(ctx, settings.DatabaseFile)
	if err != nil {
		return err
	}
	defer store.Close()

	saved := 0

	logger.Infof("Searching the %d most popular repositories...", settings.PopularReposLimit)
	popular, err := remote.SearchPopularRepositories(ctx, settings.PopularReposLimit)
	if err != nil {
		return err
	}
	for _, repo := range popular {
		if settings.Excluded(repo.FullName) {
			continue
		}
		if saveErr := store.SaveRepository(ctx, repo); saveErr != nil {
			return saveErr
		}
		saved++
	}

	for _, fullName := range settings.Repositories {
		if settings.Excluded(fullName) {
			continue
		}
		repo, getErr := remote.GetRepository(ctx, fullName)
		if errors.Is(getErr, entities.ErrNotFound) {
			logger.Warnf("Skipping %s: repository not found", fullName)
			continue
		}
		if getErr != nil {
			return getErr
		}
		if saveErr := store.SaveRepository(ctx, repo); saveErr != nil {
			return saveErr
		}
		saved++
	}

	logger.Infof("Discovered %d repositories", saved)
	return nil
}
