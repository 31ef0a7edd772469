package commands

import (
	"context"

	logger "github.com/sirupsen/logrus"

	"github.com/pgoslatara/actup/internal/domain/entities"
)

// Init is the interface for the init command.
type Init interface {
	Execute(ctx context.Context, settings *entities.Settings) error
}

// InitCommand creates the catalog database and its schema.
type InitCommand struct {
	catalogs CatalogProvider
}

func NewInitCommand(catalogs CatalogProvider) *InitCommand {
	return &InitCommand{catalogs: catalogs}
}

func (it *InitCommand) Execute(ctx context.Context, settings *entities.Settings) error {
	store, err := it.catalogs.Open(ctx, settings.DatabaseFile)
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Infof("Catalog initialized at %s", settings.DatabaseFile)
	return nil
}
