package repositories

import (
	"go.uber.org/dig"
)

// RegisterProviders registers all repository providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	if err := container.Provide(NewRemoteFactory); err != nil {
		return err
	}
	if err := container.Provide(NewCatalogFactory); err != nil {
		return err
	}

	return nil
}
