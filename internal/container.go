package internal

import (
	"go.uber.org/dig"

	"github.com/pgoslatara/actup/internal/domain/commands"
	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/infrastructure/controllers"
	"github.com/pgoslatara/actup/internal/infrastructure/repositories"
)

// RegisterProviders registers all internal providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register all layers (bottom-up: infrastructure repos -> domain entities -> domain commands -> controllers)
	if err := repositories.RegisterProviders(container); err != nil {
		return err
	}
	if err := entities.RegisterProviders(container); err != nil {
		return err
	}
	if err := commands.RegisterProviders(container); err != nil {
		return err
	}
	if err := controllers.RegisterProviders(container); err != nil {
		return err
	}

	// Register the main app context
	if err := container.Provide(NewAppContext); err != nil {
		return err
	}

	return nil
}
