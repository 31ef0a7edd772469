package entities

import (
	"go.uber.org/dig"
)

// RegisterProviders registers all entity providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	_ = container
	return nil // Settings requires a file path, provided by the controllers layer
}
