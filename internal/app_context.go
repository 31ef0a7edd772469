package internal

import (
	"github.com/pgoslatara/actup/internal/domain/entities"
)

// AppContext carries the wired application graph out of the DIG container.
type AppContext struct {
	controllers *[]entities.Controller
}

// NewAppContext creates the application context from the aggregated controllers.
func NewAppContext(controllers *[]entities.Controller) *AppContext {
	return &AppContext{controllers: controllers}
}

// GetControllers returns the CLI subcommand controllers.
func (it *AppContext) GetControllers() []entities.Controller {
	return *it.controllers
}
