package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pgoslatara/actup/internal/domain/commands"
	"github.com/pgoslatara/actup/internal/domain/entities"
)

// DiscoverController handles the "discover" subcommand.
type DiscoverController struct {
	command commands.Discover
}

// NewDiscoverController creates a new DiscoverController.
func NewDiscoverController(command commands.Discover) *DiscoverController {
	return &DiscoverController{command: command}
}

// GetBind returns the Cobra command metadata for the discover controller.
func (it *DiscoverController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "discover",
		Short: "Discover repositories to audit",
		Long: `Discover repositories and record them in the catalog.

Fetches the most popular repositories from the platform search API,
adds any repositories listed explicitly in the settings file, and
drops everything on the exclusion list.`,
	}
}

// Execute discovers repositories into the catalog.
func (it *DiscoverController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	settings := loadSettings(cmd)
	if settings == nil {
		return
	}

	if err := it.command.Execute(ctx, settings); err != nil {
		logger.Errorf("Discover failed: %v", err)
	}
}
