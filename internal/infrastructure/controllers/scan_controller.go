package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pgoslatara/actup/internal/domain/commands"
	"github.com/pgoslatara/actup/internal/domain/entities"
)

// ScanController handles the "scan" subcommand.
type ScanController struct {
	command commands.Scan
}

// NewScanController creates a new ScanController.
func NewScanController(command commands.Scan) *ScanController {
	return &ScanController{command: command}
}

// GetBind returns the Cobra command metadata for the scan controller.
func (it *ScanController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "scan [owner/name ...]",
		Short: "Scan repositories for action references",
		Long: `Scan workflow and action definition files for "uses:" references
and snapshot them into the catalog.

With no arguments, scans the repositories listed in the settings
file, falling back to every repository previously discovered.`,
	}
}

// Execute scans the target repositories.
func (it *ScanController) Execute(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	settings := loadSettings(cmd)
	if settings == nil {
		return
	}

	if err := it.command.Execute(ctx, settings, args); err != nil {
		logger.Errorf("Scan failed: %v", err)
	}
}
