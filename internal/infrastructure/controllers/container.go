package controllers

import (
	"go.uber.org/dig"

	"github.com/pgoslatara/actup/internal/domain/entities"
)

// RegisterProviders registers all controller providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register controller constructors
	constructors := []any{
		NewInitController,
		NewDiscoverController,
		NewScanController,
		NewResolveController,
		NewRemediateController,
		NewReportController,
		NewControllers,
	}
	for _, constructor := range constructors {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	return nil
}

// NewControllers aggregates all controllers into the subcommand slice, in
// the order they show up in the CLI help.
func NewControllers(
	initController *InitController,
	discoverController *DiscoverController,
	scanController *ScanController,
	resolveController *ResolveController,
	remediateController *RemediateController,
	reportController *ReportController,
) *[]entities.Controller {
	return &[]entities.Controller{
		initController,
		discoverController,
		scanController,
		resolveController,
		remediateController,
		reportController,
	}
}
