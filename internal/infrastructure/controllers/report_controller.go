package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pgoslatara/actup/internal/domain/commands"
	"github.com/pgoslatara/actup/internal/domain/entities"
)

// ReportController handles the "report" subcommand.
type ReportController struct {
	command commands.Report
}

// NewReportController creates a new ReportController.
func NewReportController(command commands.Report) *ReportController {
	return &ReportController{command: command}
}

// GetBind returns the Cobra command metadata for the report controller.
func (it *ReportController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "report",
		Short: "Report Pull Request statuses",
		Long: `Refresh and report the status of every remediation Pull Request
recorded in the catalog.

Open Pull Requests are checked against the platform and their
stored status updated when they were merged or closed. Moved
tags detected during resolution are listed as warnings.`,
	}
}

// Execute reports on recorded Pull Requests.
func (it *ReportController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	settings := loadSettings(cmd)
	if settings == nil {
		return
	}

	if err := it.command.Execute(ctx, settings); err != nil {
		logger.Errorf("Report failed: %v", err)
	}
}
