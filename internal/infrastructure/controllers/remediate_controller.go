package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pgoslatara/actup/internal/domain/commands"
	"github.com/pgoslatara/actup/internal/domain/entities"
)

// RemediateController handles the "remediate" subcommand.
type RemediateController struct {
	command commands.Remediate
}

// NewRemediateController creates a new RemediateController.
func NewRemediateController(command commands.Remediate) *RemediateController {
	return &RemediateController{command: command}
}

// GetBind returns the Cobra command metadata for the remediate controller.
func (it *RemediateController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "remediate [owner/name ...]",
		Short: "Open draft Pull Requests with rewritten action references",
		Long: `Plan rewrites for every scanned repository and open draft Pull
Requests from a fork.

The --mode flag selects the rewrite: "latest-version" bumps tag
references to the newest stable release, "pin-to-sha" replaces
tags with their commit SHAs plus a version comment.

Repositories with an open remediation Pull Request in the same
mode are skipped, so the command is safe to re-run.`,
	}
}

// Execute remediates the target repositories.
func (it *RemediateController) Execute(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	settings := loadSettings(cmd)
	if settings == nil {
		return
	}

	rawMode, _ := cmd.Flags().GetString("mode")
	mode, err := entities.ParseRemediationMode(rawMode)
	if err != nil {
		logger.Errorf("invalid --mode: %v", err)
		return
	}

	if remErr := it.command.Execute(ctx, settings, commands.RemediateOptions{
		Mode:  mode,
		Repos: args,
	}); remErr != nil {
		logger.Errorf("Remediate failed: %v", remErr)
	}
}

// AddFlags adds the remediate-specific flags to the given Cobra command.
func (it *RemediateController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", "pin-to-sha",
		"Remediation mode (latest-version, pin-to-sha)")
}
