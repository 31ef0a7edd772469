package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pgoslatara/actup/internal/domain/commands"
	"github.com/pgoslatara/actup/internal/domain/entities"
)

// ResolveController handles the "resolve" subcommand.
type ResolveController struct {
	command commands.Resolve
}

// NewResolveController creates a new ResolveController.
func NewResolveController(command commands.Resolve) *ResolveController {
	return &ResolveController{command: command}
}

// GetBind returns the Cobra command metadata for the resolve controller.
func (it *ResolveController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "resolve",
		Short: "Resolve latest versions and commit SHAs",
		Long: `Resolve the latest stable version of every known action and pin
every scanned tag reference to its commit SHA.

With --action (and optionally --tag), resolves a single action
instead of the whole catalog.`,
	}
}

// Execute resolves versions and pins.
func (it *ResolveController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	settings := loadSettings(cmd)
	if settings == nil {
		return
	}

	action, _ := cmd.Flags().GetString("action")
	tag, _ := cmd.Flags().GetString("tag")

	if err := it.command.Execute(ctx, settings, commands.ResolveOptions{
		Action: action,
		Tag:    tag,
	}); err != nil {
		logger.Errorf("Resolve failed: %v", err)
	}
}

// AddFlags adds the resolve-specific flags to the given Cobra command.
func (it *ResolveController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("action", "", "Only resolve this action (owner/name)")
	cmd.Flags().String("tag", "", "Resolve this tag to its commit SHA (requires --action)")
}
