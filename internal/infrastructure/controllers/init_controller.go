package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pgoslatara/actup/internal/domain/commands"
	"github.com/pgoslatara/actup/internal/domain/entities"
)

// InitController handles the "init" subcommand.
type InitController struct {
	command commands.Init
}

// NewInitController creates a new InitController.
func NewInitController(command commands.Init) *InitController {
	return &InitController{command: command}
}

// GetBind returns the Cobra command metadata for the init controller.
func (it *InitController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "init",
		Short: "Create the local catalog database",
		Long: `Create the local catalog database and its schema.

Running init on an existing database is harmless: the schema is
applied idempotently and existing rows are preserved.`,
	}
}

// Execute creates the catalog database.
func (it *InitController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	settings := loadSettings(cmd)
	if settings == nil {
		return
	}

	if err := it.command.Execute(ctx, settings); err != nil {
		logger.Errorf("Init failed: %v", err)
	}
}
