package main

import (
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pgoslatara/actup/internal"
	"github.com/pgoslatara/actup/internal/infrastructure/controllers"
)

func buildRootCommand() *cobra.Command {
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	cmd := &cobra.Command{
		Use:   "actup",
		Short: "Audit and remediate GitHub Action references",
		Long: `Audit "uses:" references across GitHub repositories and open draft
Pull Requests that rewrite them.

Typical pipeline:
  actup init        Create the local catalog database
  actup discover    Record repositories to audit
  actup scan        Snapshot action references from workflow files
  actup resolve     Resolve latest versions and commit SHAs
  actup remediate   Open draft Pull Requests with the rewrites
  actup report      Refresh and report Pull Request statuses`,
		RunE: func(command *cobra.Command, _ []string) error {
			return command.Help()
		},
	}

	// Global persistent flags
	cmd.PersistentFlags().StringP("config", "c", "",
		"Path to settings file (default: auto-detect)")

	return cmd
}

func addSubcommands(rootCmd *cobra.Command, appContext *internal.AppContext) {
	for _, controller := range appContext.GetControllers() {
		bind := controller.GetBind()
		ctrl := controller // capture for closure
		//nolint:exhaustruct // Minimal Command initialization with required fields only
		subCmd := &cobra.Command{
			Use:   bind.Use,
			Short: bind.Short,
			Long:  bind.Long,
			Run: func(command *cobra.Command, arguments []string) {
				ctrl.Execute(command, arguments)
			},
		}

		// Add controller-specific flags
		switch typed := ctrl.(type) {
		case *controllers.ResolveController:
			typed.AddFlags(subCmd)
		case *controllers.RemediateController:
			typed.AddFlags(subCmd)
		}

		rootCmd.AddCommand(subCmd)
	}
}

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	if os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.DebugLevel)
	}

	cobraRoot := buildRootCommand()

	// Add all subcommands
	appContext := injectAppContext()
	addSubcommands(cobraRoot, appContext)

	if err := cobraRoot.Execute(); err != nil {
		logger.Fatalf("Error executing 'actup': %s", err)
	}
}
