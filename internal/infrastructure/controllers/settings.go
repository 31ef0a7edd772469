package controllers

import (
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pgoslatara/actup/internal/domain/entities"
)

// loadSettings resolves the settings file from the --config flag or the
// standard locations, then parses it. Returns nil when loading fails so
// callers can bail out after the logged error.
func loadSettings(cmd *cobra.Command) *entities.Settings {
	configPath, _ := cmd.Flags().GetString("config")

	cfgPath := configPath
	if cfgPath == "" {
		var err error
		cfgPath, err = entities.FindSettingsFile()
		if err != nil {
			logger.Errorf(
				"no settings file found: %v\nSpecify one with --config or create actup.yaml",
				err,
			)
			return nil
		}
	}

	logger.Infof("Using settings file: %s", cfgPath)

	settings, err := entities.NewSettings(cfgPath)
	if err != nil {
		logger.Errorf("failed to load settings: %v", err)
		return nil
	}
	return settings
}
