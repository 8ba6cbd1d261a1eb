package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/config"
	"github.com/posdenous/naviya-launcher-sub002/internal/logger"
)

const programName = "naviya-guardian"

var globalFlags = struct {
	configFile string
	debug      bool
}{}

// setup loads configuration and builds the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	if globalFlags.configFile != "" {
		if err := os.Setenv("CONFIG_FILE", globalFlags.configFile); err != nil {
			return nil, nil, fmt.Errorf("failed to set config file: %w", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if globalFlags.debug {
		cfg.Log.Level = "debug"
	}
	log, err := logger.NewLogger(cfg.Log, programName, cfg.Elder.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, log, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Caregiver abuse guardian for an elder's device",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&globalFlags.configFile, "config", "c", "", "path to config file to load")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")

	rootCmd.AddCommand(
		serveCommand(),
		migrateCommand(),
		auditCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
