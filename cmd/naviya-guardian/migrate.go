package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/database"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the guardian schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.Database.Driver == "memory" {
				logger.Info("Memory driver has no schema to migrate")
				return nil
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			db, err := database.Open(ctx, &cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer database.Close(db)

			if err := database.Migrate(ctx, db, cfg.Database.Driver); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			logger.Info("Schema migrated", zap.String("driver", cfg.Database.Driver))
			return nil
		},
	}
}
