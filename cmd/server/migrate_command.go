package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jimdaga/unipost/internal/database"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := ctx.cfg, ctx.logger
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}

			db, err := database.Init(cmd.Context(), cfg.DatabaseURL, database.DefaultPool)
			if err != nil {
				return err
			}
			defer database.Close(db)

			version, err := database.RunMigrations(db, logger)
			if err != nil {
				return err
			}
			if err := database.EnsureStatisticsRow(db); err != nil {
				return err
			}
			logger.Info("Migrations applied", "version", version)
			return nil
		},
	}
}
