package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jimdaga/unipost/internal/config"
	"github.com/jimdaga/unipost/internal/logging"
)

type commandContext struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "unipost",
		Short:         "UniPost post generation dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx.cfg = config.Load()
			ctx.logger = logging.New(ctx.cfg.LogLevel, ctx.cfg.LogFormat)
			slog.SetDefault(ctx.logger)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newWorkerCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	return rootCmd
}
