package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jimdaga/unipost/internal/streams"
	"github.com/jimdaga/unipost/internal/worker"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the reference indexing worker, its scheduler and the decision consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := ctx.cfg, ctx.logger

			a, err := newApp(context.Background(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			deps, err := a.workerDeps()
			if err != nil {
				return err
			}

			stopScheduler, err := worker.StartScheduler(cfg, logger)
			if err != nil {
				return err
			}
			defer stopScheduler()

			if cfg.ApprovalTransport == "stream" {
				stopConsumer, err := streams.StartDecisionConsumer(cfg.RedisURL, a.applier, logger)
				if err != nil {
					return err
				}
				defer stopConsumer()
			}

			// Run blocks until SIGINT or SIGTERM.
			return worker.Run(cfg, deps)
		},
	}
}
