package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/iliassehm/conformity/internal/config"
	"github.com/iliassehm/conformity/internal/worker"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal worker executing envelope workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd.Context(), func(cfg *config.Config, stack *worker.Stack) error {
				c, err := dialTemporal(ctx, cfg)
				if err != nil {
					return err
				}
				defer c.Close()

				w := sdkworker.New(c, cfg.Temporal.TaskQueue, sdkworker.Options{})
				worker.RegisterAll(w, stack)

				ctx.logger.Info("worker started",
					"task_queue", cfg.Temporal.TaskQueue,
					"namespace", cfg.Temporal.Namespace,
					"storage", cfg.Storage.Mode)
				if err := w.Run(sdkworker.InterruptCh()); err != nil {
					return fmt.Errorf("worker stopped: %w", err)
				}
				return nil
			})
		},
	}
}

func dialTemporal(ctx *commandContext, cfg *config.Config) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(ctx.logger),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to temporal at %s: %w", cfg.Temporal.HostPort, err)
	}
	return c, nil
}
