package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliassehm/conformity/internal/config"
	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/recap"
	"github.com/iliassehm/conformity/internal/worker"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	var (
		transports []string
		delay      string
	)
	cmd := &cobra.Command{
		Use:   "notify <document-id>",
		Short: "Notify the customer about a document's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := parseTransports(transports)
			if err != nil {
				return err
			}
			var delayUntil *time.Time
			if delay != "" {
				t, err := time.Parse(time.RFC3339, delay)
				if err != nil {
					return fmt.Errorf("invalid --delay-until: %w", err)
				}
				delayUntil = &t
			}
			return ctx.withStack(cmd.Context(), func(_ *config.Config, stack *worker.Stack) error {
				if err := recap.Notify(cmd.Context(), stack.Backoffice, args[0], ts, delayUntil); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Notified %s via %v\n", args[0], ts.Slice())
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&transports, "transport", "t", []string{string(domain.TransportMail)}, "Transports to notify through (mail, push)")
	cmd.Flags().StringVar(&delay, "delay-until", "", "Hold notifications until this RFC 3339 time")
	return cmd
}

func parseTransports(names []string) (domain.TransportSet, error) {
	var ts domain.TransportSet
	for _, n := range names {
		t := domain.Transport(n)
		if t != domain.TransportMail && t != domain.TransportPush {
			return ts, fmt.Errorf("unknown transport %q", n)
		}
		ts = ts.Add(t)
	}
	return ts, nil
}
