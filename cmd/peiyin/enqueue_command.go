package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"peiyin/internal/api"
	"peiyin/internal/config"
	"peiyin/internal/logging"
	"peiyin/internal/queue"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	enqueueCmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue work for the daemon",
	}
	enqueueCmd.AddCommand(&cobra.Command{
		Use:   "vocal-removal <source-url>",
		Short: "Queue vocal removal for a source video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				service := api.NewService(cfg, store, nil, logging.NewNop())
				status, err := service.EnqueueVocalRemoval(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if status.Created {
					fmt.Fprintf(out, "Queued vocal removal for %s\n", status.SourceURL)
					return nil
				}
				fmt.Fprintf(out, "Vocal removal already recorded for %s (status: %s)\n", status.SourceURL, status.Status)
				return nil
			})
		},
	})
	return enqueueCmd
}
