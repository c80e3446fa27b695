package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"peiyin/internal/config"
	"peiyin/internal/logging"
	"peiyin/internal/mediacache"
	"peiyin/internal/queue"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the intermediate media cache",
	}
	var asJSON bool
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts and disk usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				manager := mediacache.NewManager(cfg, store, logging.NewNop())
				stats, err := manager.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				view := newTableView("Kind", "Entries", "Missing", "Size").alignRight(2, 3, 4)
				for _, kind := range stats.Kinds {
					view.row(string(kind.Kind), strconv.Itoa(kind.Entries), strconv.Itoa(kind.Missing), logging.FormatBytes(kind.Bytes))
				}
				view.footer("", "", "", logging.FormatBytes(stats.TotalBytes))
				fmt.Fprintln(out, view.render())
				fmt.Fprintf(out, "Total: %s in %s\n", logging.FormatBytes(stats.TotalBytes), cfg.Paths.CacheDir)
				if stats.FreeBytes > 0 {
					fmt.Fprintf(out, "Free: %s (%.1f%%)\n", logging.FormatBytes(int64(stats.FreeBytes)), stats.FreePercent) //nolint:gosec
				}
				return nil
			})
		},
	}
	statsCmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	cacheCmd.AddCommand(statsCmd)
	return cacheCmd
}
