package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"peiyin/internal/config"
	"peiyin/internal/download"
	"peiyin/internal/logging"
	"peiyin/internal/queue"
	"peiyin/internal/recommend"
)

func newRecommendCommand(ctx *commandContext) *cobra.Command {
	recCmd := &cobra.Command{
		Use:   "recommend",
		Short: "Manage the recommended clip set",
	}
	recCmd.AddCommand(newRecommendRefreshCommand(ctx))
	recCmd.AddCommand(newRecommendListCommand(ctx))
	return recCmd
}

func newRecommendRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Sample a new recommendation set now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				client := download.New(download.Options{
					Timeout:   time.Duration(cfg.Recommendation.HTTPTimeoutSeconds) * time.Second,
					Retries:   cfg.Download.RetryCount,
					UserAgent: cfg.Download.UserAgent,
				})
				refresher := recommend.New(cfg, store, client, logging.NewNop())
				result, err := refresher.Refresh(cmd.Context())
				out := cmd.OutOrStdout()
				switch {
				case errors.Is(err, recommend.ErrNoSeasons):
					fmt.Fprintln(out, "No active seasons; recommendations unchanged")
					return nil
				case errors.Is(err, recommend.ErrNoClips):
					fmt.Fprintln(out, "No clips found in active seasons; recommendations unchanged")
					return nil
				case err != nil:
					return err
				}
				fmt.Fprintf(out, "Stored %d recommendation(s) from %d available clip(s)\n", result.Count, result.TotalAvailable)
				return nil
			})
		},
	}
}

func newRecommendListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the current recommendation set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				clips, err := store.ListRecommendations(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, clips)
				}
				out := cmd.OutOrStdout()
				if len(clips) == 0 {
					fmt.Fprintln(out, "No recommendations stored")
					return nil
				}
				view := newTableView("#", "Season", "Episode", "Text", "Seconds", "Video").alignRight(1, 5)
				for _, clip := range clips {
					view.row(
						strconv.Itoa(clip.SortOrder),
						clip.SeasonID,
						clip.EpisodeName,
						clip.OriginalText,
						strconv.FormatFloat(clip.Duration, 'f', 1, 64),
						clip.VideoURL,
					)
				}
				fmt.Fprintln(out, view.render())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
