package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"peiyin/internal/config"
	"peiyin/internal/queue"
)

func newSeasonsCommand(ctx *commandContext) *cobra.Command {
	seasonsCmd := &cobra.Command{
		Use:   "seasons",
		Short: "Manage catalog seasons used for recommendations",
	}
	seasonsCmd.AddCommand(newSeasonsAddCommand(ctx))
	seasonsCmd.AddCommand(newSeasonsListCommand(ctx))
	return seasonsCmd
}

func newSeasonsAddCommand(ctx *commandContext) *cobra.Command {
	var cartoonID string
	var number int
	var inactive bool

	cmd := &cobra.Command{
		Use:   "add <season-id> <all-json-url>",
		Short: "Add or update a season",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[1])
			if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
				return fmt.Errorf("all.json url must be http(s): %q", url)
			}
			season := queue.Season{
				ID:         strings.TrimSpace(args[0]),
				CartoonID:  strings.TrimSpace(cartoonID),
				Number:     number,
				AllJSONURL: url,
				IsActive:   !inactive,
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				if err := store.UpsertSeason(cmd.Context(), season); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Season %s saved (active: %s)\n", season.ID, yesNo(season.IsActive))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&cartoonID, "cartoon", "", "Cartoon identifier the season belongs to")
	cmd.Flags().IntVar(&number, "number", 0, "Season number within the cartoon")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Store the season without sampling from it")
	return cmd
}

func newSeasonsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List seasons",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				seasons, err := store.ListSeasons(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, seasons)
				}
				out := cmd.OutOrStdout()
				if len(seasons) == 0 {
					fmt.Fprintln(out, "No seasons configured")
					return nil
				}
				view := newTableView("ID", "Cartoon", "Number", "Active", "all.json").alignRight(3)
				active := 0
				for _, season := range seasons {
					view.row(season.ID, season.CartoonID, strconv.Itoa(season.Number), yesNo(season.IsActive), season.AllJSONURL)
					if season.IsActive {
						active++
					}
				}
				view.footer("", "", "", fmt.Sprintf("%d/%d", active, len(seasons)))
				fmt.Fprintln(out, view.render())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
