package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"peiyin/internal/config"
	"peiyin/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and maintain pipeline jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsPurgeFailedCommand(ctx))
	return jobsCmd
}

func parseKinds(value string) ([]queue.JobKind, error) {
	if strings.TrimSpace(value) == "" {
		return queue.AllJobKinds(), nil
	}
	kind, ok := queue.ParseJobKind(value)
	if !ok {
		return nil, fmt.Errorf("unknown job kind %q (want vocal-removal or dubbing)", value)
	}
	return []queue.JobKind{kind}, nil
}

func parseStatuses(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

type jobRow struct {
	Kind    queue.JobKind `json:"kind"`
	ID      string        `json:"id"`
	Status  queue.Status  `json:"status"`
	Source  string        `json:"source_url"`
	Output  string        `json:"output_path,omitempty"`
	Error   string        `json:"error,omitempty"`
	Updated time.Time     `json:"updated_at"`
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var statusFlags []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vocal-removal and dubbing jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(kindFlag)
			if err != nil {
				return err
			}
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				var rows []jobRow
				for _, kind := range kinds {
					switch kind {
					case queue.KindVocalRemoval:
						jobs, err := store.ListVocalRemovals(cmd.Context(), statuses...)
						if err != nil {
							return err
						}
						for _, job := range jobs {
							rows = append(rows, jobRow{
								Kind: kind, ID: job.URLHash, Status: job.Status, Source: job.SourceURL,
								Output: deref(job.OutputPath), Error: deref(job.ErrorMessage), Updated: job.UpdatedAt.Time,
							})
						}
					case queue.KindCompositeDubbing:
						jobs, err := store.ListCompositeDubbings(cmd.Context(), statuses...)
						if err != nil {
							return err
						}
						for _, job := range jobs {
							rows = append(rows, jobRow{
								Kind: kind, ID: strconv.FormatInt(job.ID, 10), Status: job.Status, Source: job.SourceURL,
								Output: deref(job.OutputPath), Error: deref(job.ErrorMessage), Updated: job.UpdatedAt.Time,
							})
						}
					}
				}

				if asJSON {
					return writeJSON(cmd, rows)
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No jobs found")
					return nil
				}
				colorize := shouldColorize(out)
				view := newTableView("Kind", "ID", "Status", "Source", "Output / Error", "Updated")
				for _, row := range rows {
					detail := row.Output
					if row.Error != "" {
						detail = row.Error
					}
					view.row(string(row.Kind), row.ID, statusCell(row.Status, colorize), row.Source, detail, row.Updated.Local().Format(time.DateTime))
				}
				fmt.Fprintln(out, view.render())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kindFlag, "kind", "", "Restrict to one job kind (vocal-removal, dubbing)")
	cmd.Flags().StringSliceVar(&statusFlags, "status", nil, "Restrict to statuses (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newJobsPurgeFailedCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	cmd := &cobra.Command{
		Use:   "purge-failed",
		Short: "Delete failed jobs so their sources can be resubmitted",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(kindFlag)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, kind := range kinds {
					var removed int64
					var err error
					switch kind {
					case queue.KindVocalRemoval:
						removed, err = store.PurgeFailedVocalRemovals(cmd.Context())
					case queue.KindCompositeDubbing:
						removed, err = store.PurgeFailedCompositeDubbings(cmd.Context())
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed %d failed %s job(s)\n", removed, kind)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kindFlag, "kind", "", "Restrict to one job kind (vocal-removal, dubbing)")
	return cmd
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
