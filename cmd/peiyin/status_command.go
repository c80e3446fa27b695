package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"peiyin/internal/api"
	"peiyin/internal/config"
	"peiyin/internal/daemonctl"
	"peiyin/internal/preflight"
	"peiyin/internal/queue"
)

type statusReport struct {
	PID       int                                    `json:"pid,omitempty"`
	Running   bool                                   `json:"running"`
	Daemon    *api.DaemonStatus                      `json:"daemon,omitempty"`
	DaemonErr string                                 `json:"daemon_error,omitempty"`
	Checks    []preflight.Result                     `json:"checks"`
	JobStats  map[queue.JobKind]map[queue.Status]int `json:"job_stats"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				report := statusReport{Checks: preflight.RunAll(cmd.Context(), cfg)}
				report.Running, report.PID = daemonctl.ProcessInfo(cfg)
				if report.Running {
					daemonStatus, err := fetchDaemonStatus(cmd.Context(), cfg)
					if err != nil {
						report.DaemonErr = err.Error()
					}
					report.Daemon = daemonStatus
				}
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				report.JobStats = stats

				if asJSON {
					return writeJSON(cmd, report)
				}
				renderStatusReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of tables")
	return cmd
}

func renderStatusReport(out io.Writer, report statusReport) {
	colorize := shouldColorize(out)

	printSection(out, "Daemon", colorize)
	switch {
	case !report.Running:
		fmt.Fprintln(out, renderStatusLine("peiyind", statusWarn, "not running", colorize))
	case report.DaemonErr != "":
		fmt.Fprintln(out, renderStatusLine("peiyind", statusWarn, fmt.Sprintf("pid %d, api unreachable: %s", report.PID, report.DaemonErr), colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("peiyind", statusOK, "running (pid "+strconv.Itoa(report.PID)+")", colorize))
	}
	if report.Daemon != nil {
		for _, lane := range report.Daemon.Workflow.Lanes {
			fmt.Fprintln(out, renderStatusLine(lane.Name, laneKind(lane.Health.Ready, lane.LastError), laneDetail(lane.Polls, lane.LastPoll, lane.LastError, lane.Health.Detail), colorize))
		}
	}
	fmt.Fprintln(out)

	printSection(out, "Checks", colorize)
	for _, check := range report.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	fmt.Fprintln(out)

	printSection(out, "Jobs", colorize)
	view := newTableView("Kind", "Status", "Count").alignRight(3)
	total := 0
	for _, kind := range queue.AllJobKinds() {
		for _, status := range queue.AllStatuses() {
			if count := report.JobStats[kind][status]; count > 0 {
				view.row(string(kind), statusCell(status, colorize), strconv.Itoa(count))
				total += count
			}
		}
	}
	if total == 0 {
		fmt.Fprintln(out, "No jobs recorded")
		return
	}
	view.footer("", "Total", strconv.Itoa(total))
	fmt.Fprintln(out, view.render())
}

func laneKind(ready bool, lastErr string) statusKind {
	switch {
	case !ready:
		return statusError
	case lastErr != "":
		return statusWarn
	default:
		return statusOK
	}
}

func laneDetail(polls int64, lastPoll time.Time, lastErr, health string) string {
	parts := []string{fmt.Sprintf("%d polls", polls)}
	if !lastPoll.IsZero() {
		parts = append(parts, "last "+lastPoll.Local().Format(time.DateTime))
	}
	if lastErr != "" {
		parts = append(parts, "error: "+lastErr)
	}
	if health != "" {
		parts = append(parts, health)
	}
	return strings.Join(parts, ", ")
}
