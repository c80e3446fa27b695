package main

import (
	"encoding/json"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"peiyin/internal/queue"
)

// tableView wraps a go-pretty writer with the CLI's house style.
type tableView struct {
	tw      table.Writer
	columns int
}

func newTableView(headers ...string) *tableView {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	return &tableView{tw: tw, columns: len(headers)}
}

// alignRight right-aligns the given 1-based columns.
func (v *tableView) alignRight(numbers ...int) *tableView {
	configs := make([]table.ColumnConfig, 0, len(numbers))
	for _, n := range numbers {
		configs = append(configs, table.ColumnConfig{
			Number:      n,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
			AlignFooter: text.AlignRight,
		})
	}
	v.tw.SetColumnConfigs(configs)
	return v
}

func (v *tableView) row(cells ...string) {
	v.tw.AppendRow(v.pad(cells))
}

func (v *tableView) footer(cells ...string) {
	v.tw.AppendFooter(v.pad(cells))
}

func (v *tableView) pad(cells []string) table.Row {
	r := make(table.Row, v.columns)
	for i := range r {
		if i < len(cells) {
			r[i] = cells[i]
		} else {
			r[i] = ""
		}
	}
	return r
}

func (v *tableView) render() string {
	return v.tw.Render()
}

// statusCell colors a job status for terminal output.
func statusCell(status queue.Status, colorize bool) string {
	if !colorize {
		return string(status)
	}
	var colors text.Colors
	switch status {
	case queue.StatusCompleted:
		colors = text.Colors{text.FgGreen}
	case queue.StatusFailed:
		colors = text.Colors{text.FgRed}
	case queue.StatusProcessing:
		colors = text.Colors{text.FgYellow}
	default:
		return string(status)
	}
	return colors.Sprint(string(status))
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
